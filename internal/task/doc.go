// Package task defines the conversion task model and its state machine.
//
// A task is created in StateQueued by the ingestion path, moved through
// StateProcessing by the dispatcher, and ends in StateFinished or StateError.
// Terminal states are never left; the cleanup scheduler eventually removes the
// record entirely.
package task
