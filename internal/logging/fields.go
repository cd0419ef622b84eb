package logging

// Standardized attribute keys. Keeping these in one place makes log output
// greppable and keeps components from drifting into ad hoc naming.
const (
	FieldComponent = "component"
	FieldTaskID    = "task_id"
	FieldCategory  = "category"
	FieldStage     = "stage"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldStrategy  = "strategy"
	FieldRequestID = "request_id"
)
