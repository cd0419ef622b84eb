package task

import (
	"strings"
	"time"
)

// State represents the lifecycle of a conversion task.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateFinished   State = "finished"
	StateError      State = "error"
)

var allStates = []State{StateQueued, StateProcessing, StateFinished, StateError}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// Category partitions tasks by the kind of artifact being converted.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryAudio    Category = "audio"
	CategoryImage    Category = "image"
)

var allCategories = []Category{CategoryDocument, CategoryAudio, CategoryImage}

// Task is one conversion request tracked from submission to terminal outcome.
// Fields are serialized flat and must remain additive-only so records written
// by older instances stay readable during rolling deploys.
type Task struct {
	ID               string    `json:"id"`
	State            State     `json:"state"`
	Category         Category  `json:"category"`
	SourceFormat     string    `json:"source_format"`
	TargetFormat     string    `json:"target_format"`
	InputPath        string    `json:"input_path"`
	OutputPath       string    `json:"output_path,omitempty"`
	PublicURL        string    `json:"public_url,omitempty"`
	DownloadURL      string    `json:"download_url,omitempty"`
	PreviewURL       string    `json:"preview_url,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Stats aggregates task counts per state.
type Stats struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Finished   int `json:"finished"`
	Error      int `json:"error"`
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// AllCategories returns the ordered list of known categories.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// ParseCategory converts a string into a known Category.
func ParseCategory(value string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryDocument:
		return CategoryDocument, true
	case CategoryAudio:
		return CategoryAudio, true
	case CategoryImage:
		return CategoryImage, true
	default:
		return "", false
	}
}

// IsTerminal reports whether a state can never be left.
func (s State) IsTerminal() bool {
	return s == StateFinished || s == StateError
}

// CanTransition reports whether moving from s to next respects the one-way
// queued -> processing -> {finished, error} machine.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateQueued:
		return next == StateProcessing
	case StateProcessing:
		return next == StateFinished || next == StateError
	default:
		return false
	}
}

// SetProcessing moves the task into processing, clearing any stale error text.
func (t *Task) SetProcessing(now time.Time) {
	t.State = StateProcessing
	t.ErrorMessage = ""
	t.UpdatedAt = now.UTC()
}

// SetFinished records a successful conversion with its artifact location and
// derived URLs.
func (t *Task) SetFinished(outputPath, publicURL, downloadURL, previewURL string, now time.Time) {
	t.State = StateFinished
	t.OutputPath = outputPath
	t.PublicURL = publicURL
	t.DownloadURL = downloadURL
	t.PreviewURL = previewURL
	t.ErrorMessage = ""
	t.UpdatedAt = now.UTC()
}

// SetError marks the task failed with the captured failure text.
func (t *Task) SetError(message string, now time.Time) {
	t.State = StateError
	t.ErrorMessage = strings.TrimSpace(message)
	t.OutputPath = ""
	t.PublicURL = ""
	t.DownloadURL = ""
	t.PreviewURL = ""
	t.UpdatedAt = now.UTC()
}

// Clone returns a deep copy so store implementations can hand out records
// without aliasing their internal state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
