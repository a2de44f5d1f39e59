// Package pin defines the task record parsed from a taskpin comment and the
// marker syntax used to read and write those comments.
package pin

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Priority is the single-letter priority token carried in a pin.
type Priority string

const (
	PriorityLow    Priority = "L"
	PriorityMedium Priority = "M"
	PriorityHigh   Priority = "H"
)

// Label returns the human name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Status is the progress state of a pin. Backlog carries no token in the
// source comment; the other two are written as a trailing "| IP" or "| C".
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// Token returns the marker token for the status, empty for backlog.
func (s Status) Token() string {
	switch s {
	case StatusComplete:
		return "C"
	case StatusInProgress:
		return "IP"
	default:
		return ""
	}
}

// Label returns the human name of the status.
func (s Status) Label() string {
	switch s {
	case StatusComplete:
		return "Complete"
	case StatusInProgress:
		return "In Progress"
	default:
		return "Backlog"
	}
}

// ParseStatus maps a status token ("C", "IP", "B") or a status name to a
// Status. Matching is case-insensitive.
func ParseStatus(s string) (Status, bool) {
	switch upper(s) {
	case "C", "COMPLETE":
		return StatusComplete, true
	case "IP", "IN_PROGRESS":
		return StatusInProgress, true
	case "B", "BACKLOG", "":
		return StatusBacklog, true
	}
	return "", false
}

// Task is one parsed taskpin comment.
type Task struct {
	ID        string    `json:"id"`
	File      string    `json:"file"` // Workspace-relative, slash separated
	Line      int       `json:"line"` // 1-based
	Raw       string    `json:"rawComment"`
	Title     string    `json:"title"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	Tags      []string  `json:"tags"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"createdDate"`
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

// NewID returns a fresh opaque task id.
func NewID() string {
	return ulid.Make().String()
}

// New builds a task for a payload found at file:line. The id and creation
// time are assigned here and never change afterwards.
func New(file string, line int, payload string, now time.Time) Task {
	f := ParsePayload(payload)
	return Task{
		ID:        NewID(),
		File:      file,
		Line:      line,
		Raw:       f.Raw,
		Title:     f.Title,
		Priority:  f.Priority,
		Status:    f.Status,
		Tags:      f.Tags,
		Starred:   f.Starred,
		CreatedAt: now.UTC(),
	}
}
