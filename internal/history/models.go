// Package history keeps an append-only SQLite log of scans and task
// mutations. The flat store only holds the current list; this is where past
// actions stay visible.
package history

import "time"

// EventType names what happened to a task.
type EventType string

const (
	EventScanned       EventType = "scanned"
	EventStarred       EventType = "starred"
	EventUnstarred     EventType = "unstarred"
	EventStatusChanged EventType = "status_changed"
	EventRemoved       EventType = "removed" // Dropped from the store and the source comment
	EventDeleted       EventType = "deleted" // Dropped from the store only
	EventReordered     EventType = "reordered"
)

// Event is one logged action. Task identity is recorded with file, line and
// title as well as id, since ids change on every rescan.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id,omitempty"`
	File      string    `json:"file,omitempty"`
	Line      int       `json:"line,omitempty"`
	Title     string    `json:"title,omitempty"`
	Type      EventType `json:"event_type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
