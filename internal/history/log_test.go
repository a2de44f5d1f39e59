package history

import (
	"os"
	"path/filepath"
	"testing"
)

// testLog creates a temporary history log for testing.
func testLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file not created")
	}
}

func TestRecordAndRecent(t *testing.T) {
	l := testLog(t)

	l.Record(Event{TaskID: "a", File: "main.go", Line: 3, Title: "Fix", Type: EventStarred})
	l.Record(Event{TaskID: "b", File: "util.go", Line: 9, Title: "Other", Type: EventStatusChanged, Content: "C"})
	l.Record(Event{Type: EventScanned, Content: "2 pins"})

	events, err := l.Recent(0, "")
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != EventStarred || events[2].Type != EventScanned {
		t.Errorf("expected oldest first, got %s ... %s", events[0].Type, events[2].Type)
	}
	if events[1].Content != "C" || events[1].Line != 9 {
		t.Errorf("unexpected event: %+v", events[1])
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestRecent_LimitAndFileFilter(t *testing.T) {
	l := testLog(t)

	for i := 0; i < 5; i++ {
		l.Record(Event{File: "main.go", Line: i + 1, Type: EventStarred})
	}
	l.Record(Event{File: "other.go", Type: EventDeleted})

	last, _ := l.Recent(2, "")
	if len(last) != 2 {
		t.Fatalf("expected 2 events, got %d", len(last))
	}
	if last[1].Type != EventDeleted {
		t.Errorf("expected newest event last, got %s", last[1].Type)
	}

	mainOnly, _ := l.Recent(0, "main.go")
	if len(mainOnly) != 5 {
		t.Errorf("expected 5 main.go events, got %d", len(mainOnly))
	}

	n, err := l.Count()
	if err != nil || n != 6 {
		t.Errorf("expected count 6, got %d (%v)", n, err)
	}
}
