package pin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_FullComment(t *testing.T) {
	m := DefaultMarker()

	payload, ok := m.Match("// taskpin: Fix login bug | H | #auth | starred")
	require.True(t, ok)

	f := ParsePayload(payload)
	assert.Equal(t, "Fix login bug", f.Title)
	assert.Equal(t, PriorityHigh, f.Priority)
	assert.Equal(t, []string{"auth"}, f.Tags)
	assert.True(t, f.Starred)
	assert.Equal(t, StatusBacklog, f.Status)
	assert.Equal(t, "Fix login bug | H | #auth | starred", f.Raw)
}

func TestParsePayload_Defaults(t *testing.T) {
	f := ParsePayload("Just a title")
	assert.Equal(t, "Just a title", f.Title)
	assert.Equal(t, PriorityLow, f.Priority)
	assert.Equal(t, StatusBacklog, f.Status)
	assert.Empty(t, f.Tags)
	assert.NotNil(t, f.Tags)
	assert.False(t, f.Starred)
}

func TestParsePayload_FirstPriorityWins(t *testing.T) {
	f := ParsePayload("title|M|H")
	assert.Equal(t, PriorityMedium, f.Priority)
}

func TestParsePayload_FirstStatusWins(t *testing.T) {
	assert.Equal(t, StatusInProgress, ParsePayload("t | IP | C").Status)
	assert.Equal(t, StatusComplete, ParsePayload("t | c | ip").Status)
}

func TestParsePayload_PriorityIsCaseSensitive(t *testing.T) {
	f := ParsePayload("t | h | m")
	assert.Equal(t, PriorityLow, f.Priority)
}

func TestParsePayload_TagsKeepOrderAndDuplicates(t *testing.T) {
	f := ParsePayload("t | #b | #a | #b")
	assert.Equal(t, []string{"b", "a", "b"}, f.Tags)
}

func TestParsePayload_UnknownFieldsIgnored(t *testing.T) {
	f := ParsePayload("t | whatever | 42 | STARRED")
	assert.Equal(t, "t", f.Title)
	assert.True(t, f.Starred)
	assert.Empty(t, f.Tags)
}

func TestParsePayload_EmptyTitleKept(t *testing.T) {
	f := ParsePayload(" | H")
	assert.Equal(t, "", f.Title)
	assert.Equal(t, PriorityHigh, f.Priority)
}

func TestMarker_Match(t *testing.T) {
	m := DefaultMarker()

	cases := []struct {
		line    string
		payload string
		ok      bool
	}{
		{"// taskpin: hello", "hello", true},
		{"\tfoo() //TASKPIN:hello | M", "hello | M", true},
		{"//  TaskPin  :   spaced  ", "spaced", true},
		{"# taskpin: not a go comment", "", false},
		{"// todo: nope", "", false},
		{"// taskpin:", "", true},
	}
	for _, tc := range cases {
		payload, ok := m.Match(tc.line)
		assert.Equal(t, tc.ok, ok, tc.line)
		assert.Equal(t, tc.payload, payload, tc.line)
	}
}

func TestMarker_CustomKeywordAndPrefixes(t *testing.T) {
	m, err := NewMarker("pin", []string{"//", "#", "--"})
	require.NoError(t, err)

	for _, line := range []string{"// pin: a", "# PIN: a", "-- pin : a"} {
		payload, ok := m.Match(line)
		assert.True(t, ok, line)
		assert.Equal(t, "a", payload, line)
	}

	_, err = NewMarker("  ", nil)
	assert.Error(t, err)
	_, err = NewMarker("x", []string{""})
	assert.Error(t, err)
}

func TestMarker_Index(t *testing.T) {
	m := DefaultMarker()
	assert.Equal(t, 6, m.Index("x := 1// taskpin: y"))
	assert.Equal(t, -1, m.Index("x := 1"))
}

func TestMarker_FormatRoundTrip(t *testing.T) {
	m := DefaultMarker()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	lines := []string{
		"// taskpin: Fix login bug | H | #auth | starred",
		"// taskpin: title|M|H",
		"// taskpin: a | #x | #y | #x | IP",
		"// taskpin: done thing | C | L",
		"// taskpin:  | starred",
		"// taskpin: plain",
	}
	for _, line := range lines {
		payload, ok := m.Match(line)
		require.True(t, ok, line)
		first := New("a.go", 3, payload, now)

		again, ok := m.Match(m.Format(first))
		require.True(t, ok, line)
		second := New("a.go", 3, again, now)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.Title, second.Title, line)
		assert.Equal(t, first.Priority, second.Priority, line)
		assert.Equal(t, first.Status, second.Status, line)
		assert.Equal(t, first.Tags, second.Tags, line)
		assert.Equal(t, first.Starred, second.Starred, line)
		assert.Equal(t, first.File, second.File, line)
		assert.Equal(t, first.Line, second.Line, line)
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"C":        StatusComplete,
		"ip":       StatusInProgress,
		"B":        StatusBacklog,
		"complete": StatusComplete,
	}
	for in, want := range cases {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseStatus("done")
	assert.False(t, ok)
}

func TestNew_AssignsUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		task := New("f.go", i+1, "t", time.Now())
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
}
