package store

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/imkarma/taskpin/internal/pin"
)

// timeLayout is ISO-8601 with millisecond precision in UTC.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record field positions. The order is the persisted contract.
const (
	fieldID = iota
	fieldFile
	fieldLine
	fieldRaw
	fieldTitle
	fieldPriority
	fieldStatus
	fieldCreated
	fieldTags
	fieldStarred
	numFields
)

// encodeRecords writes one comma-separated record per task. Fields holding
// commas, quotes or newlines are quoted so they survive a reload.
func encodeRecords(tasks []pin.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, t := range tasks {
		rec := make([]string, numFields)
		rec[fieldID] = t.ID
		rec[fieldFile] = t.File
		rec[fieldLine] = strconv.Itoa(t.Line)
		rec[fieldRaw] = t.Raw
		rec[fieldTitle] = t.Title
		rec[fieldPriority] = string(t.Priority)
		rec[fieldStatus] = string(t.Status)
		rec[fieldCreated] = t.CreatedAt.UTC().Format(timeLayout)
		rec[fieldTags] = strings.Join(t.Tags, " ")
		rec[fieldStarred] = strconv.FormatBool(t.Starred)
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// badRecord describes a record that did not decode cleanly.
type badRecord struct {
	Line   int
	Fields int
	Reason string
}

// decodeRecords parses the persisted file. A record with the wrong number
// of fields or an unparseable value is still returned as a task with the
// fields that could be read; it is reported in the second return value
// rather than dropped.
func decodeRecords(data []byte) ([]pin.Task, []badRecord, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var tasks []pin.Task
	var bad []badRecord
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tasks, bad, err
		}
		line, _ := r.FieldPos(0)

		t, reason := decodeRecord(rec)
		if reason == "" && len(rec) != numFields {
			reason = "wrong field count"
		}
		if reason != "" {
			bad = append(bad, badRecord{Line: line, Fields: len(rec), Reason: reason})
		}
		tasks = append(tasks, t)
	}
	return tasks, bad, nil
}

func decodeRecord(rec []string) (pin.Task, string) {
	get := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}

	t := pin.Task{
		ID:       get(fieldID),
		File:     get(fieldFile),
		Raw:      get(fieldRaw),
		Title:    get(fieldTitle),
		Priority: pin.Priority(get(fieldPriority)),
		Status:   pin.Status(get(fieldStatus)),
		Tags:     []string{},
		Starred:  get(fieldStarred) == "true",
	}

	var reason string
	if s := get(fieldLine); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			reason = "bad line number"
		}
		t.Line = n
	}
	if s := get(fieldCreated); s != "" {
		ts, err := time.Parse(timeLayout, s)
		if err != nil && reason == "" {
			reason = "bad created date"
		}
		t.CreatedAt = ts
	}
	if s := get(fieldTags); s != "" {
		t.Tags = strings.Split(s, " ")
	}
	return t, reason
}
