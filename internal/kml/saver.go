package kml

import (
	"fmt"
	"strings"

	"csvkml/internal/parser/csv"
)

// LineError records a data line that did not produce a placemark.
type LineError struct {
	Line   int
	Status csv.Status
}

func (e LineError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Status)
}

// ErrorLog collects LineErrors in the order they were reported.
type ErrorLog struct {
	Entries []LineError
}

// Add appends one failure.
func (l *ErrorLog) Add(line int, st csv.Status) {
	l.Entries = append(l.Entries, LineError{Line: line, Status: st})
}

// Len returns the number of recorded failures.
func (l *ErrorLog) Len() int { return len(l.Entries) }

func (l *ErrorLog) String() string {
	var b strings.Builder
	for _, e := range l.Entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// FolderSaver is a csv.Handler that appends a Placemark to Folder for every
// valid line and logs the others to Log, when set. It never stops a parse.
type FolderSaver struct {
	Folder *Folder
	Log    *ErrorLog
}

// HandleLine implements csv.Handler.
func (s *FolderSaver) HandleLine(line int, st csv.Status, rec *csv.Record) bool {
	if st == csv.StatusOK {
		s.Folder.AddFeature(FromRecord(rec))
		return true
	}
	if s.Log != nil {
		s.Log.Add(line, st)
	}
	return true
}
