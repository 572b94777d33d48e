// Package activity keeps the append-only audit trail in
// logs/activity-log.csv.
package activity

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Action names what was done.
type Action string

const (
	ActionInit      Action = "init"
	ActionImport    Action = "import_commit"
	ActionReconcile Action = "reconcile"
	ActionRules     Action = "rules_update"
)

// Entry is one row in the activity log.
type Entry struct {
	Timestamp  time.Time
	Actor      string
	Action     Action
	Details    string
	Reference  string // reconciliation reference or import file, when there is one
	CommitHash string
}

// Header is the column row of activity-log.csv.
var Header = []string{"timestamp", "actor", "action", "details", "reference", "commit_hash"}

// FilePath is the log location relative to the repo root.
const FilePath = "logs/activity-log.csv"

const (
	numFields     = 6
	colTimestamp  = 0
	colActor      = 1
	colAction     = 2
	colDetails    = 3
	colReference  = 4
	colCommitHash = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = e.Actor
	row[colAction] = string(e.Action)
	row[colDetails] = e.Details
	row[colReference] = e.Reference
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	return Entry{
		Timestamp:  ts,
		Actor:      record[colActor],
		Action:     Action(record[colAction]),
		Details:    record[colDetails],
		Reference:  record[colReference],
		CommitHash: record[colCommitHash],
	}, nil
}

// Log is the activity log of one repo.
type Log struct {
	path string
}

// Open returns the log under repoRoot. The file is created on first append.
func Open(repoRoot string) *Log {
	return &Log{path: filepath.Join(repoRoot, FilePath)}
}

// Append adds entries to the end of the log.
func (l *Log) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Entries returns the whole log, oldest first. A missing file is an empty log.
func (l *Log) Entries() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

// ByReference returns the entries carrying reference.
func (l *Log) ByReference(reference string) ([]Entry, error) {
	all, err := l.Entries()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Reference == reference {
			out = append(out, e)
		}
	}
	return out, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
