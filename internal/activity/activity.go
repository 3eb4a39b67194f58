// Package activity keeps the workspace activity log, an append-only CSV of
// the changes each command made.
package activity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Action names a kind of recorded change.
type Action string

const (
	ActionImport     Action = "import"
	ActionConfirm    Action = "confirm"
	ActionIgnore     Action = "ignore"
	ActionDelete     Action = "delete"
	ActionAdd        Action = "add"
	ActionCancel     Action = "cancel"
	ActionReactivate Action = "reactivate"
	ActionRestore    Action = "restore"
	ActionSnapshot   Action = "snapshot"
	ActionEdit       Action = "edit"
)

// Entry is one row in the activity log.
type Entry struct {
	Time    time.Time
	User    string
	Action  Action
	Target  string // batch id, candidate:<id> or subscription:<id>
	Details string
	Commit  string // snapshot commit hash, if any
}

// RelPath is the log location relative to the workspace root.
var RelPath = filepath.Join("logs", "activity-log.csv")

var header = []string{"time", "user", "action", "target", "details", "commit"}

const (
	colTime = iota
	colUser
	colAction
	colTarget
	colDetails
	colCommit
	numCols
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numCols)
	row[colTime] = e.Time.UTC().Format(time.RFC3339)
	row[colUser] = e.User
	row[colAction] = string(e.Action)
	row[colTarget] = e.Target
	row[colDetails] = e.Details
	row[colCommit] = e.Commit
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numCols {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numCols, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing time %q: %w", record[colTime], err)
	}
	return Entry{
		Time:    ts,
		User:    record[colUser],
		Action:  Action(record[colAction]),
		Target:  record[colTarget],
		Details: record[colDetails],
		Commit:  record[colCommit],
	}, nil
}

// Append adds entries to <root>/logs/activity-log.csv, writing the header
// when the file is new.
func Append(root string, entries ...Entry) error {
	path := filepath.Join(root, RelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat activity log: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(header); err != nil {
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

// Read returns the entries in <root>/logs/activity-log.csv, oldest first.
// A missing log reads as empty.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, RelPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numCols

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log: %w", err)
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

// Recent returns the last limit entries for user, newest first. An empty
// user matches everyone; limit <= 0 means no limit.
func Recent(entries []Entry, user string, limit int) []Entry {
	var out []Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if user != "" && entries[i].User != user {
			continue
		}
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
