package activity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Time:    testTime,
		User:    "u1",
		Action:  ActionImport,
		Target:  "5d1c0d1e-batch",
		Details: "spotify.csv: 5 added, 0 skipped, 1 created, 0 updated",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	data, err := os.ReadFile(filepath.Join(dir, RelPath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "time,user,action,target,details,commit", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2026-03-15T10:30:00Z,u1,import,"))
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	e2 := testEntry()
	e2.Action = ActionConfirm
	e2.Target = "candidate:3"
	require.NoError(t, Append(dir, e2))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionImport, entries[0].Action)
	assert.Equal(t, ActionConfirm, entries[1].Action)
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	original.Details = `quoted "name", with comma`
	original.Commit = "abc1234"
	require.NoError(t, Append(dir, original))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.True(t, original.Time.Equal(got.Time))
	assert.Equal(t, original.Details, got.Details)
	assert.Equal(t, original.Commit, got.Commit)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RelPath), []byte(strings.Join(header, ",")+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 6 fields")

	_, err = UnmarshalEntry([]string{"yesterday", "u1", "import", "", "", ""})
	assert.ErrorContains(t, err, "parsing time")
}

func TestRecent(t *testing.T) {
	var entries []Entry
	for i, u := range []string{"u1", "u2", "u1", "u1"} {
		e := testEntry()
		e.User = u
		e.Time = testTime.Add(time.Duration(i) * time.Minute)
		entries = append(entries, e)
	}

	got := Recent(entries, "u1", 2)
	require.Len(t, got, 2)
	assert.Equal(t, testTime.Add(3*time.Minute), got[0].Time)
	assert.Equal(t, testTime.Add(2*time.Minute), got[1].Time)

	assert.Len(t, Recent(entries, "", 0), 4)
	assert.Len(t, Recent(entries, "u2", 10), 1)
	assert.Empty(t, Recent(entries, "nobody", 0))
}
