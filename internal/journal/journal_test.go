package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/draft"
)

func TestFilename_SanitizesAndTimestamps(t *testing.T) {
	ts := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "佐藤花子-20260105-093000.json", Filename("佐藤 花子", ts))
	assert.Equal(t, "unnamed-20260105-093000.json", Filename("///", ts))
}

func TestWrite_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	e := &Entry{
		CustomerID:   "c-1",
		CustomerName: "佐藤花子",
		RequestID:    "req-1",
		ContentHash:  "abc123",
		Source:       "email_interpret",
		Committed:    true,
		Visits: []draft.VisitCandidate{
			{RowNum: 1, Date: "2026-01-05", StartTime: "09:00"},
		},
		Rows:        []commit.RowResult{{Row: 1, Status: commit.RowOK}},
		AttemptedAt: time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
	}

	path, err := Write(dir, e)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "佐藤花子-20260105-093000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Entry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *e, got)
}

func TestWrite_CreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "journal")
	_, err := Write(dir, &Entry{CustomerName: "x", AttemptedAt: time.Now()})
	require.NoError(t, err)
}
