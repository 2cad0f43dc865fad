package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/refdata"
)

func TestPadRight_CJKWidth(t *testing.T) {
	// Each CJK rune occupies two display cells, so 3 runes need only 2
	// spaces of padding to reach width 8.
	padded := padRight("田中犬", 8)
	assert.Equal(t, "田中犬  ", padded)

	// ASCII of equal rune count gets 5 spaces.
	assert.Equal(t, "abc     ", padRight("abc", 8))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "long tex…", truncate("long text here", 9))
}

func TestRenderDraft_MarksUnconfirmedTimes(t *testing.T) {
	d := draft.New([]draft.VisitCandidate{
		{RowNum: 1, Date: "2026-09-01", StartTime: "10:00", TimeHint: draft.TimeFixed, VisitType: draft.VisitSitting},
		{RowNum: 2, Date: "2026-09-02", StartTime: "10:00", TimeHint: draft.TimeUnspecified, VisitType: draft.VisitSitting},
	}, nil)

	var sb strings.Builder
	renderDraft(&sb, d, refdata.Labels{VisitTypes: map[string]string{"sitting": "シッティング"}})
	out := sb.String()

	require.Contains(t, out, "10:00?")
	assert.Contains(t, out, "シッティング")
	// The fixed row must not carry the marker.
	lines := strings.Split(out, "\n")
	assert.NotContains(t, lines[1], "?")
}

func TestRenderDraft_ShowsHardErrors(t *testing.T) {
	d := draft.New([]draft.VisitCandidate{
		{RowNum: 1, Date: "2026-09-01", StartTime: "10:00"},
		{RowNum: 2, Date: "2026-09-01", StartTime: "10:00"},
	}, nil)
	require.True(t, d.HasHardErrors())

	var sb strings.Builder
	renderDraft(&sb, d, refdata.Labels{})

	assert.Contains(t, sb.String(), "BLOCKED [DUPLICATE_START_TIME]")
	assert.Contains(t, sb.String(), "rows 1,2")
}

func TestRenderCommitResult_MixedRows(t *testing.T) {
	var sb strings.Builder
	renderCommitResult(&sb, &commit.Result{
		RequestID: "req-1",
		Success:   false,
		PerItem: []commit.RowResult{
			{Row: 1, Status: commit.RowOK},
			{Row: 2, Status: commit.RowFailed, Reason: "slot taken"},
		},
	})

	out := sb.String()
	assert.Contains(t, out, "not fully accepted")
	assert.Contains(t, out, "row 1: ok")
	assert.Contains(t, out, "row 2: failed (slot taken)")
}
