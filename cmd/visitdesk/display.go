package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/customer"
	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/refdata"
)

// Column widths for the draft review table. Name and memo columns carry CJK
// text, so padding goes through runewidth, not len().
const (
	colRow    = 4
	colDate   = 11
	colTime   = 12
	colCourse = 12
	colType   = 14
	colMemo   = 24
)

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncate shortens s to maxWidth display cells, ending with "…" if cut.
func truncate(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

func renderDraft(w io.Writer, d *draft.Draft, labels refdata.Labels) {
	fmt.Fprintf(w, "%s %s %s %s %s %s\n", //nolint:errcheck
		padRight("row", colRow),
		padRight("date", colDate),
		padRight("time", colTime),
		padRight("course", colCourse),
		padRight("type", colType),
		"memo")

	for _, v := range d.Visits {
		timeStr := v.StartTime
		if v.EndTime != "" {
			timeStr += "-" + v.EndTime
		}
		if v.TimeHint != draft.TimeFixed {
			timeStr += "?"
		}
		typeLabel := labels.VisitTypes[string(v.VisitType)]
		if typeLabel == "" {
			typeLabel = string(v.VisitType)
		}
		fmt.Fprintf(w, "%s %s %s %s %s %s\n", //nolint:errcheck
			padRight(fmt.Sprintf("%d", v.RowNum), colRow),
			padRight(v.Date, colDate),
			padRight(timeStr, colTime),
			padRight(truncate(v.Course, colCourse), colCourse),
			padRight(truncate(typeLabel, colType), colType),
			truncate(v.Memo, colMemo))
	}

	for _, warn := range d.Warnings {
		fmt.Fprintf(w, "  note: %s (rows %s)\n", warn.Message, joinInts(warn.RowNums)) //nolint:errcheck
	}
	for _, he := range d.HardErrors {
		fmt.Fprintf(w, "  BLOCKED [%s]: %s (rows %s)\n", he.Code, he.Message, joinInts(he.RowNums)) //nolint:errcheck
	}
}

func renderCandidates(w io.Writer, cands []customer.Candidate) {
	for i, c := range cands {
		fmt.Fprintf(w, "%2d. %s (%s)\n", i+1, padRight(c.Name, 16), c.Kana) //nolint:errcheck
		if c.Address != "" {
			fmt.Fprintf(w, "    %s\n", c.Address) //nolint:errcheck
		}
		if c.Phone != "" {
			fmt.Fprintf(w, "    %s\n", c.Phone) //nolint:errcheck
		}
	}
}

func renderCommitResult(w io.Writer, res *commit.Result) {
	if res.Success {
		fmt.Fprintf(w, "Committed %d visits (request %s)\n", len(res.PerItem), res.RequestID) //nolint:errcheck
	} else {
		fmt.Fprintf(w, "Commit was not fully accepted (request %s)\n", res.RequestID) //nolint:errcheck
	}
	for _, row := range res.PerItem {
		switch row.Status {
		case commit.RowOK:
			fmt.Fprintf(w, "  row %d: ok\n", row.Row) //nolint:errcheck
		default:
			fmt.Fprintf(w, "  row %d: %s (%s)\n", row.Row, row.Status, row.Reason) //nolint:errcheck
		}
	}
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}
