package draft

import (
	"fmt"
	"sort"
)

// CodeDuplicateStartTime flags two visits sharing an identical
// (date, start_time) pair.
const CodeDuplicateStartTime = "DUPLICATE_START_TIME"

// revalidate rebuilds HardErrors from scratch. Called after every mutation;
// a single O(n) pass keyed by date and start time.
func (d *Draft) revalidate() {
	d.HardErrors = nil

	seen := make(map[string][]int, len(d.Visits))
	for _, v := range d.Visits {
		key := v.Date + "\x00" + v.StartTime
		seen[key] = append(seen[key], v.RowNum)
	}

	var dupRows []int
	for _, rows := range seen {
		if len(rows) > 1 {
			dupRows = append(dupRows, rows...)
		}
	}
	if len(dupRows) == 0 {
		return
	}
	sort.Ints(dupRows)
	d.HardErrors = append(d.HardErrors, HardError{
		Code:    CodeDuplicateStartTime,
		Message: fmt.Sprintf("%d visits share the same date and start time", len(dupRows)),
		RowNums: dupRows,
	})
}
