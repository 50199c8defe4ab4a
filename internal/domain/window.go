package domain

import "sort"

// WindowSize is the number of most recent distinct dates kept for aggregation.
const WindowSize = 15

// Window keeps the records falling on the size most recent distinct dates.
// It returns the retained records in input order and the retained dates sorted
// ascending. Inputs with fewer than size dates are returned whole.
func Window(records []RawRecord, size int) ([]RawRecord, []Day) {
	seen := make(map[Day]struct{})
	for _, r := range records {
		seen[r.Date] = struct{}{}
	}

	dates := make([]Day, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if size > 0 && len(dates) > size {
		dates = dates[len(dates)-size:]
	}

	keep := make(map[Day]struct{}, len(dates))
	for _, d := range dates {
		keep[d] = struct{}{}
	}

	out := make([]RawRecord, 0, len(records))
	for _, r := range records {
		if _, ok := keep[r.Date]; ok {
			out = append(out, r)
		}
	}
	return out, dates
}
