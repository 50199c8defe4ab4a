package domain

import "time"

// Snapshot is the result of one pipeline run: the derived table plus the
// dates it covers.
type Snapshot struct {
	Day         Day          `json:"day"`
	Dates       []Day        `json:"dates"`
	Rows        []DerivedRow `json:"rows"`
	Skipped     int          `json:"skipped_rows"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewSnapshot runs classification, aggregation and derivation over a fetched
// dataset. day is the calendar day the dataset was fetched for.
func NewSnapshot(day Day, ds Dataset) (Snapshot, error) {
	if len(ds.Records) == 0 || len(ds.Dates) == 0 {
		return Snapshot{}, ErrEmptyDataset
	}

	records, err := Classify(ds.Records)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Day:         day,
		Dates:       ds.Dates,
		Rows:        Derive(Aggregate(records)),
		Skipped:     ds.Skipped,
		GeneratedAt: clock.Now(),
	}, nil
}

// Earliest returns the first retained date.
func (s Snapshot) Earliest() Day {
	if len(s.Dates) == 0 {
		return Day{}
	}
	return s.Dates[0]
}

// Latest returns the last retained date.
func (s Snapshot) Latest() Day {
	if len(s.Dates) == 0 {
		return Day{}
	}
	return s.Dates[len(s.Dates)-1]
}

// Row returns the derived row for a stratum.
func (s Snapshot) Row(st Stratum) (DerivedRow, bool) {
	for _, r := range s.Rows {
		if r.Stratum == st {
			return r, true
		}
	}
	return DerivedRow{}, false
}
