package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the ISO date format used by the DREES feed.
const DayLayout = "2006-01-02"

// Day is a calendar date at UTC midnight. It is comparable and usable as a map key.
type Day struct {
	t time.Time
}

// NewDay returns the Day for the given calendar date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar date in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses an ISO "YYYY-MM-DD" date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// Time returns the day as UTC midnight.
func (d Day) Time() time.Time { return d.t }

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d.t.IsZero() }

// Before reports whether d falls strictly before other.
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }

// String formats the day as YYYY-MM-DD.
func (d Day) String() string { return d.t.Format(DayLayout) }

// Short formats the day as DD/MM, the form used in chart titles.
func (d Day) Short() string { return d.t.Format("02/01") }

// MarshalText encodes the day as YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a YYYY-MM-DD date; csvutil and encoding/json use it.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RawRecord is one parsed row of the DREES feed, before classification.
type RawRecord struct {
	Date       Day
	Age        string // bracket code, e.g. "[20,39]"
	VacStatus  string
	Hospital   float64 // hc_pcr
	ICU        float64 // sc_pcr
	Deaths     float64 // dc_pcr
	Population float64 // effectif; NaN when the feed left it blank
}

// Record is a RawRecord with age and status mapped to their labels.
type Record struct {
	Date       Day
	Age        AgeLabel
	Status     StatusLabel
	Hospital   float64
	ICU        float64
	Deaths     float64
	Population float64
}

// Stratum identifies one (age, status) combination.
type Stratum struct {
	Age    AgeLabel    `json:"age"`
	Status StatusLabel `json:"status"`
}

// Strata lists every stratum in display order: age ascending, unvaccinated first.
func Strata() []Stratum {
	out := make([]Stratum, 0, len(Ages)*len(Statuses))
	for _, age := range Ages {
		for _, status := range Statuses {
			out = append(out, Stratum{Age: age, Status: status})
		}
	}
	return out
}

// AggregatedRow holds the window totals for one stratum.
type AggregatedRow struct {
	Stratum
	Hospital float64 `json:"hc_pcr"`
	ICU      float64 `json:"sc_pcr"`
	Deaths   float64 `json:"dc_pcr"`
	// Population is the mean daily population over the days the stratum was
	// observed, or 0 when it was never reported.
	Population float64 `json:"effectif"`
	Days       int     `json:"days"`
}

// Dataset is the windowed output of a fetch: the retained records and the
// sorted distinct dates they cover.
type Dataset struct {
	Records []RawRecord
	Dates   []Day
	Skipped int
}
