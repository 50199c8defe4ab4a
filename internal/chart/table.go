// Package chart draws grouped bar charts as PNG images.
package chart

import (
	"github.com/couchcryptid/covid-severity-etl/internal/domain"
)

// Value is one bar. Valid is false when the value could not be computed;
// such bars are not drawn and are labelled "n/d".
type Value struct {
	Value float64
	Valid bool
}

// Table is a tidy category × group grid. Values[i][j] is the bar of
// Groups[j] within Categories[i].
type Table struct {
	Categories []string
	Groups     []string
	Values     [][]Value
}

// At returns the value for category i and group j.
func (t Table) At(i, j int) Value {
	if i >= len(t.Values) || j >= len(t.Values[i]) {
		return Value{}
	}
	return t.Values[i][j]
}

// Max returns the largest valid value, or 0 when there is none.
func (t Table) Max() float64 {
	var m float64
	for _, row := range t.Values {
		for _, v := range row {
			if v.Valid && v.Value > m {
				m = v.Value
			}
		}
	}
	return m
}

// Options holds the chart labels.
type Options struct {
	Title       string
	XLabel      string
	YLabel      string
	LegendTitle string
}

// FromSnapshot builds the table for one derived metric: age brackets on the
// x-axis, one bar per vaccination status.
func FromSnapshot(snap domain.Snapshot, metricKey string) Table {
	t := Table{
		Categories: make([]string, len(domain.Ages)),
		Groups:     make([]string, len(domain.Statuses)),
		Values:     make([][]Value, len(domain.Ages)),
	}
	for j, s := range domain.Statuses {
		t.Groups[j] = string(s)
	}
	for i, age := range domain.Ages {
		t.Categories[i] = string(age)
		t.Values[i] = make([]Value, len(domain.Statuses))
		for j, status := range domain.Statuses {
			row, ok := snap.Row(domain.Stratum{Age: age, Status: status})
			if !ok {
				continue
			}
			m := row.Metric(metricKey)
			t.Values[i][j] = Value{Value: m.Value, Valid: m.Computable}
		}
	}
	return t
}
