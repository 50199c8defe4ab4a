package domain

import (
	"encoding/json"
	"math"
)

// CountField selects one of the three severity counts of an AggregatedRow.
type CountField int

const (
	Hospitalizations CountField = iota
	CriticalCare
	Deaths
)

// CountFields lists the severity counts in display order.
var CountFields = []CountField{Hospitalizations, CriticalCare, Deaths}

// Key is the metric name prefix for the count, e.g. "hopital" in
// "hopital_per_1M".
func (f CountField) Key() string {
	switch f {
	case Hospitalizations:
		return "hopital"
	case CriticalCare:
		return "critique"
	case Deaths:
		return "mort"
	default:
		return ""
	}
}

// Of returns the field's value in row.
func (f CountField) Of(row AggregatedRow) float64 {
	switch f {
	case Hospitalizations:
		return row.Hospital
	case CriticalCare:
		return row.ICU
	case Deaths:
		return row.Deaths
	default:
		return 0
	}
}

// Scale is a normalization applied to every count. A zero Factor means the
// raw count is passed through.
type Scale struct {
	Suffix string
	Factor float64
}

// Scales drives metric derivation. Adding a normalization is a matter of
// appending here.
var Scales = []Scale{
	{Suffix: "", Factor: 0},
	{Suffix: "_per_1M", Factor: 1e6},
	{Suffix: "_per_10M", Factor: 1e7},
}

// MetricDef describes one derived column.
type MetricDef struct {
	Key    string
	Source CountField
	Factor float64
}

// Normalized reports whether the metric divides by the population.
func (d MetricDef) Normalized() bool { return d.Factor != 0 }

// MetricDefs returns every derived column, grouped by scale then count.
func MetricDefs() []MetricDef {
	defs := make([]MetricDef, 0, len(Scales)*len(CountFields))
	for _, s := range Scales {
		for _, f := range CountFields {
			defs = append(defs, MetricDef{Key: f.Key() + s.Suffix, Source: f, Factor: s.Factor})
		}
	}
	return defs
}

// Metric is a derived value. Computable is false when the value is undefined,
// typically because the stratum's population is zero or unknown.
type Metric struct {
	Value      float64
	Computable bool
}

// NotComputable is the marker for undefined ratios.
var NotComputable = Metric{}

// MarshalJSON encodes non-computable metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Computable {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = NotComputable
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Metric{Value: v, Computable: true}
	return nil
}

// DerivedRow is an AggregatedRow with its derived metrics keyed by MetricDef.Key.
type DerivedRow struct {
	AggregatedRow
	Metrics map[string]Metric `json:"metrics"`
}

// Metric returns the named metric, or NotComputable if it does not exist.
func (r DerivedRow) Metric(key string) Metric {
	m, ok := r.Metrics[key]
	if !ok {
		return NotComputable
	}
	return m
}

// Derive computes every MetricDef for each row.
func Derive(rows []AggregatedRow) []DerivedRow {
	defs := MetricDefs()
	out := make([]DerivedRow, 0, len(rows))
	for _, row := range rows {
		metrics := make(map[string]Metric, len(defs))
		for _, def := range defs {
			metrics[def.Key] = compute(def, row)
		}
		out = append(out, DerivedRow{AggregatedRow: row, Metrics: metrics})
	}
	return out
}

func compute(def MetricDef, row AggregatedRow) Metric {
	count := def.Source.Of(row)
	if math.IsNaN(count) || math.IsInf(count, 0) {
		return NotComputable
	}
	if !def.Normalized() {
		return Metric{Value: count, Computable: true}
	}
	if row.Population <= 0 || math.IsNaN(row.Population) || math.IsInf(row.Population, 0) {
		return NotComputable
	}
	return Metric{Value: def.Factor * count / row.Population, Computable: true}
}
