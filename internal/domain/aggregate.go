package domain

import "math"

type dailyKey struct {
	Stratum
	Date Day
}

type dailyTotals struct {
	hospital, icu, deaths float64
	population            float64
	populationKnown       bool
}

// Aggregate collapses normalized records into one row per stratum.
//
// Counts are summed per day and then summed across the window. Population is
// summed per day (sub-rows partition the stratum) and then averaged across the
// days on which it was reported. Strata with no records still get a row, with
// zero counts and zero population.
func Aggregate(records []Record) []AggregatedRow {
	daily := make(map[dailyKey]*dailyTotals)
	for _, r := range records {
		key := dailyKey{Stratum: Stratum{Age: r.Age, Status: r.Status}, Date: r.Date}
		t, ok := daily[key]
		if !ok {
			t = &dailyTotals{}
			daily[key] = t
		}
		t.hospital += r.Hospital
		t.icu += r.ICU
		t.deaths += r.Deaths
		if !math.IsNaN(r.Population) {
			t.population += r.Population
			t.populationKnown = true
		}
	}

	type windowTotals struct {
		row           AggregatedRow
		populationSum float64
		populationN   int
	}
	byStratum := make(map[Stratum]*windowTotals)
	for key, t := range daily {
		w, ok := byStratum[key.Stratum]
		if !ok {
			w = &windowTotals{row: AggregatedRow{Stratum: key.Stratum}}
			byStratum[key.Stratum] = w
		}
		w.row.Hospital += t.hospital
		w.row.ICU += t.icu
		w.row.Deaths += t.deaths
		w.row.Days++
		if t.populationKnown {
			w.populationSum += t.population
			w.populationN++
		}
	}

	strata := Strata()
	out := make([]AggregatedRow, 0, len(strata))
	for _, s := range strata {
		w, ok := byStratum[s]
		if !ok {
			out = append(out, AggregatedRow{Stratum: s})
			continue
		}
		if w.populationN > 0 {
			w.row.Population = w.populationSum / float64(w.populationN)
		}
		out = append(out, w.row)
	}
	return out
}
