package domain

import "strings"

// AgeLabel is the human label of an age bracket.
type AgeLabel string

const (
	Age0To19   AgeLabel = "0-19 ans"
	Age20To39  AgeLabel = "20-39 ans"
	Age40To59  AgeLabel = "40-59 ans"
	Age60To79  AgeLabel = "60-79 ans"
	Age80AndUp AgeLabel = "80 ans et plus"
)

// Ages lists the age labels in display order.
var Ages = []AgeLabel{Age0To19, Age20To39, Age40To59, Age60To79, Age80AndUp}

// ageCodes maps the DREES bracket codes to labels. Note the ";" in the last code.
var ageCodes = map[string]AgeLabel{
	"[0,19]":  Age0To19,
	"[20,39]": Age20To39,
	"[40,59]": Age40To59,
	"[60,79]": Age60To79,
	"[80;+]":  Age80AndUp,
}

// StatusLabel is the collapsed vaccination status.
type StatusLabel string

const (
	Unvaccinated StatusLabel = "[0]. Non vaccinés"
	Vaccinated   StatusLabel = "[1]. vacciné"
)

// Statuses lists the status labels in display order.
var Statuses = []StatusLabel{Unvaccinated, Vaccinated}

// unvaccinatedMarker is the substring identifying unvaccinated rows.
const unvaccinatedMarker = "Non-vaccinés"

// ordinalPrefixLen is the width of the "[n]. " prefix on status labels.
const ordinalPrefixLen = 5

// ClassifyStatus maps a raw vac_statut value to one of two buckets. Every
// status other than unvaccinated, partial doses included, counts as vaccinated.
func ClassifyStatus(s string) StatusLabel {
	if strings.Contains(s, unvaccinatedMarker) {
		return Unvaccinated
	}
	return Vaccinated
}

// ClassifyAge maps a bracket code to its label. Codes are matched exactly.
func ClassifyAge(code string) (AgeLabel, error) {
	label, ok := ageCodes[code]
	if !ok {
		return "", &ClassificationError{Code: code}
	}
	return label, nil
}

// Classify relabels every record. It fails on the first unknown age code.
func Classify(raws []RawRecord) ([]Record, error) {
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		age, err := ClassifyAge(raw.Age)
		if err != nil {
			return nil, &ClassificationError{Code: raw.Age, Date: raw.Date}
		}
		out = append(out, Record{
			Date:       raw.Date,
			Age:        age,
			Status:     ClassifyStatus(raw.VacStatus),
			Hospital:   raw.Hospital,
			ICU:        raw.ICU,
			Deaths:     raw.Deaths,
			Population: raw.Population,
		})
	}
	return out, nil
}

// StripOrdinal removes the fixed-width "[n]. " prefix from a label, if present.
func StripOrdinal(label string) string {
	r := []rune(label)
	if len(r) > ordinalPrefixLen && r[0] == '[' && r[2] == ']' {
		return string(r[ordinalPrefixLen:])
	}
	return label
}
