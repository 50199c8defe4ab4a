// Package dashboard builds the dashboard view model and renders its HTML.
package dashboard

import (
	"fmt"

	"github.com/couchcryptid/covid-severity-etl/internal/chart"
	"github.com/couchcryptid/covid-severity-etl/internal/domain"
)

const (
	XLabel      = "Âge"
	LegendTitle = "Statut vaccinal"
)

var countNames = map[domain.CountField]string{
	domain.Hospitalizations: "Hospitalisations",
	domain.CriticalCare:     "Entrées en soins critiques",
	domain.Deaths:           "Décès",
}

// scaleText holds the per-scale wording, indexed like domain.Scales.
var scaleText = []struct {
	heading string
	intro   string
	suffix  string
	yLabel  string
}{
	{
		heading: "Nombres observés",
		intro:   "Cas recensés sur la période, sans normalisation.",
		yLabel:  "Nombre de cas",
	},
	{
		heading: "Pour 1 million d'habitants",
		intro:   "Cas rapportés à la population moyenne de chaque groupe, ramenés à 1 million de personnes.",
		suffix:  " pour 1 million d'habitants",
		yLabel:  "Cas pour 1 million",
	},
	{
		heading: "Pour 10 millions d'habitants",
		intro:   "Même calcul, ramené à 10 millions de personnes.",
		suffix:  " pour 10 millions d'habitants",
		yLabel:  "Cas pour 10 millions",
	},
}

// Panel is one chart of the dashboard.
type Panel struct {
	Metric string
	Title  string
	YLabel string
}

// Section groups the three panels sharing a scale.
type Section struct {
	Heading string
	Intro   string
	Panels  []Panel
}

// Sections lists the dashboard layout: absolute counts, then per 1M, then
// per 10M, each with hospitalisations, critical care and deaths. Titles end
// with the observed date range.
func Sections(from, to domain.Day) []Section {
	out := make([]Section, 0, len(domain.Scales))
	for i, scale := range domain.Scales {
		text := scaleText[i]
		sec := Section{Heading: text.heading, Intro: text.intro}
		for _, field := range domain.CountFields {
			sec.Panels = append(sec.Panels, Panel{
				Metric: field.Key() + scale.Suffix,
				Title:  fmt.Sprintf("%s%s du %s au %s", countNames[field], text.suffix, from.Short(), to.Short()),
				YLabel: text.yLabel,
			})
		}
		out = append(out, sec)
	}
	return out
}

// FindPanel returns the panel drawing metric.
func FindPanel(from, to domain.Day, metric string) (Panel, bool) {
	for _, sec := range Sections(from, to) {
		for _, p := range sec.Panels {
			if p.Metric == metric {
				return p, true
			}
		}
	}
	return Panel{}, false
}

// ChartOptions returns the labels used to draw a panel.
func (p Panel) ChartOptions() chart.Options {
	return chart.Options{
		Title:       p.Title,
		XLabel:      XLabel,
		YLabel:      p.YLabel,
		LegendTitle: LegendTitle,
	}
}

// RenderPanel draws one panel of snap.
func RenderPanel(r chart.GroupedBarRenderer, snap domain.Snapshot, p Panel) ([]byte, error) {
	png, err := r.RenderGroupedBar(chart.FromSnapshot(snap, p.Metric), p.ChartOptions())
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Metric, err)
	}
	return png, nil
}
