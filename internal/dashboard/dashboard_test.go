package dashboard

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/covid-severity-etl/internal/chart"
	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInfoURL = "https://example.org/dataset/information/"

var (
	from = domain.NewDay(2021, 2, 28)
	to   = domain.NewDay(2021, 3, 14)
)

func testSnapshot() domain.Snapshot {
	rows := domain.Derive([]domain.AggregatedRow{
		{Stratum: domain.Stratum{Age: domain.Age20To39, Status: domain.Unvaccinated}, Hospital: 30, Population: 1000},
	})
	return domain.Snapshot{
		Day:         domain.NewDay(2021, 3, 15),
		Dates:       []domain.Day{from, domain.NewDay(2021, 3, 1), to},
		Rows:        rows,
		Skipped:     4,
		GeneratedAt: time.Date(2021, 3, 15, 9, 5, 0, 0, time.UTC),
	}
}

func TestSections_Layout(t *testing.T) {
	sections := Sections(from, to)
	require.Len(t, sections, 3)

	var metrics []string
	for _, sec := range sections {
		require.Len(t, sec.Panels, 3)
		for _, p := range sec.Panels {
			metrics = append(metrics, p.Metric)
			assert.True(t, strings.HasSuffix(p.Title, " du 28/02 au 14/03"), p.Title)
		}
	}
	assert.Equal(t, []string{
		"hopital", "critique", "mort",
		"hopital_per_1M", "critique_per_1M", "mort_per_1M",
		"hopital_per_10M", "critique_per_10M", "mort_per_10M",
	}, metrics)

	assert.Equal(t, "Hospitalisations du 28/02 au 14/03", sections[0].Panels[0].Title)
	assert.Equal(t, "Décès pour 10 millions d'habitants du 28/02 au 14/03", sections[2].Panels[2].Title)
}

func TestFindPanel(t *testing.T) {
	p, ok := FindPanel(from, to, "critique_per_1M")
	require.True(t, ok)
	assert.Equal(t, "Cas pour 1 million", p.YLabel)

	opts := p.ChartOptions()
	assert.Equal(t, XLabel, opts.XLabel)
	assert.Equal(t, LegendTitle, opts.LegendTitle)
	assert.Equal(t, p.Title, opts.Title)

	_, ok = FindPanel(from, to, "nope")
	assert.False(t, ok)
}

type recordingRenderer struct {
	table chart.Table
	opts  chart.Options
	err   error
}

func (r *recordingRenderer) RenderGroupedBar(t chart.Table, opts chart.Options) ([]byte, error) {
	r.table, r.opts = t, opts
	return []byte("png"), r.err
}

func TestRenderPanel(t *testing.T) {
	snap := testSnapshot()
	p, ok := FindPanel(snap.Earliest(), snap.Latest(), "hopital_per_1M")
	require.True(t, ok)

	r := &recordingRenderer{}
	data, err := RenderPanel(r, snap, p)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, chart.Value{Value: 30000, Valid: true}, r.table.At(1, 0))
	assert.Equal(t, p.Title, r.opts.Title)

	r.err = errors.New("boom")
	_, err = RenderPanel(r, snap, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hopital_per_1M")
}

func TestRender_Dashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, NewPage(testSnapshot(), testInfoURL)))

	html := buf.String()
	assert.Contains(t, html, `href="`+testInfoURL+`"`)
	assert.Contains(t, html, "(28/02-14/03)")
	assert.Contains(t, html, "3 derniers jours")
	assert.Equal(t, 9, strings.Count(html, "<img "))
	assert.Contains(t, html, `/charts/mort_per_10M.png?v=2021-03-15`)
	assert.Contains(t, html, "4 lignes mal formées ignorées")
	assert.Contains(t, html, "15/03/2021 09:05")
}

func TestRenderError(t *testing.T) {
	var buf bytes.Buffer
	err := RenderError(&buf, ErrorPage{
		Sidebar: Sidebar{InfoURL: testInfoURL},
		Message: "dataset fetch failed: <timeout>",
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Données indisponibles")
	assert.Contains(t, html, "dataset fetch failed: &lt;timeout&gt;")
	assert.NotContains(t, html, "<img ")
}
