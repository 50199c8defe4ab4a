package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() Table {
	return Table{
		Categories: []string{"0-19 ans", "20-39 ans"},
		Groups:     []string{string(domain.Unvaccinated), string(domain.Vaccinated)},
		Values: [][]Value{
			{{Value: 12, Valid: true}, {Value: 3, Valid: true}},
			{{Value: 40, Valid: true}, {}},
		},
	}
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRenderGroupedBar_PNG(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	data, err := r.RenderGroupedBar(testTable(), Options{
		Title:       "Hospitalisations du 01/03 au 15/03",
		XLabel:      "Âge",
		YLabel:      "Nombre de cas",
		LegendTitle: "Statut vaccinal",
	})
	require.NoError(t, err)

	img := decodePNG(t, data)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
	assert.True(t, containsColor(img, Palette[0]), "unvaccinated bars use the first palette colour")
	assert.True(t, containsColor(img, Palette[1]), "vaccinated bars use the second palette colour")
}

func TestRenderGroupedBar_AllNonComputable(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	tbl := Table{
		Categories: []string{"80 ans et plus"},
		Groups:     []string{string(domain.Unvaccinated), string(domain.Vaccinated)},
		Values:     [][]Value{{{}, {}}},
	}
	data, err := r.RenderGroupedBar(tbl, Options{})
	require.NoError(t, err)
	decodePNG(t, data)
}

func TestRenderGroupedBar_EmptyTable(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, err = r.RenderGroupedBar(Table{}, Options{})
	require.ErrorIs(t, err, ErrEmptyTable)
}

func TestAxisScale(t *testing.T) {
	cases := []struct {
		peak, top, step float64
	}{
		{0, 1, 0.2},
		{40, 50, 10},
		{95, 100, 20},
		{300000, 400000, 100000},
		{7, 8, 2},
	}
	for _, tc := range cases {
		top, step := axisScale(tc.peak)
		assert.InDelta(t, tc.top, top, 1e-9, "peak %v", tc.peak)
		assert.InDelta(t, tc.step, step, 1e-9, "peak %v", tc.peak)
		assert.GreaterOrEqual(t, top, tc.peak)
	}
}

func TestFromSnapshot(t *testing.T) {
	rows := domain.Derive([]domain.AggregatedRow{
		{Stratum: domain.Stratum{Age: domain.Age0To19, Status: domain.Unvaccinated}, Hospital: 5, Population: 1000},
		{Stratum: domain.Stratum{Age: domain.Age0To19, Status: domain.Vaccinated}, Hospital: 2},
	})
	snap := domain.Snapshot{Rows: rows}

	tbl := FromSnapshot(snap, "hopital_per_1M")
	require.Len(t, tbl.Categories, len(domain.Ages))
	assert.Equal(t, []string{"[0]. Non vaccinés", "[1]. vacciné"}, tbl.Groups)
	assert.Equal(t, Value{Value: 5000, Valid: true}, tbl.At(0, 0))
	assert.False(t, tbl.At(0, 1).Valid, "zero population is not computable")
	assert.False(t, tbl.At(4, 0).Valid, "absent strata have no value")
	assert.InDelta(t, 5000.0, tbl.Max(), 1e-9)
}

func containsColor(img image.Image, want color.Color) bool {
	wr, wg, wb, _ := want.RGBA()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r == wr && g == wg && bl == wb {
				return true
			}
		}
	}
	return false
}
