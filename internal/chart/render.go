package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	// Width and Height are the PNG dimensions in pixels.
	Width  = 800
	Height = 400

	marginLeft   = 80.0
	marginRight  = 20.0
	marginTop    = 44.0
	marginBottom = 56.0

	yTicks = 5
)

// NotAvailable is printed in place of a bar that could not be computed.
const NotAvailable = "n/d"

// Palette holds the group colours, cycled when there are more groups.
var Palette = []color.Color{
	color.RGBA{R: 0x90, G: 0xee, B: 0x90, A: 0xff}, // lightgreen
	color.RGBA{R: 0xf0, G: 0x80, B: 0x80, A: 0xff}, // lightcoral
}

var (
	axisColor = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	gridColor = color.RGBA{R: 0xe5, G: 0xe5, B: 0xe5, A: 0xff}
)

// ErrEmptyTable is returned when there is nothing to draw.
var ErrEmptyTable = errors.New("chart table has no categories or groups")

// Renderer draws grouped bar charts. It is safe for concurrent use: font
// faces are not, so a fresh set is built for every chart.
type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font
}

// NewRenderer parses the embedded Go fonts.
func NewRenderer() (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold}, nil
}

func (r *Renderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// RenderGroupedBar draws t as a PNG: one cluster per category, one bar per
// group, each bar annotated with its value.
func (r *Renderer) RenderGroupedBar(t Table, opts Options) ([]byte, error) {
	if len(t.Categories) == 0 || len(t.Groups) == 0 {
		return nil, ErrEmptyTable
	}

	dc := gg.NewContext(Width, Height)
	dc.SetColor(color.White)
	dc.Clear()

	plotX, plotY := marginLeft, marginTop
	plotW := float64(Width) - marginLeft - marginRight
	plotH := float64(Height) - marginTop - marginBottom
	baseline := plotY + plotH

	yMax, step := axisScale(t.Max())
	scale := plotH / yMax

	small := r.face(r.regular, 11)
	dc.SetFontFace(small)

	// Grid and y tick labels.
	dc.SetLineWidth(1)
	for v := 0.0; v <= yMax+step/2; v += step {
		y := baseline - v*scale
		dc.SetColor(gridColor)
		dc.DrawLine(plotX, y, plotX+plotW, y)
		dc.Stroke()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(formatTick(v), plotX-6, y, 1, 0.5)
	}

	// Bars.
	clusterW := plotW / float64(len(t.Categories))
	barW := clusterW * 0.8 / float64(len(t.Groups))
	for i, cat := range t.Categories {
		clusterX := plotX + float64(i)*clusterW + clusterW*0.1
		for j := range t.Groups {
			x := clusterX + float64(j)*barW
			v := t.At(i, j)
			if !v.Valid || math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
				dc.SetColor(axisColor)
				dc.DrawStringAnchored(NotAvailable, x+barW/2, baseline-4, 0.5, 0)
				continue
			}
			h := math.Max(v.Value, 0) * scale
			dc.SetColor(Palette[j%len(Palette)])
			dc.DrawRectangle(x, baseline-h, barW, h)
			dc.Fill()
			dc.SetColor(color.Black)
			dc.DrawStringAnchored(fmt.Sprintf("%.0f", v.Value), x+barW/2, baseline-h-3, 0.5, 0)
		}
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(cat, plotX+float64(i)*clusterW+clusterW/2, baseline+6, 0.5, 1)
	}

	// Axes.
	dc.SetColor(axisColor)
	dc.SetLineWidth(1.5)
	dc.DrawLine(plotX, plotY, plotX, baseline)
	dc.DrawLine(plotX, baseline, plotX+plotW, baseline)
	dc.Stroke()

	medium := r.face(r.regular, 13)
	dc.SetFontFace(medium)
	if opts.XLabel != "" {
		dc.DrawStringAnchored(opts.XLabel, plotX+plotW/2, float64(Height)-10, 0.5, 0)
	}
	if opts.YLabel != "" {
		dc.Push()
		dc.RotateAbout(-math.Pi/2, 16, plotY+plotH/2)
		dc.DrawStringAnchored(opts.YLabel, 16, plotY+plotH/2, 0.5, 0.5)
		dc.Pop()
	}

	if opts.Title != "" {
		dc.SetFontFace(r.face(r.bold, 15))
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(opts.Title, float64(Width)/2, marginTop/2, 0.5, 0.5)
	}

	r.drawLegend(dc, t.Groups, opts.LegendTitle, plotX+plotW)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLegend places the legend box in the top-right corner of the plot.
func (r *Renderer) drawLegend(dc *gg.Context, groups []string, title string, right float64) {
	dc.SetFontFace(r.face(r.regular, 11))

	labels := make([]string, len(groups))
	width, _ := dc.MeasureString(title)
	for i, g := range groups {
		labels[i] = domain.StripOrdinal(g)
		w, _ := dc.MeasureString(labels[i])
		width = math.Max(width, w+18)
	}

	const lineH = 16.0
	rows := len(labels)
	if title != "" {
		rows++
	}
	boxW, boxH := width+16, float64(rows)*lineH+8
	x, y := right-boxW-8, marginTop+8

	dc.SetColor(color.White)
	dc.DrawRectangle(x, y, boxW, boxH)
	dc.FillPreserve()
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	dc.Stroke()

	cy := y + 4
	dc.SetColor(axisColor)
	if title != "" {
		dc.DrawStringAnchored(title, x+boxW/2, cy+lineH/2, 0.5, 0.5)
		cy += lineH
	}
	for i, label := range labels {
		dc.SetColor(Palette[i%len(Palette)])
		dc.DrawRectangle(x+8, cy+3, 12, lineH-6)
		dc.Fill()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(label, x+26, cy+lineH/2, 0, 0.5)
		cy += lineH
	}
}

// axisScale rounds peak up to a multiple of a 1-2-5 step.
func axisScale(peak float64) (top, step float64) {
	if peak <= 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return 1, 1.0 / yTicks
	}
	raw := peak / yTicks
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / mag; {
	case f <= 1:
		step = mag
	case f <= 2:
		step = 2 * mag
	case f <= 5:
		step = 5 * mag
	default:
		step = 10 * mag
	}
	top = math.Ceil(peak/step) * step
	if top < peak*1.05 {
		top += step
	}
	return top, step
}

func formatTick(v float64) string {
	if v != math.Trunc(v) {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.0f", v)
}
