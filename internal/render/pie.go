// Package render draws session reports as pie charts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/andresmejia3/posture/internal/log"
)

// ChartKind selects how legend labels are formatted.
type ChartKind string

const (
	KindGesture   ChartKind = "gesture"   // raw counts
	KindDirection ChartKind = "direction" // percentage of total
)

// PieChart is one chart to draw. Colors and Explode are optional; when set
// they must be parallel to Sizes.
type PieChart struct {
	Labels  []string
	Sizes   []float64
	Colors  []color.Color
	Explode []float64 // wedge offset as a fraction of the radius
	Path    string
	Kind    ChartKind
}

var palette = []color.Color{
	color.RGBA{0x1f, 0x77, 0xb4, 0xff},
	color.RGBA{0xff, 0x7f, 0x0e, 0xff},
	color.RGBA{0x2c, 0xa0, 0x2c, 0xff},
	color.RGBA{0xd6, 0x27, 0x28, 0xff},
	color.RGBA{0x94, 0x67, 0xbd, 0xff},
	color.RGBA{0x8c, 0x56, 0x4b, 0xff},
}

const (
	canvasW   = 1000
	canvasH   = 700
	radius    = 280.0
	legendX   = 20.0
	legendY   = 24.0
	rowHeight = 24.0
	swatch    = 14.0
)

// Pie draws c as a PNG at c.Path and returns the path. It never panics and
// never returns an error: invalid input or a drawing failure is logged and
// reported as ok == false.
func Pie(c PieChart) (path string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("pie chart failed", "path", c.Path, "panic", r)
			path, ok = "", false
		}
	}()

	total, err := c.validate()
	if err != nil {
		log.Warn("no chart drawn", "path", c.Path, "reason", err)
		return "", false
	}

	dc := gg.NewContext(canvasW, canvasH)
	dc.SetColor(color.White)
	dc.Clear()

	cx, cy := float64(canvasW)*0.6, float64(canvasH)/2
	// Start at 12 o'clock and run counter-clockwise.
	start := -math.Pi / 2
	for i, s := range c.Sizes {
		if s == 0 {
			continue
		}
		sweep := 2 * math.Pi * s / total
		end := start - sweep
		mid := start - sweep/2

		off := 0.0
		if c.Explode != nil {
			off = c.Explode[i] * radius
		}
		ox, oy := cx+math.Cos(mid)*off, cy+math.Sin(mid)*off

		dc.MoveTo(ox, oy)
		dc.DrawArc(ox, oy, radius, end, start)
		dc.ClosePath()
		dc.SetColor(c.color(i))
		dc.Fill()

		start = end
	}

	for i, label := range c.legend(total) {
		y := legendY + float64(i)*rowHeight
		dc.DrawRectangle(legendX, y, swatch, swatch)
		dc.SetColor(c.color(i))
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(label, legendX+swatch+8, y+swatch/2, 0, 0.35)
	}

	if err := dc.SavePNG(c.Path); err != nil {
		log.Warn("failed to save chart", "path", c.Path, "err", err)
		return "", false
	}
	return c.Path, true
}

func (c PieChart) validate() (float64, error) {
	if c.Path == "" {
		return 0, errors.New("no output path")
	}
	if len(c.Sizes) == 0 {
		return 0, errors.New("no data to display")
	}
	if len(c.Labels) != len(c.Sizes) {
		return 0, fmt.Errorf("number of sizes (%d) and labels (%d) must be the same", len(c.Sizes), len(c.Labels))
	}
	if c.Colors != nil && len(c.Colors) != len(c.Sizes) {
		return 0, fmt.Errorf("number of colors (%d) and sizes (%d) must be the same", len(c.Colors), len(c.Sizes))
	}
	if c.Explode != nil && len(c.Explode) != len(c.Sizes) {
		return 0, fmt.Errorf("number of explode offsets (%d) and sizes (%d) must be the same", len(c.Explode), len(c.Sizes))
	}

	var total float64
	for _, s := range c.Sizes {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, errors.New("sizes must be finite")
		}
		if s < 0 {
			return 0, errors.New("sizes must not be negative")
		}
		total += s
	}
	if total == 0 {
		return 0, errors.New("no data to display")
	}
	return total, nil
}

// legend formats one label per wedge: raw counts for gesture charts,
// percentage of total otherwise.
func (c PieChart) legend(total float64) []string {
	out := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		s := c.Sizes[i]
		if c.Kind == KindGesture {
			out[i] = fmt.Sprintf("%s, %1.1f", l, math.Trunc(s))
		} else {
			out[i] = fmt.Sprintf("%s, %1.1f%%", l, s/total*100)
		}
	}
	return out
}

func (c PieChart) color(i int) color.Color {
	if c.Colors != nil {
		return c.Colors[i]
	}
	return palette[i%len(palette)]
}
