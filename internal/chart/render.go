package chart

import (
	"errors"
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNotReady is returned by the image renderers when there is nothing to
// plot. Callers fall back to the JSON view.
var ErrNotReady = errors.New("chart has no data or no valid axis pair")

// Size is an image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches the embedded chart in the chat transcript.
var DefaultSize = Size{Width: 800, Height: 400}

var barColor = drawing.Color{R: 79, G: 70, B: 229, A: 255}

// SVG writes the chart as SVG.
func (c Chart) SVG(w io.Writer, size Size) error {
	return c.render(w, size, gochart.SVG)
}

// PNG writes the chart as PNG.
func (c Chart) PNG(w io.Writer, size Size) error {
	return c.render(w, size, gochart.PNG)
}

func (c Chart) render(w io.Writer, size Size, rp gochart.RendererProvider) (err error) {
	if !c.Ready() {
		return ErrNotReady
	}
	bc := c.barChart(size)

	// go-chart panics on some degenerate inputs; report those as errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to render chart: %v", r)
		}
	}()
	if err := bc.Render(rp, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func (c Chart) barChart(size Size) gochart.BarChart {
	if size.Width <= 0 {
		size.Width = DefaultSize.Width
	}
	if size.Height <= 0 {
		size.Height = DefaultSize.Height
	}

	domain := YDomain(c.data, c.sel.Y)
	var ticks []gochart.Tick
	for _, t := range Ticks(domain) {
		ticks = append(ticks, gochart.Tick{Value: t.Value, Label: t.Label})
	}

	bars := c.Bars()
	values := make([]gochart.Value, 0, len(bars))
	for _, b := range bars {
		values = append(values, gochart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: gochart.Style{FillColor: barColor, StrokeColor: barColor, StrokeWidth: 1},
		})
	}

	barWidth := size.Width / (2*len(values) + 1)
	barWidth = max(4, min(barWidth, 60))

	return gochart.BarChart{
		Title:      fmt.Sprintf("%s by %s", c.sel.Y, c.sel.X),
		Width:      size.Width,
		Height:     size.Height,
		BarWidth:   barWidth,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		XAxis:      gochart.Style{StrokeWidth: 1},
		YAxis: gochart.YAxis{
			Name:  c.sel.Y,
			Style: gochart.Style{StrokeWidth: 1},
			Range: &gochart.ContinuousRange{Min: domain.Min, Max: domain.Max},
			Ticks: ticks,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatNumber(f)
				}
				return fmt.Sprint(v)
			},
		},
		Bars: values,
	}
}
