package vitals

import (
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var seriesColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorRed,
}

// Title is "<type> Trend", with the unit appended for single-series types.
func Title(t *TrendResponse) string {
	if rules[t.Type].twoValues {
		return t.Type + " Trend"
	}
	return t.Type + " Trend (" + t.Unit + ")"
}

// RenderChart writes t as a PNG line chart.
func RenderChart(t *TrendResponse, w io.Writer) error {
	series := make([]chart.Series, 0, len(t.Series))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range t.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(s.Points)+1)
		ys := make([]float64, 0, len(s.Points)+1)
		for _, p := range s.Points {
			xs = append(xs, p.At)
			ys = append(ys, p.Value)
			lo = math.Min(lo, p.Value)
			hi = math.Max(hi, p.Value)
		}
		// go-chart needs two X values to compute a range.
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Minute))
			ys = append(ys, ys[0])
		}
		col := seriesColors[i%len(seriesColors)]
		series = append(series, chart.TimeSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    4,
			},
		})
	}

	ch := chart.Chart{
		Title:      Title(t),
		Width:      900,
		Height:     450,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis:  chart.YAxis{Name: t.Unit},
		Series: series,
	}
	// A flat line has a zero Y delta, which go-chart refuses to render.
	if lo == hi {
		ch.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return ch.Render(chart.PNG, w)
}
