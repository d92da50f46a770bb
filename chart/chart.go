// Package chart renders analyzed sprints as standalone go-echarts HTML pages.
package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
)

// missing is the echarts placeholder for a gap in a series.
const missing = "-"

// Options controls page layout. Zero values fall back to defaults.
type Options struct {
	Width      string
	Height     string
	AssetsHost string
}

func (o Options) init(title string) opts.Initialization {
	init := opts.Initialization{PageTitle: title, Width: "100%", Height: "560px"}
	if o.Width != "" {
		init.Width = o.Width
	}
	if o.Height != "" {
		init.Height = o.Height
	}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}
	return init
}

// Render writes one HTML page for a result: the rolling mean against the
// threshold with detection markers and, when present, the gyroscope axes.
func Render(w io.Writer, r sprintzero.Result, o Options) error {
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.PageTitle = fmt.Sprintf("Sprint #%d", r.Index)
	page.AddCharts(DetectionChart(r, o))
	if r.Gyro != nil {
		page.AddCharts(GyroChart(r, o))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render sprint #%d: %w", r.Index, err)
	}
	return nil
}

// DetectionChart plots raw magnitude and rolling mean over time since
// sprint start.
func DetectionChart(r sprintzero.Result, o Options) *charts.Line {
	p := r.Plot
	d := r.Detection

	raw := make([]opts.LineData, len(p.Time))
	rolling := make([]opts.LineData, len(p.Time))
	for i, t := range p.Time {
		raw[i] = opts.LineData{Value: []interface{}{t, p.Magnitude[i]}}
		if m := p.Rolling[i]; m.Valid {
			rolling[i] = opts.LineData{Value: []interface{}{t, m.Value}}
		} else {
			rolling[i] = opts.LineData{Value: []interface{}{t, missing}}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(fmt.Sprintf("Sprint #%d", r.Index))),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("#%d %s %dm: %.2fs (%s)", r.Index, r.Date, r.Distance, d.FinalDuration, d.Decision),
			Subtitle: fmt.Sprintf("forward %.2fs | backward %.2fs | gap %.2fs | level %.2f g",
				d.ForwardDuration, d.BackwardDuration, d.Gap, d.SprintLevel),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "g"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	line.AddSeries("magnitude", raw,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 1}),
	)
	line.AddSeries("rolling mean", rolling,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "threshold", YAxis: p.Threshold},
			opts.MarkLineNameYAxisItem{Name: "sprint level", YAxis: p.SprintLevel},
		),
		charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{Name: "forward", XAxis: p.ForwardTime},
			opts.MarkLineNameXAxisItem{Name: "backward", XAxis: p.BackwardTime},
			opts.MarkLineNameXAxisItem{Name: "final", XAxis: p.FinalTime},
		),
	)
	return line
}

// GyroChart plots the three rotation axes. The result must carry a
// gyroscope series.
func GyroChart(r sprintzero.Result, o Options) *charts.Line {
	g := r.Gyro
	axes := map[string][]float64{"x": g.X, "y": g.Y, "z": g.Z}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(fmt.Sprintf("Sprint #%d gyroscope", r.Index))),
		charts.WithTitleOpts(opts.Title{
			Title:    "Gyroscope",
			Subtitle: fmt.Sprintf("dominant axis: %s", g.DominantAxis),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "rad/s"}),
	)
	for _, name := range []string{"x", "y", "z"} {
		values := axes[name]
		data := make([]opts.LineData, len(g.Time))
		for i, t := range g.Time {
			data[i] = opts.LineData{Value: []interface{}{t, values[i]}}
		}
		line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line
}
