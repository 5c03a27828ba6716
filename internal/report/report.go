// Package report renders a finished run's per-second history as charts: an
// interactive go-echarts HTML page for the browser and a gonum/plot PNG for
// archived artefacts.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/greenwave-data/intersection.report/internal/sim"
)

// Summary is the aggregate view of a run's history.
type Summary struct {
	Seconds      int     `json:"seconds"`
	PeakVehicles int     `json:"peak_vehicles"`
	MeanVehicles float64 `json:"mean_vehicles"`
	MeanSpeed    float64 `json:"mean_speed"`
}

// Summarize reduces a run history to its aggregates. The mean speed is
// weighted by each second's vehicle count so empty seconds do not drag the
// figure down.
func Summarize(history []sim.HistoryPoint) Summary {
	s := Summary{Seconds: len(history)}
	if len(history) == 0 {
		return s
	}

	counts := make([]float64, len(history))
	speeds := make([]float64, len(history))
	weights := make([]float64, len(history))
	for i, h := range history {
		counts[i] = float64(h.VehicleCount)
		speeds[i] = h.MeanSpeed
		weights[i] = float64(h.VehicleCount)
		if h.VehicleCount > s.PeakVehicles {
			s.PeakVehicles = h.VehicleCount
		}
	}
	s.MeanVehicles = stat.Mean(counts, nil)
	if s.PeakVehicles > 0 {
		s.MeanSpeed = stat.Mean(speeds, weights)
	}
	return s
}

// RenderHistoryChart writes an HTML line chart of the run's vehicle count
// and mean speed over time.
func RenderHistoryChart(w io.Writer, runID string, history []sim.HistoryPoint) error {
	seconds := make([]int, len(history))
	counts := make([]opts.LineData, len(history))
	speeds := make([]opts.LineData, len(history))
	for i, h := range history {
		seconds[i] = h.Second
		counts[i] = opts.LineData{Value: h.VehicleCount}
		speeds[i] = opts.LineData{Value: h.MeanSpeed}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Intersection Run History",
			Theme:     "dark",
			Width:     "1100px",
			Height:    "550px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Run History",
			Subtitle: fmt.Sprintf("run=%s seconds=%d", runID, len(history)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Second"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Vehicles / px/s"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	line.SetXAxis(seconds).
		AddSeries("vehicles", counts).
		AddSeries("mean speed", speeds,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line.Render(w)
}

// SaveHistoryPlot writes a PNG line plot of the run history to path. The
// path extension selects the encoder; callers should pass a .png name.
func SaveHistoryPlot(path, runID string, history []sim.HistoryPoint) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Run %s", runID)
	p.X.Label.Text = "Second"
	p.Y.Label.Text = "Vehicles / Speed (px/s)"

	countPts := make(plotter.XYs, len(history))
	speedPts := make(plotter.XYs, len(history))
	for i, h := range history {
		countPts[i] = plotter.XY{X: float64(h.Second), Y: float64(h.VehicleCount)}
		speedPts[i] = plotter.XY{X: float64(h.Second), Y: h.MeanSpeed}
	}

	countLine, err := plotter.NewLine(countPts)
	if err != nil {
		return fmt.Errorf("failed to build vehicle-count line: %w", err)
	}
	countLine.Width = vg.Points(1.5)
	p.Add(countLine)
	p.Legend.Add("vehicles", countLine)

	speedLine, err := plotter.NewLine(speedPts)
	if err != nil {
		return fmt.Errorf("failed to build speed line: %w", err)
	}
	speedLine.Width = vg.Points(1)
	speedLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(speedLine)
	p.Legend.Add("mean speed", speedLine)

	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save history plot: %w", err)
	}
	return nil
}
