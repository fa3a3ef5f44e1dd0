package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/richa/internal/attention"
	"github.com/banshee-data/richa/internal/report"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// AttachAdminRoutes adds live attention charts to the debug index.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.Handle("attention-chart", "Attention time per zone (live)", http.HandlerFunc(s.handleAttentionChart))
	debug.Handle("attention.png", "Attention time per zone as PNG (live)", http.HandlerFunc(s.handleAttentionPNG))
}

func summaryRows(summary []attention.Summary) []report.Row {
	rows := make([]report.Row, len(summary))
	for i, sm := range summary {
		rows[i] = report.Row{Stage: sm.Stage, Focus: sm.Focus, Zone: sm.Zone, TotalMs: sm.TotalMs, Glances: sm.Glances}
	}
	return rows
}

func (s *Server) handleAttentionChart(w http.ResponseWriter, r *http.Request) {
	summary, err := s.s.Summary()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to summarise: %v", err), sessionErrorStatus(err))
		return
	}

	x := make([]string, len(summary))
	totals := make([]opts.BarData, len(summary))
	glances := make([]opts.BarData, len(summary))
	for i, sm := range summary {
		x[i] = fmt.Sprintf("%s/%s/%s", sm.Stage, sm.Focus, sm.Zone)
		totals[i] = opts.BarData{Value: float64(sm.TotalMs) / 1000}
		glances[i] = opts.BarData{Value: sm.Glances}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Attention per zone",
			Subtitle: fmt.Sprintf("session %s", s.s.ID()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "stage/focus/zone", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).
		AddSeries("seconds", totals, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("glances", glances)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleAttentionPNG(w http.ResponseWriter, r *http.Request) {
	summary, err := s.s.Summary()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to summarise: %v", err), sessionErrorStatus(err))
		return
	}
	var buf bytes.Buffer
	if err := report.WritePlot(&buf, "Attention "+s.s.ID(), summaryRows(summary)); err != nil {
		if errors.Is(err, report.ErrNoRows) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
