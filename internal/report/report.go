// Package report 把一次回测 run 渲染成自包含的 HTML 页面：
// 权益曲线（按平仓日排序的累计 R）+ RR 分布直方图。
package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"swingdesk/internal/backtest"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorEquity        = "#3b82f6"
	colorWin           = "#34d399"
	colorLoss          = "#f87171"

	chartWidthPx  = 1200
	chartHeightPx = 420
)

// RenderRun 把 run 渲染成 HTML 页面字节。
func RenderRun(run backtest.Run, trades []backtest.Trade) ([]byte, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("run 为空")
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("swingdesk backtest %s", run.Name)

	page.AddCharts(buildEquityChart(run, trades))
	page.AddCharts(buildDistributionChart(run))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func chartInit() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func buildEquityChart(run backtest.Run, trades []backtest.Trade) *charts.Line {
	sorted := append([]backtest.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitDate.Before(sorted[j].ExitDate)
	})

	xAxis := make([]string, len(sorted))
	data := make([]opts.LineData, len(sorted))
	var cum float64
	for i, t := range sorted {
		cum += t.R
		xAxis[i] = t.ExitDate.Format("2006-01-02")
		data[i] = opts.LineData{Value: round(cum, 4)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s 累计 R", run.Name),
			Subtitle:      statsSubtitle(run.Report),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("cumulative R", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func buildDistributionChart(run backtest.Run) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:      "RR 分布",
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, 0, len(run.Report.RRDistribution))
	data := make([]opts.BarData, 0, len(run.Report.RRDistribution))
	for _, bucket := range run.Report.RRDistribution {
		color := colorWin
		// 前两个桶是亏损区间
		if bucket.Label == "< -1R" || bucket.Label == "-1R to 0" {
			color = colorLoss
		}
		xAxis = append(xAxis, bucket.Label)
		data = append(data, opts.BarData{
			Value:     bucket.Count,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.8)},
		})
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("trades", data)
	return bar
}

func statsSubtitle(rep backtest.Report) string {
	return fmt.Sprintf("trades %d | win rate %s | expectancy %sR | max DD %sR | net %sR",
		rep.Trades,
		fmtRatio(rep.WinRate),
		fmtPtr(rep.ExpectancyR),
		fmtPtr(rep.MaxDrawdownR),
		fmt.Sprintf("%.2f", rep.NetRTotal),
	)
}

func fmtRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
