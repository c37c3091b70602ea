// Package chart renders cached bars as an interactive candlestick page and,
// when headless Chrome is available, a PNG snapshot of it.
package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"

	"barcache/internal/market"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	volumeHeightPx = 260
)

var emaColors = []string{"#3b82f6", "#fbbf24", "#f472b6", "#22d3ee"}

type Options struct {
	Symbol    string
	Timeframe market.Timeframe
	// EMAPeriods are drawn over the price series; periods longer than the
	// series are skipped.
	EMAPeriods []int
}

// HTML renders the kline and volume charts into one page.
func HTML(bars []market.Bar, o Options) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to chart for %s", o.Symbol)
	}
	xAxis := buildXAxis(bars)
	kline := buildKline(bars, o, xAxis)
	if line := buildEMALine(bars, o.EMAPeriods); line != nil {
		line.SetXAxis(xAxis)
		kline.Overlap(line)
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s %s", strings.ToUpper(o.Symbol), o.Timeframe)
	page.AddCharts(kline, buildVolumeChart(bars, o, xAxis))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildKline(bars []market.Bar, o Options, xAxis []string) *charts.Kline {
	minPrice, maxPrice := priceBounds(bars)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}
	first, last := bars[0], bars[len(bars)-1]
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", klineHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s %s", strings.ToUpper(o.Symbol), o.Timeframe),
			Subtitle:      fmt.Sprintf("%s → %s | %d bars", first.TimeString(), last.TimeString(), len(bars)),
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
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	data := make([]opts.KlineData, 0, len(bars))
	for _, b := range bars {
		data = append(data, opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}})
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data)
	return kline
}

func buildXAxis(bars []market.Bar) []string {
	x := make([]string, len(bars))
	for i, b := range bars {
		x[i] = b.Time().Format("2006-01-02 15:04")
	}
	return x
}

// EMA returns the talib EMA of closes with the warm-up prefix set to NaN.
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	out := talib.Ema(closes, period)
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func buildEMALine(bars []market.Bar, periods []int) *charts.Line {
	closes := market.Bars(bars).Closes()
	line := charts.NewLine()
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	added := 0
	for _, p := range periods {
		series := EMA(closes, p)
		if series == nil {
			continue
		}
		color := emaColors[added%len(emaColors)]
		line.AddSeries(fmt.Sprintf("EMA%d", p), toLineData(series), charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}))
		added++
	}
	if added == 0 {
		return nil
	}
	return line
}

func buildVolumeChart(bars []market.Bar, o Options, xAxis []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", volumeHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Volume %s", o.Timeframe), Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	vols := make([]opts.BarData, len(bars))
	for i, b := range bars {
		color := colorBear
		if b.Close >= b.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{Value: b.Volume, ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}

func toLineData(series []float64) []opts.LineData {
	line := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			line[i] = opts.LineData{Value: nil}
			continue
		}
		line[i] = opts.LineData{Value: round(v, 4)}
	}
	return line
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func priceBounds(bars []market.Bar) (lo, hi float64) {
	lo, hi = bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
	}
	return lo, hi
}

// PNG screenshots the rendered page with headless Chrome.
func PNG(ctx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, errors.New("empty chart page")
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var shot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(chartWidthPx, klineHeightPx+volumeHeightPx),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&shot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return shot, nil
}

// Files are the artifacts written by Write.
type Files struct {
	HTML string
	PNG  string
}

// Write renders bars into dir as <symbol>_<tf>.html, plus a .png when
// withPNG is set.
func Write(ctx context.Context, dir string, bars []market.Bar, o Options, withPNG bool) (Files, error) {
	page, err := HTML(bars, o)
	if err != nil {
		return Files{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, err
	}
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", strings.ToLower(o.Symbol), o.Timeframe.Name()))
	out := Files{HTML: base + ".html"}
	if err := os.WriteFile(out.HTML, page, 0o644); err != nil {
		return Files{}, err
	}
	if !withPNG {
		return out, nil
	}
	shot, err := PNG(ctx, page)
	if err != nil {
		return out, fmt.Errorf("render png: %w", err)
	}
	out.PNG = base + ".png"
	if err := os.WriteFile(out.PNG, shot, 0o644); err != nil {
		return out, err
	}
	return out, nil
}
