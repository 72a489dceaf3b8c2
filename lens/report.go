package lens

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-analyze/charts"
)

const bottomTableMaxRecords = 10

// chart color constants
var greenTextColor = charts.ColorGreenAlt3
var orangeTextColor = charts.ColorOrangeAlt1.WithAdjustHSL(0, .2, 0)
var redTextColor = charts.ColorRed.WithAdjustHSL(0, .1, -.1)

// BatchMetrics contains the statistics of one grouping run.
type BatchMetrics struct {
	GeneratedAt    time.Time           `json:"generated_at"`
	RunDuration    int64               `json:"run_ms"`
	EventCount     int                 `json:"event_count"`
	SentinelCount  int                 `json:"sentinel_count"`
	FallbackCount  int                 `json:"fallback_count"`
	InvertedCount  int                 `json:"inverted_count"`
	CacheHits      uint64              `json:"cache_hits"`
	CacheMisses    uint64              `json:"cache_misses"`
	LayerHistogram map[int]int         `json:"layer_histogram"` // [boundedLayers]eventCount
	VariantCounts  map[VariantName]int `json:"variant_counts"`
	Events         []EventMetrics      `json:"events"`
}

// EventMetrics summarizes the grouping of a single event.
type EventMetrics struct {
	EventID       string `json:"event_id"`
	Layers        int    `json:"layers"`
	Fallback      bool   `json:"fallback,omitempty"`
	Inverted      bool   `json:"inverted,omitempty"`
	MaxComponents int    `json:"max_components"`
	TreeLabel     string `json:"tree_label"` // label of the deepest variant
}

// BuildBatchMetrics aggregates the results of a run.
func BuildBatchMetrics(startTime time.Time, results []*GroupingResult, cacheHits, cacheMisses uint64) BatchMetrics {
	metrics := BatchMetrics{
		GeneratedAt:    startTime,
		RunDuration:    time.Since(startTime).Milliseconds(),
		EventCount:     len(results),
		CacheHits:      cacheHits,
		CacheMisses:    cacheMisses,
		LayerHistogram: make(map[int]int, MaxLayers),
		VariantCounts:  make(map[VariantName]int, MaxLayers+1),
		Events:         make([]EventMetrics, len(results)),
	}
	for i, r := range results {
		if r.Fallback {
			metrics.FallbackCount++
		} else {
			metrics.SentinelCount++
		}
		if r.Inverted {
			metrics.InvertedCount++
		}
		layers := r.Variants.BoundedLayers()
		metrics.LayerHistogram[layers]++
		for name := range r.Variants {
			metrics.VariantCounts[name]++
		}
		maxVariant := r.Variants[VariantDepthMax]
		metrics.Events[i] = EventMetrics{
			EventID:       r.EventID,
			Layers:        layers,
			Fallback:      r.Fallback,
			Inverted:      r.Inverted,
			MaxComponents: maxVariant.Len(),
		}
		if maxVariant != nil {
			metrics.Events[i].TreeLabel = TreeLabelString(maxVariant.TreeLabel)
		}
	}
	slices.SortFunc(metrics.Events, func(a, b EventMetrics) int { // keep consistent order in report
		return strings.Compare(a.EventID, b.EventID)
	})
	return metrics
}

// ReportMap represents a report as an extensible map structure.
// Custom implementations can add additional fields before writing to JSON.
type ReportMap map[string]interface{}

// BuildReportMap converts the metrics into a ReportMap that can be extended by custom implementations before writing
// to JSON.
func BuildReportMap(metrics BatchMetrics) (ReportMap, error) {
	reportBytes, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal report to bytes failed: %w", err)
	}

	var reportMap ReportMap
	if err := json.Unmarshal(reportBytes, &reportMap); err != nil {
		return nil, fmt.Errorf("unmarshal report to map failed: %w", err)
	}
	return reportMap, nil
}

// WriteToFile writes the report map to a JSON file.
// This method allows custom implementations to write extended reports.
func (rm ReportMap) WriteToFile(path string) error {
	if path == "" {
		return nil
	}

	encodedReport, err := json.MarshalIndent(rm, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report map failed: %w", err)
	}
	if err := os.WriteFile(path, encodedReport, 0644); err != nil {
		return fmt.Errorf("write report file failed: %w", err)
	}
	return nil
}

// RenderBatchChartsFromJson takes a previously written BatchMetrics and renders the overview to a png.
func RenderBatchChartsFromJson(metrics BatchMetrics) ([]byte, error) {
	painterOpt := charts.PainterOptions{
		OutputFormat: charts.ChartOutputPNG,
		Width:        1024,
		Height:       768,
	}
	return renderBatchCharts(painterOpt, metrics)
}

func chartOutputType(path string) (string, error) {
	if strings.HasSuffix(path, ".png") {
		return charts.ChartOutputPNG, nil
	} else if strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg") {
		return charts.ChartOutputJPG, nil
	} else if strings.HasSuffix(path, ".svg") {
		return charts.ChartOutputSVG, nil
	}
	return "", fmt.Errorf("unhandled chart file type: %s", path)
}

func writeBatchCharts(path string, metrics BatchMetrics) error {
	outputType, err := chartOutputType(path)
	if err != nil {
		return err
	}

	painterOpt := charts.PainterOptions{
		OutputFormat: outputType,
		Width:        1024,
		Height:       1024,
	}
	if buf, err := renderBatchCharts(painterOpt, metrics); err != nil {
		return fmt.Errorf("render charts failed: %w", err)
	} else if err = os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write chart file failed: %w", err)
	}
	return nil
}

func renderBatchCharts(painterOpt charts.PainterOptions, metrics BatchMetrics) ([]byte, error) {
	p := charts.NewPainter(painterOpt)
	if chartBox, err := renderChartsToPainter(p, metrics); err != nil {
		return nil, err
	} else if chartBox.Height() < p.Height()-128 || chartBox.Height() > p.Height() {
		// re-render with a smaller painter to better fit the charts
		painterOpt.Height = chartBox.Height()
		p = charts.NewPainter(painterOpt)
		if _, err := renderChartsToPainter(p, metrics); err != nil {
			return nil, err
		}
	}
	return p.Bytes()
}

func percentFormatter(part func(float64) float64, total float64) func(float64) string {
	return func(f float64) string {
		if total == 0 {
			return "0%"
		}
		return charts.FormatValueHumanize(100.0*part(f)/total, 1, false) + "%"
	}
}

func renderChartsToPainter(p *charts.Painter, metrics BatchMetrics) (charts.Box, error) {
	const chartPadding = 10
	resultBox := charts.NewBoxEqual(0)
	resultBox.Right = p.Width()
	p.FilledRect(0, 0, p.Width(), p.Height(), charts.ColorWhite, charts.ColorWhite, 0)
	p = p.Child(charts.PainterPaddingOption(charts.NewBox(0, chartPadding, chartPadding, chartPadding)))

	titleFont := charts.FontStyle{
		FontSize:  16,
		FontColor: charts.ColorBlack,
		Font:      charts.GetDefaultFont(),
	}
	title := strconv.Itoa(metrics.EventCount) + " events grouped in " +
		(time.Duration(metrics.RunDuration) * time.Millisecond).String()
	titleBox := p.MeasureText(title, 0, titleFont)
	// title rendered after the charts to ensure it does not get clipped
	titleBottom := titleBox.Height()
	resultBox.Bottom += titleBottom

	const middleUpShift = "-40" // overlap amount between rows
	painters, err := p.LayoutByRows().
		RowGap(strconv.Itoa(titleBottom)).
		Row().Height("128").Columns("topLeft", "topRight").
		Row().Height("120").RowOffset(middleUpShift).Columns("middle").
		Row().Columns("bottom"). // single large painter at the bottom with all remaining space
		Build()
	if err != nil {
		return resultBox, fmt.Errorf("error building chart layout: %w", err)
	}
	topLeft := painters["topLeft"]
	topRight := painters["topRight"]
	middle := painters["middle"]
	bottom := painters["bottom"]

	barGaugeThemeGreenYellowRed := charts.GetTheme(charts.ThemeLight).
		WithBackgroundColor(charts.ColorTransparent).
		WithSeriesColors([]charts.Color{
			charts.ColorGreenAlt1,
			{ /* Golden yellow */ R: 220, G: 210, B: 100, A: 255},
			charts.ColorRed,
		})

	topLeftOpt := charts.NewHorizontalBarChartOptionWithData([][]float64{
		{float64(metrics.SentinelCount)}, {float64(metrics.FallbackCount)},
	})
	topLeftOpt.StackSeries = charts.Ptr(true)
	topLeftOpt.Theme = barGaugeThemeGreenYellowRed
	topLeftOpt.Title.Text = "Sentinel Grouping"
	topLeftOpt.XAxis.Unit = axisUnitForMax(metrics.EventCount)
	topLeftOpt.YAxis.Show = charts.Ptr(false)
	topLeftOpt.SeriesList[1].Label.Show = charts.Ptr(true)
	topLeftOpt.SeriesList[1].Label.FontStyle.FontColor = firstValueSeriesRankColor(topLeftOpt.Theme, topLeftOpt.SeriesList)
	eventTotal := float64(metrics.EventCount)
	topLeftOpt.SeriesList[1].Label.ValueFormatter = percentFormatter(func(f float64) float64 {
		return eventTotal - f
	}, eventTotal)
	if err := topLeft.HorizontalBarChart(topLeftOpt); err != nil {
		return resultBox, fmt.Errorf("error rendering chart: %w", err)
	}
	// subtext is added after due to a desire for custom formatting
	topLeft.Text("(Events with a sentinel frame)", 170, 37, 0, charts.FontStyle{
		FontSize:  8,
		FontColor: topLeftOpt.Theme.GetTitleTextColor(),
		Font:      charts.GetDefaultFont(),
	})

	lookups := metrics.CacheHits + metrics.CacheMisses
	topRightOpt := charts.NewHorizontalBarChartOptionWithData([][]float64{
		{float64(metrics.CacheHits)}, {float64(metrics.CacheMisses)},
	})
	topRightOpt.StackSeries = charts.Ptr(true)
	topRightOpt.Theme = barGaugeThemeGreenYellowRed
	topRightOpt.Title.Text = "Identical Stack Reuse"
	topRightOpt.XAxis.Unit = axisUnitForMax(int(lookups))
	topRightOpt.YAxis.Show = charts.Ptr(false)
	topRightOpt.SeriesList[1].Label.Show = charts.Ptr(true)
	topRightOpt.SeriesList[1].Label.ValueFormatter = percentFormatter(func(f float64) float64 {
		return float64(lookups) - f
	}, float64(lookups))
	if err := topRight.HorizontalBarChart(topRightOpt); err != nil {
		return resultBox, fmt.Errorf("error rendering chart: %w", err)
	}

	resultBox.Bottom += max(topLeft.Height(), topRight.Height())

	layerValues := make([][]float64, MaxLayers)
	for depth := 1; depth <= MaxLayers; depth++ {
		layerValues[depth-1] = []float64{float64(metrics.LayerHistogram[depth])}
	}
	middleOpt := charts.NewHorizontalBarChartOptionWithData(layerValues)
	middleOpt.StackSeries = charts.Ptr(true)
	middleOpt.Theme = charts.GetTheme(charts.ThemeLight).WithBackgroundColor(charts.ColorTransparent)
	middleOpt.Title.Text = "Bounded Layers per Event"
	middleOpt.XAxis.Unit = axisUnitForMax(metrics.EventCount)
	middleOpt.YAxis.Show = charts.Ptr(false)
	middleOpt.BarHeight = 22
	for i := range middleOpt.SeriesList {
		if metrics.LayerHistogram[i+1] == 0 {
			continue
		}
		middleOpt.SeriesList[i].Label.Show = charts.Ptr(true)
		middleOpt.SeriesList[i].Label.FontStyle.FontColor = charts.ColorBlack
		middleOpt.SeriesList[i].Label.ValueFormatter = func(f float64) string {
			return strconv.Itoa(i+1) + ": " + charts.FormatValueHumanize(f, 0, false)
		}
	}
	if err := middle.HorizontalBarChart(middleOpt); err != nil {
		return resultBox, fmt.Errorf("error rendering chart: %w", err)
	}

	resultBox.Bottom += middle.Height()

	deepest := slices.Clone(metrics.Events)
	slices.SortStableFunc(deepest, func(a, b EventMetrics) int {
		if a.Layers != b.Layers { // deepest first
			return b.Layers - a.Layers
		}
		return b.MaxComponents - a.MaxComponents
	})
	if len(deepest) > bottomTableMaxRecords {
		deepest = deepest[:bottomTableMaxRecords]
	}
	if len(deepest) == 0 {
		text := "No Events Grouped"
		textBox := bottom.MeasureText(text, 0, titleFont)
		bottom.Text(text, (bottom.Width()-textBox.Width())/2, bottom.Height()/2, 0, titleFont)
		resultBox.Bottom += textBox.Height() * 2
	} else {
		rows := make([][]string, len(deepest))
		for i, e := range deepest {
			path := "Sentinel"
			if e.Fallback {
				path = "Fallback"
			}
			label := e.TreeLabel
			if len(label) > 66 {
				label = label[:64] + ".."
			}
			rows[i] = []string{e.EventID, path, strconv.Itoa(e.Layers), label}
		}

		tableTitle := "Deepest Events"
		tableTitleFont := charts.FontStyle{
			FontSize:  12,
			FontColor: barGaugeThemeGreenYellowRed.GetTitleTextColor(),
			Font:      charts.GetDefaultFont(),
		}
		tableTitleBox := bottom.MeasureText(tableTitle, 0, tableTitleFont)
		bottom.Text(tableTitle, 10, tableTitleBox.Height(), 0, tableTitleFont)
		rowColors := []charts.Color{
			{R: 240, G: 240, B: 240, A: 255},
			charts.ColorTransparent,
		}
		if len(rows)%2 == 0 {
			// reverse row colors so table end is opposite of transparent
			rowColors[0], rowColors[1] = rowColors[1], rowColors[0]
		}
		defaultCellFontStyle := charts.FontStyle{
			FontSize:  12,
			FontColor: charts.Color{R: 50, G: 50, B: 50, A: 255},
			Font:      charts.GetDefaultFont(),
		}
		bottomOpt := charts.TableChartOption{
			Header:                []string{"Event", "Path", "Layers", "Tree Label"},
			Data:                  rows,
			HeaderBackgroundColor: charts.Color{R: 210, G: 210, B: 210, A: 255},
			RowBackgroundColors:   rowColors,
			Padding:               charts.NewBoxEqual(10),
			Spans:                 []int{16, 8, 6, 38},
			TextAligns:            []string{charts.AlignLeft, charts.AlignLeft, charts.AlignCenter, charts.AlignLeft},
			CellModifier: func(cell charts.TableCell) charts.TableCell {
				if cell.Row == 0 {
					return cell
				}
				cell.FontStyle = defaultCellFontStyle // reset on each call to prevent prior changes persisting

				switch cell.Column {
				case 1:
					if cell.Text == "Fallback" {
						cell.FontStyle.FontColor = orangeTextColor
					} else {
						cell.FontStyle.FontColor = greenTextColor
					}
				case 2:
					if cell.Text == strconv.Itoa(MaxLayers) {
						cell.FontStyle.FontColor = redTextColor
					}
				case 3:
					cell.FontStyle.FontSize = 8
				}
				return cell
			},
		}
		tablePainter := bottom.Child(charts.PainterPaddingOption(charts.NewBox(10, tableTitleBox.Height()+8, 0, 0)))
		if err := tablePainter.TableChart(bottomOpt); err != nil {
			return resultBox, fmt.Errorf("error rendering table: %w", err)
		}
		// re-render just so we can calculate the height of the table, currently charts does not return the table sizes
		bottomOpt.Width = bottom.Width()
		if p, _ := charts.TableOptionRenderDirect(bottomOpt); p != nil {
			resultBox.Bottom += tableTitleBox.Height() + p.Height()
		} else {
			resultBox.Bottom += bottom.Height()
		}
	}

	p.Text(title, (p.Width()/2)-(titleBox.Width()/2), titleBox.Height(), 0, titleFont)
	return resultBox, nil
}

func firstValueSeriesRankColor(theme charts.ColorPalette, sl charts.HorizontalBarSeriesList) charts.Color {
	sum := sl.SumSeriesValues()
	if sl[0].Values[0] < sum[0]/2 {
		return redTextColor
	} else if sl[0].Values[0] < sum[0]*.8 {
		return orangeTextColor
	} else {
		return theme.GetLabelTextColor()
	}
}

func axisUnitForMax(val int) float64 {
	if val >= 8000 {
		return 2000
	} else if val > 2000 {
		return 1000
	} else if val >= 800 {
		return 200
	} else if val > 200 {
		return 100
	} else if val >= 80 {
		return 20
	} else if val > 20 {
		return 10
	} else if val >= 10 {
		return 2
	} else {
		return 1
	}
}
