// Package charts renders interactive deck statistics pages with go-echarts.
package charts

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title      string   // Chart title
	Subtitle   string   // Chart subtitle
	Width      string   // Chart width (e.g., "900px")
	Height     string   // Chart height (e.g., "500px")
	Theme      string   // Chart theme
	ShowLegend bool     // Show legend
	Colors     []string // Series colors, cycled
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "900px",
		Height:     "500px",
		Theme:      "light",
		ShowLegend: true,
		Colors:     []string{"#D9622B", "#5470C6", "#91CC75", "#FAC858"},
	}
}

// DataPoint represents a single data point in a chart.
type DataPoint struct {
	Label string
	Value float64
}

// SeriesData represents a data series for multi-series charts.
type SeriesData struct {
	Name   string
	Points []DataPoint
}

// RarityPoints returns the card count of each rarity class of list, in
// mythic to common order.
func RarityPoints(list *cards.List) []DataPoint {
	points := make([]DataPoint, len(cards.Rarities))
	for i, r := range cards.Rarities {
		points[i] = DataPoint{Label: r.String()}
		if list != nil {
			points[i].Value = float64(list.CountByRarity(r))
		}
	}
	return points
}

// RarityChart builds a stacked bar chart of the deck's rarity counts, one
// series for the main deck and one for the sideboard.
func RarityChart(deck *deckfile.Deck, config ChartConfig) *charts.Bar {
	if config.Title == "" {
		config.Title = deck.Name
	}
	if config.Subtitle == "" {
		config.Subtitle = fmt.Sprintf("%d cards (%s)", deck.CardCount(), deck.RaritySummary())
	}

	series := []SeriesData{
		{Name: "Karty", Points: RarityPoints(deck.Main)},
		{Name: "Sideboard", Points: RarityPoints(deck.Sideboard)},
	}
	return stackedBar(series, config)
}

func stackedBar(series []SeriesData, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
	)
	if len(config.Colors) > 0 {
		bar.SetGlobalOptions(charts.WithColorsOpts(opts.Colors(config.Colors)))
	}

	if len(series) == 0 {
		return bar
	}

	xLabels := make([]string, len(series[0].Points))
	for i, point := range series[0].Points {
		xLabels[i] = point.Label
	}
	bar.SetXAxis(xLabels)

	for _, s := range series {
		yData := make([]opts.BarData, len(s.Points))
		for i, point := range s.Points {
			yData[i] = opts.BarData{Value: point.Value}
		}
		bar.AddSeries(s.Name, yData, charts.WithBarChartOpts(opts.BarChart{Stack: "cards"}))
	}

	bar.SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(true),
		}),
	)

	return bar
}

// RenderRarityChart writes the rarity chart page of deck to w.
func RenderRarityChart(w io.Writer, deck *deckfile.Deck, config ChartConfig) error {
	if deck == nil {
		return fmt.Errorf("deck cannot be nil")
	}
	if err := RarityChart(deck, config).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderRarityChartFile creates an interactive rarity chart HTML file.
func RenderRarityChartFile(outputPath string, deck *deckfile.Deck, config ChartConfig) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}

	if err := RenderRarityChart(f, deck, config); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cmd, err := browserCommand(runtime.GOOS, absPath)
	if err != nil {
		return err
	}
	return cmd.Start()
}

func browserCommand(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", path), nil
	case "linux":
		return exec.Command("xdg-open", path), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
