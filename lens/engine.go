package lens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// EventProvider supplies the events a GroupingEngine groups.
type EventProvider interface {
	// LoadEvents returns the events found at the configured inputs.
	LoadEvents(ctx context.Context, config Config) ([]*Event, error)
}

// ReportWriter generates run reports in various formats (JSON, charts, etc.) summarizing a grouping run.
type ReportWriter interface {
	// WriteReportFiles writes the reports to the given paths, an empty path skips that report.
	//
	// Parameters:
	//   - reportJsonFile: path where the JSON report should be written
	//   - reportChartsFile: path where the chart report should be written
	//   - metrics: aggregated statistics of the run
	//
	// Returns:
	//   - error: any error encountered during report generation or file writing
	WriteReportFiles(reportJsonFile, reportChartsFile string, metrics BatchMetrics) error
}

// DefaultEventProvider reads events from the files and directories listed in the config.
type DefaultEventProvider struct{}

func (d *DefaultEventProvider) LoadEvents(ctx context.Context, config Config) ([]*Event, error) {
	return LoadEvents(ctx, config.Inputs)
}

// DefaultReportWriter writes the JSON report and the overview chart.
type DefaultReportWriter struct{}

func (d *DefaultReportWriter) WriteReportFiles(jsonPath, chartPath string, metrics BatchMetrics) error {
	if jsonPath != "" {
		reportMap, err := BuildReportMap(metrics)
		if err != nil {
			return err
		} else if err := reportMap.WriteToFile(jsonPath); err != nil {
			return err
		}
		Logger().Info().Str("path", jsonPath).Msg("report file wrote")
	}
	if chartPath != "" {
		if err := writeBatchCharts(chartPath, metrics); err != nil {
			return err
		}
		Logger().Info().Str("path", chartPath).Msg("chart file wrote")
	}
	return nil
}

// GroupingEngine loads events, groups them and writes the results and reports.
type GroupingEngine struct {
	Config        *Config
	EventProvider EventProvider
	ReportWriter  ReportWriter
	// Stdout receives grouping output, defaulting to os.Stdout.
	Stdout io.Writer
}

// NewGroupingEngine creates a GroupingEngine with default providers.
func NewGroupingEngine(config *Config) *GroupingEngine {
	return &GroupingEngine{
		Config:        config,
		EventProvider: &DefaultEventProvider{},
		ReportWriter:  &DefaultReportWriter{},
		Stdout:        os.Stdout,
	}
}

// NewGroupingEngineWithProviders creates a GroupingEngine using the supplied providers, nil providers keep defaults.
func NewGroupingEngineWithProviders(config *Config, eventProvider EventProvider, reportWriter ReportWriter) *GroupingEngine {
	engine := NewGroupingEngine(config)
	if eventProvider != nil {
		engine.EventProvider = eventProvider
	}
	if reportWriter != nil {
		engine.ReportWriter = reportWriter
	}
	return engine
}

// Run executes the grouping workflow using configured providers.
func (e *GroupingEngine) Run(ctx context.Context) error {
	startTime := time.Now()

	if err := e.Config.Validate(); err != nil {
		return err
	}

	events, err := e.EventProvider.LoadEvents(ctx, *e.Config)
	if err != nil {
		return fmt.Errorf("error loading events: %w", err)
	} else if len(events) == 0 {
		Logger().Warn().Strs("inputs", e.Config.Inputs).Msg("no events found, exiting")
		return nil
	}
	Logger().Info().Int("events", len(events)).Msg("events loaded")

	var cache *VariantCache
	if e.Config.CacheMB > 0 {
		if cache, err = NewVariantCache(e.Config.CacheMB); err != nil {
			return err
		}
		defer cache.Close()
	}

	results, err := GroupEvents(ctx, events, GroupOptions{
		Cache:       cache,
		Inverted:    e.Config.Inverted,
		Concurrency: e.Config.Concurrency,
	})
	if err != nil {
		return err
	}
	hits, misses := cache.Stats()
	Logger().Info().Int("events", len(results)).Uint64("cache_hits", hits).Msg("grouping complete")

	if err := e.writeOutput(results); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	if e.Config.ReportJsonFile == "" && e.Config.ReportChartsFile == "" {
		return nil
	}
	return e.ReportWriter.WriteReportFiles(e.Config.ReportJsonFile, e.Config.ReportChartsFile,
		BuildBatchMetrics(startTime, results, hits, misses))
}

func (e *GroupingEngine) writeOutput(results []*GroupingResult) (err error) {
	stdout := struct{ io.Writer }{e.Stdout} // hide Close so stdout is left open
	var out io.WriteCloser
	if e.Config.OutputFile != "" {
		f, err := os.Create(e.Config.OutputFile)
		if err != nil {
			return err
		}
		out = TeeWriter(stdout, f)
	} else {
		out = TeeWriter(stdout)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	return WriteResults(out, results, e.Config.OutputFormat, e.Config.ShowDiff)
}
