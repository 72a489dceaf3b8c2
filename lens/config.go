package lens

import (
	"errors"
	"fmt"
)

// Config holds settings for a GroupingEngine.
type Config struct {
	// Inputs lists event files or directories of event files.
	Inputs []string
	// Inverted selects the traversal direction, auto honors each event's flag.
	Inverted InvertedMode
	// Concurrency limits parallel grouping, the CPU count is used when not positive.
	Concurrency int
	// CacheMB bounds memoized variants, zero disables the cache.
	CacheMB int
	// OutputFile receives grouping output in addition to stdout when set.
	OutputFile string
	// OutputFormat is one of text, json or msgpack.
	OutputFormat string
	// ShowDiff adds the label diff between consecutive depths to text output.
	ShowDiff bool

	ReportJsonFile, ReportChartsFile string
	LogLevel                         string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Inverted:     InvertedAuto,
		CacheMB:      64,
		OutputFormat: OutputText,
		LogLevel:     "info",
	}
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("at least one event file or directory is required")
	}
	mode, err := ParseInvertedMode(string(c.Inverted))
	if err != nil {
		return err
	}
	c.Inverted = mode

	switch c.OutputFormat {
	case "":
		c.OutputFormat = OutputText
	case OutputText, OutputJson, OutputMsgpack:
	default:
		return fmt.Errorf("invalid output format %q, expected text, json or msgpack", c.OutputFormat)
	}
	if c.ShowDiff && c.OutputFormat != OutputText {
		return errors.New("diff output requires the text output format")
	}
	if c.CacheMB < 0 {
		return errors.New("cache size must not be negative")
	} else if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	if c.ReportChartsFile != "" {
		if _, err := chartOutputType(c.ReportChartsFile); err != nil {
			return err
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}
