package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/PatchLens/go-stack-lens/lens"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "STACKLENS_"

// inputsKey marks inputs provided as positional arguments in the changed map.
const inputsKey = "inputs"

// FileConfig mirrors lens.Config in a TOML friendly form. Pointers distinguish unset values from zero values.
type FileConfig struct {
	Inputs           []string `toml:"inputs"`
	Inverted         string   `toml:"inverted"`
	Concurrency      int      `toml:"concurrency"`
	CacheMB          *int     `toml:"cache_mb"`
	OutputFile       string   `toml:"output"`
	OutputFormat     string   `toml:"format"`
	ShowDiff         *bool    `toml:"diff"`
	ReportJsonFile   string   `toml:"report_json"`
	ReportChartsFile string   `toml:"report_charts"`
	LogLevel         string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.stacklens/config.toml, or an empty string if the home directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".stacklens", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file, values for explicitly set flags are kept.
func ApplyFileConfig(cfg *lens.Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	if len(fc.Inputs) > 0 && !changed[inputsKey] {
		cfg.Inputs = fc.Inputs
	}
	s.setString("inverted", fc.Inverted, (*string)(&cfg.Inverted))
	s.setString("output", fc.OutputFile, &cfg.OutputFile)
	s.setString("format", fc.OutputFormat, &cfg.OutputFormat)
	s.setString("json", fc.ReportJsonFile, &cfg.ReportJsonFile)
	s.setString("charts", fc.ReportChartsFile, &cfg.ReportChartsFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	if fc.CacheMB != nil && !changed["cache-mb"] {
		cfg.CacheMB = *fc.CacheMB
	}

	s.setBool("diff", fc.ShowDiff, &cfg.ShowDiff)
}

// ApplyEnvConfig applies STACKLENS_* environment variables, values for explicitly set flags are kept.
func ApplyEnvConfig(cfg *lens.Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if inputs := os.Getenv(EnvPrefix + "INPUTS"); inputs != "" && !changed[inputsKey] {
		cfg.Inputs = strings.Split(inputs, ",")
	}
	s.setString("inverted", os.Getenv(EnvPrefix+"INVERTED"), (*string)(&cfg.Inverted))
	s.setString("output", os.Getenv(EnvPrefix+"OUTPUT"), &cfg.OutputFile)
	s.setString("format", os.Getenv(EnvPrefix+"FORMAT"), &cfg.OutputFormat)
	s.setString("json", os.Getenv(EnvPrefix+"REPORT_JSON"), &cfg.ReportJsonFile)
	s.setString("charts", os.Getenv(EnvPrefix+"REPORT_CHARTS"), &cfg.ReportChartsFile)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("concurrency", os.Getenv(EnvPrefix+"CONCURRENCY"), &cfg.Concurrency); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "CACHE_MB"); v != "" && !changed["cache-mb"] {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse cache-mb: %w", err)
		}
		cfg.CacheMB = i
	}

	s.setBoolFromString("diff", os.Getenv(EnvPrefix+"DIFF"), &cfg.ShowDiff)
	return nil
}

// configSetter applies values only if the corresponding flag has not been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	} else if i > 0 {
		*dst = i
	}
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// RunFunc runs with the fully resolved and validated configuration.
type RunFunc func(ctx context.Context, cfg *lens.Config) error

// NewRootCommand builds the command line. Configuration is resolved from, in increasing precedence, defaults, the TOML
// config file, STACKLENS_* environment variables, then flags and positional inputs.
func NewRootCommand(run RunFunc) *cobra.Command {
	cfg := lens.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:   "stacklens [flags] <event file or dir>...",
		Short: "Compute hierarchical grouping variants for error event stacktraces",
		Long: strings.TrimSpace(`
Groups error event stacktraces into depth limited variants (app-depth-1 through app-depth-5 and app-depth-max).
Events are read from .json, .msgpack or .mpk files, optionally zstd (.zst) or snappy (.sz) compressed.`),
		Example: strings.TrimSpace(`
  stacklens events/
  stacklens --format json --json report.json --charts report.png crash.json.zst`),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if len(args) > 0 {
				cfg.Inputs = args
				changed[inputsKey] = true
			}

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = DefaultConfigPath()
			}
			if cfgFile != "" && lens.FileExists(cfgFile) {
				fc, err := LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				ApplyFileConfig(&cfg, fc, changed)
			} else if cfgPath != "" {
				return fmt.Errorf("config file not found: %s", cfgPath)
			}
			if err := ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			} else if err := lens.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			lens.Logger().Debug().Interface("config", cfg).Msg("configuration")

			return run(cmd.Context(), &cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.stacklens/config.toml)")
	flags.StringVar((*string)(&cfg.Inverted), "inverted", string(cfg.Inverted), "traversal direction: auto (per event), true, false")
	flags.IntVarP(&cfg.Concurrency, "concurrency", "j", cfg.Concurrency, "parallel grouping workers (default: CPU count)")
	flags.IntVar(&cfg.CacheMB, "cache-mb", cfg.CacheMB, "memory budget in MB for reusing identical stack groupings, 0 disables")
	flags.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "file to also write grouping output to")
	flags.StringVarP(&cfg.OutputFormat, "format", "f", cfg.OutputFormat, "output format: text, json, msgpack")
	flags.BoolVar(&cfg.ShowDiff, "diff", cfg.ShowDiff, "show tree label diff between consecutive depths (text format)")
	flags.StringVar(&cfg.ReportJsonFile, "json", cfg.ReportJsonFile, "file to output run statistics")
	flags.StringVar(&cfg.ReportChartsFile, "charts", cfg.ReportChartsFile, "file to output run overview chart image (.png, .jpg, .svg)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	return root
}
