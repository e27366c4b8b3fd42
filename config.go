package occplot

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore, e.g. OCCPLOT_BINNING__X_BINS=80.
const EnvPrefix = "OCCPLOT_"

// Output modes.
const (
	OutputPNG  = "png"
	OutputROOT = "root"
	OutputHTML = "html"
)

// Config holds the parameters of an accumulation run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// BaseDir and InputPattern locate numbered input files; the pattern
	// takes the 1-based file number.
	BaseDir      string `koanf:"base_dir"`
	InputPattern string `koanf:"input_pattern"`
	NumFiles     int    `koanf:"num_files"`

	// FirstEvent and LastEvent bound the inclusive event range per file.
	FirstEvent int64 `koanf:"first_event"`
	LastEvent  int64 `koanf:"last_event"`

	// DeadTime is the per-cell dead time, in the time unit of the input (ns).
	DeadTime float64 `koanf:"dead_time"`

	Binning   Binning      `koanf:"binning"`
	Selection Selection    `koanf:"selection"`
	Source    SourceConfig `koanf:"source"`

	// Output is one of png, root, html.
	Output    string `koanf:"output"`
	OutputDir string `koanf:"output_dir"`

	// Workers is the number of files processed concurrently.
	Workers int `koanf:"workers"`

	// Metrics, when set, is a Prometheus textfile written after the run.
	Metrics string `koanf:"metrics"`
	// Ledger, when set, is a sqlite database recording finished runs.
	Ledger string `koanf:"ledger"`
}

// DefaultConfig mirrors the rod43/layer42 test production.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		BaseDir:      "./testdata/",
		InputPattern: "mc_e+_job_rod43_layer42_run43_%d_Test_20evt_e+_100_100.root",
		NumFiles:     1,
		FirstEvent:   0,
		LastEvent:    19,
		DeadTime:     0,
		Binning: Binning{
			NX: 400, NY: 400,
			XMin: -4.3, XMax: -3.9,
			YMin: 4.3, YMax: 4.7,
		},
		Selection: DefaultSelection(),
		Source:    DefaultSourceConfig(),
		Output:    OutputPNG,
		OutputDir: ".",
		Workers:   1,
	}
}

// LoadConfig layers, from low to high precedence: defaults, the YAML file at
// path (if any), OCCPLOT_* environment variables and the flags of fs that were
// set on the command line. flagKeys maps flag names to config keys; flags
// without an entry are ignored.
func LoadConfig(path string, fs *flag.FlagSet, flagKeys map[string]string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %w", ErrInvalidConfiguration, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrInvalidConfiguration, err)
	}

	if fs != nil {
		var err error
		fs.Visit(func(f *flag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || err != nil {
				return
			}
			err = k.Set(key, f.Value.String())
		})
		if err != nil {
			return nil, fmt.Errorf("%w: flags: %w", ErrInvalidConfiguration, err)
		}
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.NumFiles < 1 || c.NumFiles > 1000 {
		return fmt.Errorf("%w: number of files %d outside 1..1000", ErrInvalidConfiguration, c.NumFiles)
	}
	if c.FirstEvent < 0 || c.LastEvent < c.FirstEvent {
		return fmt.Errorf("%w: event range [%d,%d]", ErrInvalidConfiguration, c.FirstEvent, c.LastEvent)
	}
	if c.DeadTime < 0 || math.IsNaN(c.DeadTime) || math.IsInf(c.DeadTime, 0) {
		return fmt.Errorf("%w: dead time %g must be a non-negative number", ErrInvalidConfiguration, c.DeadTime)
	}
	if err := c.Binning.Validate(); err != nil {
		return err
	}
	if err := c.Selection.Validate(); err != nil {
		return err
	}
	switch c.Output {
	case OutputPNG, OutputROOT, OutputHTML:
	default:
		return fmt.Errorf("%w: output mode %q, want png, root or html", ErrInvalidConfiguration, c.Output)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfiguration, c.Workers)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Inputs expands the numbered input pattern. Explicit paths take precedence.
func (c *Config) Inputs(explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	inputs := make([]string, 0, c.NumFiles)
	for i := 1; i <= c.NumFiles; i++ {
		inputs = append(inputs, filepath.Join(c.BaseDir, fmt.Sprintf(c.InputPattern, i)))
	}
	return inputs
}

// RunConfig extracts the accumulation parameters.
func (c *Config) RunConfig() RunConfig {
	return RunConfig{
		FirstEvent: c.FirstEvent,
		LastEvent:  c.LastEvent,
		DeadTime:   c.DeadTime,
		Binning:    c.Binning,
		Selection:  c.Selection,
		Source:     c.Source,
		Workers:    c.Workers,
	}
}

// LogConfig writes the effective configuration, one line per setting.
func (c *Config) LogConfig(logger *slog.Logger) {
	logger = logger.With("module", "config")
	logger.Info(fmt.Sprintf("Inputs: %d x %s", c.NumFiles, filepath.Join(c.BaseDir, c.InputPattern)))
	logger.Info(fmt.Sprintf("Events: %d to %d", c.FirstEvent, c.LastEvent))
	logger.Info(fmt.Sprintf("Dead time: %g ns", c.DeadTime))
	logger.Info(fmt.Sprintf("Bins: %dx%d", c.Binning.NX, c.Binning.NY))
	logger.Info(fmt.Sprintf("X range: [%g, %g]", c.Binning.XMin, c.Binning.XMax))
	logger.Info(fmt.Sprintf("Y range: [%g, %g]", c.Binning.YMin, c.Binning.YMax))
	logger.Info(fmt.Sprintf("Selection: z > %g, core required: %t", c.Selection.ZMin, c.Selection.RequireCore))
	if c.Selection.ROI.R > 0 {
		logger.Info(fmt.Sprintf("ROI: centre (%g, %g), radius %g", c.Selection.ROI.X, c.Selection.ROI.Y, c.Selection.ROI.R))
	}
	logger.Info(fmt.Sprintf("Output: %s in %s", c.Output, c.OutputDir))
	logger.Info(fmt.Sprintf("Workers: %d", c.Workers))
}

// ConfigPathFromEnv returns OCCPLOT_CONFIG when no explicit path is given.
func ConfigPathFromEnv(path string) string {
	if path != "" {
		return path
	}
	return os.Getenv(EnvPrefix + "CONFIG")
}
