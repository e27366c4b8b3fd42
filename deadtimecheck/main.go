package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/profile"

	"github.com/decibelcooper/occplot"
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options] [input-file...]

Accumulates the photon occupancy of a sensor region with a per-channel dead
time and writes the resulting grid. Without input files, -numfiles files are
taken from -basedir following -pattern.

options:
`,
	)
	flag.PrintDefaults()
}

// flag name -> config key
var flagKeys = map[string]string{
	"loglevel":   "log_level",
	"basedir":    "base_dir",
	"pattern":    "input_pattern",
	"numfiles":   "num_files",
	"first":      "first_event",
	"last":       "last_event",
	"deadtime":   "dead_time",
	"xbins":      "binning.x_bins",
	"ybins":      "binning.y_bins",
	"xmin":       "binning.x_min",
	"xmax":       "binning.x_max",
	"ymin":       "binning.y_min",
	"ymax":       "binning.y_max",
	"zmin":       "selection.z_min",
	"roi-radius": "selection.roi.radius",
	"tree":       "source.tree",
	"output":     "output",
	"outdir":     "output_dir",
	"workers":    "workers",
	"metrics":    "metrics",
	"ledger":     "ledger",
}

func main() {
	def := occplot.DefaultConfig()
	var (
		configPath = flag.String("config", "", "YAML configuration file (default $OCCPLOT_CONFIG)")
		prof       = flag.Bool("profile", false, "write a CPU profile")
		sweep      occplot.IntArrayFlags
	)
	flag.String("loglevel", def.LogLevel, "log level: debug, info, warn, error")
	flag.String("basedir", def.BaseDir, "directory of numbered input files")
	flag.String("pattern", def.InputPattern, "input file name pattern, %d is the 1-based file number")
	flag.Int("numfiles", def.NumFiles, "number of numbered input files (1-1000)")
	flag.Int64("first", def.FirstEvent, "first event of each file")
	flag.Int64("last", def.LastEvent, "last event of each file (inclusive)")
	flag.Float64("deadtime", def.DeadTime, "per-channel dead time in ns, 0 disables it")
	flag.Int("xbins", def.Binning.NX, "number of x bins")
	flag.Int("ybins", def.Binning.NY, "number of y bins")
	flag.Float64("xmin", def.Binning.XMin, "lower x edge (cm)")
	flag.Float64("xmax", def.Binning.XMax, "upper x edge (cm)")
	flag.Float64("ymin", def.Binning.YMin, "lower y edge (cm)")
	flag.Float64("ymax", def.Binning.YMax, "upper y edge (cm)")
	flag.Float64("zmin", def.Selection.ZMin, "photons must have z above this")
	flag.Float64("roi-radius", def.Selection.ROI.R, "radius of the region of interest (cm), 0 disables it")
	flag.String("tree", def.Source.Tree, "name of the ROOT tree")
	flag.String("output", def.Output, "output mode: png, root or html")
	flag.String("outdir", def.OutputDir, "output directory")
	flag.Int("workers", def.Workers, "files processed concurrently")
	flag.String("metrics", "", "write Prometheus metrics to this textfile")
	flag.String("ledger", "", "record the run in this sqlite database")
	flag.Var(&sweep, "sweep", "square grid size to run, repeatable; overrides -xbins/-ybins")
	flag.Usage = printUsage
	flag.Parse()

	if *prof {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	cfg, err := occplot.LoadConfig(occplot.ConfigPathFromEnv(*configPath), flag.CommandLine, flagKeys)
	if err != nil {
		fatal(nil, err)
	}
	logger, err := occplot.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		fatal(nil, err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	empty, err := runSweep(ctx, logger, cfg, sweep.Array, flag.Args())
	if err != nil {
		fatal(logger, err)
	}
	if empty > 0 {
		os.Exit(1)
	}
}

// runSweep runs cfg once per square grid size, or once with its own binning
// when sizes is empty. A size that yields no photons is logged and the sweep
// goes on; it returns how many sizes did so.
func runSweep(ctx context.Context, logger *slog.Logger, cfg *occplot.Config, sizes []int, args []string) (int, error) {
	if len(sizes) == 0 {
		sizes = []int{0}
	}
	var empty int
	for _, n := range sizes {
		c := *cfg
		if n != 0 {
			c.Binning.NX, c.Binning.NY = n, n
		}
		err := run(ctx, logger, &c, args)
		switch {
		case err == nil:
		case errors.Is(err, occplot.ErrEmptyResult):
			logger.Error(err.Error(), "xbins", c.Binning.NX, "ybins", c.Binning.NY)
			empty++
		default:
			return empty, err
		}
	}
	if empty > 0 {
		logger.Error(fmt.Sprintf("%d of %d grid configurations produced no output", empty, len(sizes)))
	}
	return empty, nil
}

func fatal(logger *slog.Logger, err error) {
	if logger != nil {
		logger.Error(err.Error())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	if errors.Is(err, occplot.ErrInvalidConfiguration) {
		printUsage()
	}
	os.Exit(1)
}

func run(ctx context.Context, logger *slog.Logger, cfg *occplot.Config, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.LogConfig(logger)

	var metrics *occplot.Metrics
	if cfg.Metrics != "" {
		metrics = occplot.NewMetrics()
	}
	inputs := cfg.Inputs(args)
	runner := &occplot.Runner{Logger: logger, Metrics: metrics}
	res, err := runner.Run(ctx, cfg.RunConfig(), inputs)
	if err != nil {
		return err
	}

	printSummary(res)

	name := occplot.GridArtifactName(cfg.DeadTime, cfg.Binning, len(inputs), res.Tally.Events)
	out := filepath.Join(cfg.OutputDir, name+"."+cfg.Output)
	if err := writeOutput(out, cfg, res, len(inputs)); err != nil {
		return err
	}
	fmt.Printf("Output saved to %s\n", out)

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.Metrics); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if cfg.Ledger != "" {
		ledger, err := occplot.OpenLedger(cfg.Ledger)
		if err != nil {
			return err
		}
		defer ledger.Close()
		if err := ledger.Record(ctx, occplot.EntryFromResult(res, out)); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(res *occplot.Result) {
	peak := res.Grid.Peak()
	b := res.Grid.Binning
	fmt.Printf("Max bin: (%d, %d) with %d photons\n", peak.Bin.IX+1, peak.Bin.IY+1, peak.Count)
	fmt.Printf("Bin x range: [%.4f, %.4f], centre %.4f\n", peak.XLow, peak.XHigh, peak.XCenter())
	fmt.Printf("Bin y range: [%.4f, %.4f], centre %.4f\n", peak.YLow, peak.YHigh, peak.YCenter())
	fmt.Printf("Grid: %dx%d over [%g, %g] x [%g, %g]\n", b.NX, b.NY, b.XMin, b.XMax, b.YMin, b.YMax)
	fmt.Printf("Files processed: %d of %d\n", res.FilesProcessed(), len(res.Files))
	fmt.Printf("Events processed: %d\n", res.Tally.Events)
	fmt.Printf("Photons added: %d\n", res.Tally.Accepted)
	if res.DeadTime > 0 {
		fmt.Printf("Photons rejected by %.1f ns dead time: %d\n", res.DeadTime, res.Tally.Rejected)
		fmt.Printf("Rejection rate: %.2f%%\n", res.Tally.RejectionPercent())
	}
}

func writeOutput(path string, cfg *occplot.Config, res *occplot.Result, numFiles int) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	title := "Photon Distribution (No Deadtime)"
	if cfg.DeadTime > 0 {
		title = fmt.Sprintf("Photon Distribution (Deadtime %.1f ns)", cfg.DeadTime)
	}
	style := occplot.HeatMapStyle(title)

	switch cfg.Output {
	case occplot.OutputROOT:
		return occplot.WriteGridArtifact(path, res.Grid, occplot.MetaFromResult(res, numFiles))
	case occplot.OutputHTML:
		return occplot.SaveHTML(path, res.Grid, style)
	default:
		return occplot.SaveHeatMap(path, res.Grid, style)
	}
}
