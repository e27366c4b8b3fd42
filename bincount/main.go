package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"

	"github.com/pkg/profile"

	"github.com/decibelcooper/occplot"
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options] <input-file>...

Histograms how many photons land in each channel for several channel sizes,
normalised to the most frequent count.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	def := occplot.DefaultConfig()
	var (
		output   = flag.String("output", "bin_count_distribution_normalized_by_max.png", "output file")
		title    = flag.String("title", "Normalized Distribution of NPhotons Per Channel", "plot title")
		maxCount = flag.Int64("maxcount", 100, "largest count shown")
		first    = flag.Int64("first", 0, "first event of each file")
		last     = flag.Int64("last", -1, "last event of each file, -1 for all")
		zMin     = flag.Float64("zmin", def.Selection.ZMin, "photons must have z above this")
		logLevel = flag.String("loglevel", "info", "log level")
		prof     = flag.Bool("profile", false, "write a CPU profile")
		bins     = occplot.IntArrayFlags{Array: []int{40, 53, 80, 160, 400, 4000}}
	)
	flag.Var(&bins, "bins", "bins per axis, repeatable")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}
	if *prof {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	logger, err := occplot.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		log.Fatal(err)
	}
	if *last < 0 {
		*last = math.MaxInt64
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &occplot.Runner{Logger: logger}
	sel := occplot.Selection{ZMin: *zMin, RequireCore: true}

	type config struct {
		label string
		freq  occplot.CountFrequency
	}
	var (
		configs []config
		overall int64
	)
	for _, n := range bins.Array {
		b := def.Binning
		b.NX, b.NY = n, n
		rc := occplot.RunConfig{
			FirstEvent: *first,
			LastEvent:  *last,
			Binning:    b,
			Selection:  sel,
			Source:     def.Source,
			Workers:    1,
		}
		res, err := runner.Run(ctx, rc, flag.Args())
		if err != nil {
			log.Fatal(err)
		}

		freq := res.Grid.Frequencies()
		if m := freq.MaxCount(); m > overall {
			overall = m
		}
		channel := math.Round((b.XMax - b.XMin) * 1e4 / float64(n))
		fill := res.Grid.FillFraction()
		configs = append(configs, config{
			label: fmt.Sprintf("%.0f x %.0f µm² (%.1f%% filled)", channel, channel, fill),
			freq:  freq,
		})
		fmt.Printf("%dx%d bins: %.0f µm channels, %.1f%% filled, max count %d\n", n, n, channel, fill, freq.MaxCount())
	}

	shown := overall
	if shown > *maxCount {
		shown = *maxCount
	}
	var series []occplot.Series
	for i, c := range configs {
		series = append(series, occplot.Series{
			Hist:  c.freq.Hist(shown),
			Label: c.label,
			Color: occplot.SeriesColor(i),
		})
	}

	style := occplot.HistStyle(*title, "NPhotons Per Channel", "Normalized Frequency")
	style.LogY = true
	style.YMin, style.YMax = 1e-7, 10
	if err := occplot.SaveHists(*output, style, series...); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Analysis complete. Check %s\n", *output)
}
