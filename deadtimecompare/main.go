package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/profile"
	"go-hep.org/x/hep/hbook"

	"github.com/decibelcooper/occplot"
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options]

Compares grids accumulated without and with dead time: reception ratio map,
rejection rate, circles enclosing given fractions of the photons and ratio
distributions inside and outside them.

options:
`,
	)
	flag.PrintDefaults()
}

var pixelSizes = map[int]bool{20: true, 25: true, 40: true, 50: true, 80: true, 100: true}

type options struct {
	baseDir  string
	outDir   string
	deadTime float64
	files    int
	events   int64
	target1  float64
	target2  float64
	center   occplot.Circle
	search   occplot.RadiusSearch
}

func (o options) validate(pixels []int) error {
	for _, p := range pixels {
		if !pixelSizes[p] {
			return fmt.Errorf("%w: pixel size %d, must be one of 20, 25, 40, 50, 80, 100", occplot.ErrInvalidConfiguration, p)
		}
	}
	for _, t := range []float64{o.target1, o.target2} {
		if t <= 0 || t >= 1 {
			return fmt.Errorf("%w: circle ratio %g must be between 0 and 1", occplot.ErrInvalidConfiguration, t)
		}
	}
	if o.deadTime < 0 {
		return fmt.Errorf("%w: negative dead time %g", occplot.ErrInvalidConfiguration, o.deadTime)
	}
	return nil
}

func main() {
	def := occplot.DefaultConfig()
	var (
		o        options
		pixels   = occplot.IntArrayFlags{Array: []int{100}}
		logLevel = flag.String("loglevel", "info", "log level")
		prof     = flag.Bool("profile", false, "write a CPU profile")
	)
	flag.StringVar(&o.baseDir, "basedir", "../deadtimedata/", "directory holding the grid artifacts")
	flag.StringVar(&o.outDir, "outdir", ".", "output directory")
	flag.Float64Var(&o.deadTime, "deadtime", 30, "dead time in ns, 0 compares the no-deadtime grid with itself")
	flag.IntVar(&o.files, "files", 10, "number of files in the artifact names")
	flag.Int64Var(&o.events, "events", 200, "number of events in the artifact names")
	flag.Float64Var(&o.target1, "ratio1", 0.20, "fraction enclosed by the outer circle")
	flag.Float64Var(&o.target2, "ratio2", 0.15, "fraction enclosed by the inner circle")
	flag.Float64Var(&o.center.X, "cx", def.Selection.ROI.X, "circle centre x (cm)")
	flag.Float64Var(&o.center.Y, "cy", def.Selection.ROI.Y, "circle centre y (cm)")
	flag.Var(&pixels, "pixels", "bins per axis: 20, 25, 40, 50, 80 or 100, repeatable")
	flag.Usage = printUsage
	flag.Parse()
	o.search = occplot.DefaultRadiusSearch()

	if err := o.validate(pixels.Array); err != nil {
		printUsage()
		log.Fatal(err)
	}
	if *prof {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	logger, err := occplot.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	var failed bool
	for _, p := range pixels.Array {
		if err := compare(logger, o, p); err != nil {
			logger.Error(err.Error(), "pixels", p)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func artifactPath(o options, deadTime float64, pixels int) string {
	b := occplot.Binning{NX: pixels, NY: pixels}
	return filepath.Join(o.baseDir, occplot.GridArtifactName(deadTime, b, o.files, o.events)+".root")
}

func compare(logger *slog.Logger, o options, pixels int) error {
	noDeadPath := artifactPath(o, 0, pixels)
	deadPath := noDeadPath
	if o.deadTime > 0 {
		deadPath = artifactPath(o, o.deadTime, pixels)
	}
	fmt.Println("Processing files:")
	fmt.Printf("- No deadtime: %s\n", noDeadPath)
	fmt.Printf("- With deadtime: %s\n", deadPath)
	fmt.Printf("- Circle targets: %.0f%% and %.0f%%\n", 100*o.target1, 100*o.target2)

	noDead, _, err := occplot.ReadGridArtifact(noDeadPath)
	if err != nil {
		return err
	}
	dead, _, err := occplot.ReadGridArtifact(deadPath)
	if err != nil {
		return err
	}
	ratio, err := occplot.NewRatioGrid(noDead, dead)
	if err != nil {
		return err
	}

	c := o.center
	logger.Debug(fmt.Sprintf("Searching for %.0f%% circle radius", 100*o.target1))
	r1, noDeadRatio1 := o.search.FindRadius(noDead, c.X, c.Y, o.target1)
	logger.Debug(fmt.Sprintf("Searching for %.0f%% circle radius", 100*o.target2))
	r2, noDeadRatio2 := o.search.FindRadius(noDead, c.X, c.Y, o.target2)
	circle1 := occplot.Circle{X: c.X, Y: c.Y, R: r1}
	circle2 := occplot.Circle{X: c.X, Y: c.Y, R: r2}
	deadRatio1 := occplot.CircleRatio(dead, circle1)
	deadRatio2 := occplot.CircleRatio(dead, circle2)

	blue := color.RGBA{B: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}
	overlays := func(a1, a2 float64) []occplot.CircleOverlay {
		return []occplot.CircleOverlay{
			{Circle: circle1, Color: blue, Label: fmt.Sprintf("R = %.4f cm (%.1f%%)", r1, 100*a1)},
			{Circle: circle2, Color: red, Label: fmt.Sprintf("R = %.4f cm (%.1f%%)", r2, 100*a2)},
		}
	}

	// channel pitch in µm; grid bounds are in cm
	um := int(math.Round(noDead.Binning.XWidth() * 1e4))
	outputs := []string{
		fmt.Sprintf("NoDeadtime_%dx%d_withCircles_%.0f_%.0f.png", pixels, pixels, 100*o.target1, 100*o.target2),
		fmt.Sprintf("Deadtime%.1fns_%dx%d_withCircles.png", o.deadTime, pixels, pixels),
		fmt.Sprintf("ReceptionRatio_Deadtime%.1fns_%dx%d.png", o.deadTime, pixels, pixels),
		fmt.Sprintf("RatioDistribution_Deadtime%.1fns_%dx%d.png", o.deadTime, pixels, pixels),
		occplot.RatioArtifactName(o.deadTime, pixels),
	}
	out := func(i int) string { return filepath.Join(o.outDir, outputs[i]) }

	err = occplot.SaveHeatMap(out(0), noDead,
		occplot.HeatMapStyle(fmt.Sprintf("No Deadtime - %dx%d µm²", um, um)),
		overlays(noDeadRatio1, noDeadRatio2)...)
	if err != nil {
		return err
	}
	err = occplot.SaveHeatMap(out(1), dead,
		occplot.HeatMapStyle(fmt.Sprintf("Deadtime %.1f ns - %dx%d µm²", o.deadTime, um, um)),
		overlays(deadRatio1, deadRatio2)...)
	if err != nil {
		return err
	}
	ratioStyle := occplot.HeatMapStyle(fmt.Sprintf("Reception Ratio - %dx%d µm²", um, um))
	ratioStyle.ZMin, ratioStyle.ZMax = 0, 1
	if err := occplot.SaveHeatMap(out(2), ratio, ratioStyle); err != nil {
		return err
	}

	const (
		ratioBins = 50
		ratioMin  = 0.65
		ratioMax  = 1.1
	)
	reg := occplot.CollectRegions(ratio, c.X, c.Y, r1, r2)
	regions := []struct {
		key, label string
		values     []float64
		color      color.Color
	}{
		{occplot.KeyAllRegions, "All Regions", reg.All, color.Black},
		{occplot.KeyOutside, "Outside Blue Circle", reg.Outer, color.RGBA{G: 160, A: 255}},
		{occplot.KeyRing, "Inside Blue Circle, Outside Red Circle", reg.Ring, blue},
		{occplot.KeyInside, "Inside Red Circle", reg.Inner, red},
	}

	artifact := occplot.RatioArtifact{Ratio: ratio, NoDead: noDead, Dead: dead, Regions: map[string]*hbook.H1D{}}
	var series []occplot.Series
	var stats []string
	for i, r := range regions {
		h := occplot.RatioHist(r.values, ratioBins, ratioMin, ratioMax)
		artifact.Regions[r.key] = h
		mean, rms := occplot.MeanRMS(r.values)
		stats = append(stats, fmt.Sprintf("- %s: %d values, Mean=%.4f, RMS=%.4f", r.label, len(r.values), mean, rms))
		if i == 0 {
			continue
		}
		series = append(series, occplot.Series{
			Hist:  h,
			Label: fmt.Sprintf("%s (Mean=%.4f, RMS=%.4f)", r.label, mean, rms),
			Color: r.color,
		})
	}
	distStyle := occplot.HistStyle(
		fmt.Sprintf("Reception Ratio Distribution - %dx%d µm², Deadtime %.1f ns", um, um, o.deadTime),
		"Reception Ratio", "Number of Pixels")
	if err := occplot.SaveHists(out(3), distStyle, series...); err != nil {
		return err
	}
	if err := occplot.WriteRatioArtifact(out(4), artifact); err != nil {
		return err
	}

	fmt.Printf("\nTotal entries in No Deadtime histogram: %d\n", noDead.Total())
	fmt.Printf("Total entries in Deadtime histogram: %d\n", dead.Total())
	fmt.Printf("Rejection rate: %.2f%%\n", occplot.RejectionRate(noDead, dead))

	fmt.Println("\nCircle Information:")
	fmt.Printf("- %.0f%% Circle (Blue): Radius = %.4f cm\n", 100*o.target1, r1)
	fmt.Printf("  No Deadtime Ratio = %.2f%%\n", 100*noDeadRatio1)
	fmt.Printf("  With Deadtime Ratio = %.2f%%\n", 100*deadRatio1)
	fmt.Printf("- %.0f%% Circle (Red): Radius = %.4f cm\n", 100*o.target2, r2)
	fmt.Printf("  No Deadtime Ratio = %.2f%%\n", 100*noDeadRatio2)
	fmt.Printf("  With Deadtime Ratio = %.2f%%\n", 100*deadRatio2)

	fmt.Println("\nRatio Distribution Statistics:")
	for _, s := range stats {
		fmt.Println(s)
	}

	fmt.Println("\nSummary:")
	fmt.Println("- Outputs saved to:")
	for i := range outputs {
		fmt.Printf("  - %s\n", out(i))
	}
	return nil
}
