package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/profile"

	"github.com/decibelcooper/occplot"
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options]

Plots the reception ratio of each channel against its distance from the
beam spot, for several dead times and grid sizes, and the mean ratio in
distance bins.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	def := occplot.DefaultConfig()
	var (
		inDir       = flag.String("indir", "ana_datas", "directory holding RatioHistograms files")
		outDir      = flag.String("outdir", "RatioVsRadius_Histograms", "output directory")
		graphs      = flag.String("graphs", "RatioVsRadius.root", "ROOT file receiving the ratio vs distance graphs")
		cx          = flag.Float64("cx", def.Selection.ROI.X, "centre x (cm)")
		cy          = flag.Float64("cy", def.Selection.ROI.Y, "centre y (cm)")
		maxDistance = flag.Float64("maxdist", 0.05, "largest distance from the centre (cm)")
		nBins       = flag.Int("nbins", 20, "number of distance bins")
		dMin        = flag.Float64("dmin", 0.0015, "lower edge of the distance bins (cm)")
		dMax        = flag.Float64("dmax", 0.0415, "upper edge of the distance bins (cm)")
		logLevel    = flag.String("loglevel", "info", "log level")
		prof        = flag.Bool("profile", false, "write a CPU profile")
		deadTimes   = occplot.FloatArrayFlags{Array: []float64{0, 5, 10, 30}}
		gridSizes   = occplot.IntArrayFlags{Array: []int{100, 50, 25, 20}}
	)
	flag.Var(&deadTimes, "deadtime", "dead time in ns, repeatable")
	flag.Var(&gridSizes, "grid", "bins per axis, repeatable")
	flag.Usage = printUsage
	flag.Parse()
	if *nBins < 1 || !(*dMax > *dMin) || *maxDistance <= 0 {
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
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	sizes := append([]int(nil), gridSizes.Array...)
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))

	all := make(map[string][]occplot.RadialPoint)
	for _, dt := range deadTimes.Array {
		var points, profiles []occplot.PointSeries
		for _, n := range sizes {
			path := filepath.Join(*inDir, occplot.RatioArtifactName(dt, n))
			ratio, err := occplot.ReadRatioGrid(path)
			if err != nil {
				if errors.Is(err, occplot.ErrMissingInput) {
					logger.Warn("File not found", "file", path)
				} else {
					logger.Warn("skipping input", "file", path, "error", err)
				}
				continue
			}

			pts := occplot.RadialPoints(ratio, *cx, *cy, *maxDistance)
			if len(pts) == 0 {
				continue
			}
			all[occplot.RadialGraphName(dt, n)] = pts
			fmt.Printf("Created graph for deadtime %.1f ns, grid size %dx%d with %d points.\n", dt, n, n, len(pts))

			pitch := math.Round(ratio.Binning.XWidth()*1e5) / 10
			label := fmt.Sprintf("dSiPM pitch %.1f µm", pitch)
			points = append(points, occplot.RadialSeries(pts, label))
			profiles = append(profiles, occplot.ProfileSeries(occplot.RadialProfile(pts, *nBins, *dMin, *dMax), label))
		}
		if len(points) == 0 {
			logger.Warn(fmt.Sprintf("No ratio histograms for dead time %.1f ns", dt))
			continue
		}

		style := occplot.HistStyle(fmt.Sprintf("Ratio vs Distance from Center (Deadtime %.1f ns)", dt),
			"Distance from Center [cm]", "Reception Ratio")
		out := filepath.Join(*outDir, fmt.Sprintf("RatioVsRadiusPoints_Deadtime%.1fns.png", dt))
		if err := occplot.SavePoints(out, style, points...); err != nil {
			log.Fatal(err)
		}

		style.Title = fmt.Sprintf("Mean Ratio vs Distance - Deadtime %.1f ns", dt)
		style.YLabel = "Mean Reception Ratio"
		out = filepath.Join(*outDir, fmt.Sprintf("RatioVsRadius_Deadtime%.1fns.png", dt))
		if err := occplot.SavePoints(out, style, profiles...); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Saved %s\n", out)
	}

	if len(all) == 0 {
		log.Fatal(occplot.ErrEmptyResult)
	}
	if err := occplot.WriteRadialArtifact(*graphs, all); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Analysis completed. Results saved to %s\n", *graphs)
}
