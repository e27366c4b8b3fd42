package occplot

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rbase"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/root"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/rootcnv"
)

// Keys of the objects stored in artifacts.
const (
	KeyPhotonDistribution = "photonDistribution"
	KeyRatioHist          = "RatioHist"

	keyNumFiles  = "NumFiles"
	keyNumEvents = "NumEvents"
	keyDeadTime  = "DeadTime"
	keyRejected  = "RejectedPhotons"
	keyRunID     = "RunID"
)

// GridMeta is stored next to a grid in its artifact.
type GridMeta struct {
	RunID     string
	NumFiles  int
	NumEvents int64
	DeadTime  float64
	Rejected  int64
}

// MetaFromResult fills the artifact metadata of a run.
func MetaFromResult(r *Result, numFiles int) GridMeta {
	return GridMeta{
		RunID:     r.ID,
		NumFiles:  numFiles,
		NumEvents: r.Tally.Events,
		DeadTime:  r.DeadTime,
		Rejected:  r.Tally.Rejected,
	}
}

// GridArtifactName is the base name (no extension) used for run outputs.
func GridArtifactName(deadTime float64, b Binning, numFiles int, events int64) string {
	if deadTime > 0 {
		return fmt.Sprintf("2DHistogram_Deadtime%.1fns_%dx%d_%dfiles_%devents", deadTime, b.NX, b.NY, numFiles, events)
	}
	return fmt.Sprintf("2DHistogram_NoDeadtime_%dx%d_%dfiles_%devents", b.NX, b.NY, numFiles, events)
}

// RatioArtifactName names the ratio histogram file of a comparison.
func RatioArtifactName(deadTime float64, pixels int) string {
	return fmt.Sprintf("RatioHistograms_Deadtime%.1fns_%dx%d.root", deadTime, pixels, pixels)
}

// WriteGridArtifact stores the grid as H2D "photonDistribution" along with
// named metadata strings.
func WriteGridArtifact(path string, g *Grid, meta GridMeta) error {
	f, err := groot.Create(path)
	if err != nil {
		return fmt.Errorf("occplot: create %s: %w", path, err)
	}
	defer f.Close()

	named := []struct{ key, value string }{
		{keyNumFiles, strconv.Itoa(meta.NumFiles)},
		{keyNumEvents, strconv.FormatInt(meta.NumEvents, 10)},
		{keyDeadTime, strconv.FormatFloat(meta.DeadTime, 'f', 6, 64)},
		{keyRejected, strconv.FormatInt(meta.Rejected, 10)},
		{keyRunID, meta.RunID},
	}
	for _, n := range named {
		if err := f.Put(n.key, rbase.NewNamed(n.key, n.value)); err != nil {
			return fmt.Errorf("occplot: write %s to %s: %w", n.key, path, err)
		}
	}
	if err := f.Put(KeyPhotonDistribution, rhist.NewH2DFrom(g.H2D())); err != nil {
		return fmt.Errorf("occplot: write grid to %s: %w", path, err)
	}
	return f.Close()
}

// ReadGridArtifact loads a grid written by WriteGridArtifact. Metadata
// entries that are absent are left zero.
func ReadGridArtifact(path string) (*Grid, GridMeta, error) {
	var meta GridMeta

	f, err := openArtifact(path)
	if err != nil {
		return nil, meta, err
	}
	defer f.Close()

	h, err := readH2D(f, KeyPhotonDistribution)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	g, err := GridFromH2D(h)
	if err != nil {
		return nil, meta, fmt.Errorf("%s: %w", path, err)
	}

	for key, set := range map[string]func(string) error{
		keyNumFiles: func(s string) (err error) {
			meta.NumFiles, err = strconv.Atoi(s)
			return err
		},
		keyNumEvents: func(s string) (err error) {
			meta.NumEvents, err = strconv.ParseInt(s, 10, 64)
			return err
		},
		keyDeadTime: func(s string) (err error) {
			meta.DeadTime, err = strconv.ParseFloat(s, 64)
			return err
		},
		keyRejected: func(s string) (err error) {
			meta.Rejected, err = strconv.ParseInt(s, 10, 64)
			return err
		},
		keyRunID: func(s string) error {
			meta.RunID = s
			return nil
		},
	} {
		obj, err := f.Get(key)
		if err != nil {
			continue
		}
		n, ok := obj.(root.Named)
		if !ok {
			continue
		}
		if err := set(n.Title()); err != nil {
			return nil, meta, fmt.Errorf("%w: %s: %s: %w", ErrUnreadableInput, path, key, err)
		}
	}
	return g, meta, nil
}

// RatioArtifact is the content of a comparison output file.
type RatioArtifact struct {
	Ratio   *RatioGrid
	NoDead  *Grid
	Dead    *Grid
	Regions map[string]*hbook.H1D
}

// Region histogram keys.
const (
	KeyAllRegions = "AllRegions"
	KeyOutside    = "OutsideCircle1"
	KeyRing       = "InsideCircle1_OutsideCircle2"
	KeyInside     = "InsideCircle2"
	keyNoDeadHist = "NoDeadtimeHist"
	keyDeadHist   = "DeadtimeHist"
)

func WriteRatioArtifact(path string, a RatioArtifact) error {
	f, err := groot.Create(path)
	if err != nil {
		return fmt.Errorf("occplot: create %s: %w", path, err)
	}
	defer f.Close()

	put := func(key string, obj root.Object) error {
		if err := f.Put(key, obj); err != nil {
			return fmt.Errorf("occplot: write %s to %s: %w", key, path, err)
		}
		return nil
	}
	for _, key := range []string{KeyAllRegions, KeyOutside, KeyRing, KeyInside} {
		h, ok := a.Regions[key]
		if !ok {
			continue
		}
		if err := put(key, rhist.NewH1DFrom(h)); err != nil {
			return err
		}
	}
	if a.NoDead != nil {
		if err := put(keyNoDeadHist, rhist.NewH2DFrom(a.NoDead.H2D())); err != nil {
			return err
		}
	}
	if a.Dead != nil {
		if err := put(keyDeadHist, rhist.NewH2DFrom(a.Dead.H2D())); err != nil {
			return err
		}
	}
	if err := put(KeyRatioHist, rhist.NewH2DFrom(a.Ratio.H2D())); err != nil {
		return err
	}
	return f.Close()
}

// ReadRatioGrid loads the "RatioHist" histogram of a comparison output.
func ReadRatioGrid(path string) (*RatioGrid, error) {
	f, err := openArtifact(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := readH2D(f, KeyRatioHist)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	return RatioGridFromH2D(h)
}

func openArtifact(path string) (*riofs.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	return f, nil
}

func readH2D(f *riofs.File, key string) (*hbook.H2D, error) {
	obj, err := f.Get(key)
	if err != nil {
		return nil, err
	}
	h, ok := obj.(rhist.H2)
	if !ok {
		return nil, fmt.Errorf("%q is a %T, not a 2-D histogram", key, obj)
	}
	return rootcnv.H2D(h), nil
}

// RadialGraphName names the graph of one dead time and grid size.
func RadialGraphName(deadTime float64, pixels int) string {
	return fmt.Sprintf("RatioVsRadius_Deadtime%.1fns_%dx%d", deadTime, pixels, pixels)
}

// WriteRadialArtifact stores ratio against distance graphs, keyed by name.
func WriteRadialArtifact(path string, graphs map[string][]RadialPoint) error {
	f, err := groot.Create(path)
	if err != nil {
		return fmt.Errorf("occplot: create %s: %w", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(graphs))
	for name := range graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pts := make([]hbook.Point2D, len(graphs[name]))
		for i, p := range graphs[name] {
			pts[i] = hbook.Point2D{X: p.Distance, Y: p.Ratio}
		}
		s2 := hbook.NewS2D(pts...)
		if err := f.Put(name, rhist.NewGraphFrom(s2)); err != nil {
			return fmt.Errorf("occplot: write %s to %s: %w", name, path, err)
		}
	}
	return f.Close()
}
