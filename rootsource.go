package occplot

import (
	"context"
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// RootBranches names the per-event std::vector branches holding the photon
// arrays.
type RootBranches struct {
	X    string `koanf:"x"`
	Y    string `koanf:"y"`
	Z    string `koanf:"z"`
	T    string `koanf:"t"`
	Core string `koanf:"core"`
}

func DefaultRootBranches() RootBranches {
	return RootBranches{
		X:    "OP_pos_final_x",
		Y:    "OP_pos_final_y",
		Z:    "OP_pos_final_z",
		T:    "OP_time_final",
		Core: "OP_isCoreC",
	}
}

type rootSource struct {
	path string
	f    *riofs.File
	t    rtree.Tree
	br   RootBranches
}

// OpenROOT opens the photon tree of a ROOT file. The tree name may carry a
// cycle, e.g. "tree;4".
func OpenROOT(path, tree string, br RootBranches) (EventSource, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}

	obj, err := f.Get(tree)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: tree %q: %w", ErrUnreadableInput, path, tree, err)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %q is a %T, not a tree", ErrUnreadableInput, path, tree, obj)
	}
	for _, name := range []string{br.X, br.Y, br.Z, br.T, br.Core} {
		if t.Branch(name) == nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: no branch %q in tree %q", ErrUnreadableInput, path, name, tree)
		}
	}

	return &rootSource{path: path, f: f, t: t, br: br}, nil
}

func (s *rootSource) Events() int64 { return s.t.Entries() }

func (s *rootSource) Scan(ctx context.Context, first, last int64, fn func(int64, []PhotonHit) error) error {
	if n := s.t.Entries(); last >= n {
		last = n - 1
	}
	if first > last {
		return nil
	}

	var (
		xs, ys, zs, ts []float64
		core           []bool
		hits           []PhotonHit
	)
	rvars := []rtree.ReadVar{
		{Name: s.br.X, Value: &xs},
		{Name: s.br.Y, Value: &ys},
		{Name: s.br.Z, Value: &zs},
		{Name: s.br.T, Value: &ts},
		{Name: s.br.Core, Value: &core},
	}
	r, err := rtree.NewReader(s.t, rvars, rtree.WithRange(first, last+1))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreadableInput, s.path, err)
	}
	defer r.Close()

	var cbErr error
	err = r.Read(func(rctx rtree.RCtx) error {
		if err := ctx.Err(); err != nil {
			cbErr = err
			return err
		}
		n := len(xs)
		if len(ys) != n || len(zs) != n || len(ts) != n || len(core) != n {
			return fmt.Errorf("event %d: photon arrays of unequal length (%d,%d,%d,%d,%d)",
				rctx.Entry, len(xs), len(ys), len(zs), len(ts), len(core))
		}
		hits = hits[:0]
		for i := 0; i < n; i++ {
			hits = append(hits, PhotonHit{X: xs[i], Y: ys[i], Z: zs[i], T: ts[i], IsCore: core[i]})
		}
		if err := fn(rctx.Entry, hits); err != nil {
			cbErr = err
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case cbErr != nil:
		return cbErr
	default:
		return fmt.Errorf("%w: %s: %w", ErrUnreadableInput, s.path, err)
	}
}

func (s *rootSource) Close() error { return s.f.Close() }
