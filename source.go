package occplot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EventSource gives sequential access to the photon hits of an input unit.
type EventSource interface {
	// Events returns the number of events, or -1 when the format cannot tell
	// without reading everything.
	Events() int64
	// Scan calls fn for every event with index in [first, last], in order.
	// The hits slice is only valid during the call.
	Scan(ctx context.Context, first, last int64, fn func(ievt int64, hits []PhotonHit) error) error
	Close() error
}

// SourceConfig selects where photon arrays are read from.
type SourceConfig struct {
	Tree     string       `koanf:"tree"`
	Branches RootBranches `koanf:"branches"`
	Proio    ProioTags    `koanf:"proio"`
}

func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Tree:     "tree",
		Branches: DefaultRootBranches(),
		Proio:    DefaultProioTags(),
	}
}

// OpenSource opens path with the reader matching its extension. A path that
// does not exist yields ErrMissingInput; anything else that goes wrong while
// opening yields ErrUnreadableInput.
func OpenSource(path string, cfg SourceConfig) (EventSource, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".root":
		return OpenROOT(path, cfg.Tree, cfg.Branches)
	case ".proio":
		return OpenProio(path, cfg.Proio)
	default:
		return nil, fmt.Errorf("%w: %s: unknown file type", ErrUnreadableInput, path)
	}
}

// SliceSource serves events already held in memory.
type SliceSource [][]PhotonHit

func (s SliceSource) Events() int64 { return int64(len(s)) }

func (s SliceSource) Scan(ctx context.Context, first, last int64, fn func(int64, []PhotonHit) error) error {
	for i := first; i <= last && i < int64(len(s)); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, s[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s SliceSource) Close() error { return nil }
