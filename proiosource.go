package occplot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/proio-org/go-proio"
	"github.com/proio-org/go-proio-pb/model/eic"
)

// eic.SimHit positions are in mm, the grid and cuts in cm.
const mmPerCm = 10

// ProioTags selects the proio entries treated as photons.
type ProioTags struct {
	Photon string `koanf:"photon"`
	Core   string `koanf:"core"`
}

func DefaultProioTags() ProioTags {
	return ProioTags{Photon: "Photon", Core: "Core"}
}

type proioSource struct {
	path   string
	reader *proio.Reader
	tags   ProioTags
}

// OpenProio opens a proio stream of eic.SimHit photons. The arrival point is
// the global post-step position of each hit, converted to cm.
func OpenProio(path string, tags ProioTags) (EventSource, error) {
	reader, err := proio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	return &proioSource{path: path, reader: reader, tags: tags}, nil
}

// Events is unknown for proio streams until they are read.
func (s *proioSource) Events() int64 { return -1 }

func (s *proioSource) Scan(ctx context.Context, first, last int64, fn func(int64, []PhotonHit) error) error {
	var hits []PhotonHit
	for ievt := int64(0); ievt <= last; ievt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, err := s.next()
		switch {
		case errors.Is(err, io.EOF) && ievt == 0:
			return fmt.Errorf("%w: %s: no proio events", ErrUnreadableInput, s.path)
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("%w: %s: event %d: %w", ErrUnreadableInput, s.path, ievt, err)
		}
		if ievt < first {
			continue
		}

		core := make(map[uint64]bool)
		for _, id := range event.TaggedEntries(s.tags.Core) {
			core[id] = true
		}

		hits = hits[:0]
		for _, id := range event.TaggedEntries(s.tags.Photon) {
			simHit, ok := event.GetEntry(id).(*eic.SimHit)
			if !ok {
				continue
			}
			pos := simHit.GetGlobalpostpos()
			if pos == nil {
				return fmt.Errorf("%w: %s: event %d: photon %d without position", ErrUnreadableInput, s.path, ievt, id)
			}
			hits = append(hits, PhotonHit{
				X:      pos.GetX() / mmPerCm,
				Y:      pos.GetY() / mmPerCm,
				Z:      pos.GetZ() / mmPerCm,
				T:      pos.GetT(),
				IsCore: core[id],
			})
		}

		if err := fn(ievt, hits); err != nil {
			return err
		}
	}
	return nil
}

// next reads one event. io.EOF is only returned at a bucket boundary; a
// stream ending inside a bucket gives io.ErrUnexpectedEOF.
func (s *proioSource) next() (event *proio.Event, err error) {
	// the reader ignores a failed bucket read and then reads from a nil
	// bucket reader
	defer func() {
		if r := recover(); r != nil {
			event, err = nil, fmt.Errorf("corrupt bucket: %v", r)
		}
	}()

	event, err = s.reader.Next()
	if errors.Is(err, io.EOF) && s.reader.BucketHeader != nil {
		return nil, io.ErrUnexpectedEOF
	}
	if err == nil && event == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return event, err
}

func (s *proioSource) Close() error {
	s.reader.Close()
	return nil
}
