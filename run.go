package occplot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunConfig holds what an accumulation run needs besides its inputs.
type RunConfig struct {
	FirstEvent int64
	LastEvent  int64
	DeadTime   float64
	Binning    Binning
	Selection  Selection
	Source     SourceConfig
	Workers    int
}

func (rc RunConfig) Validate() error {
	if rc.FirstEvent < 0 || rc.LastEvent < rc.FirstEvent {
		return fmt.Errorf("%w: event range [%d,%d]", ErrInvalidConfiguration, rc.FirstEvent, rc.LastEvent)
	}
	if rc.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfiguration, rc.Workers)
	}
	// the accumulator checks the rest
	_, err := NewAccumulator(rc.Binning, rc.Selection, rc.DeadTime)
	return err
}

// FileResult reports the contribution of one input unit.
type FileResult struct {
	Path  string
	Tally Tally
	// Err is set when the file was skipped; it wraps ErrMissingInput or
	// ErrUnreadableInput.
	Err error
}

func (fr FileResult) status() string {
	switch {
	case fr.Err == nil:
		return FileProcessed
	case errors.Is(fr.Err, ErrMissingInput):
		return FileMissing
	default:
		return FileUnreadable
	}
}

// Result is the outcome of a run. The grid is owned by the caller.
type Result struct {
	ID       string
	DeadTime float64
	Grid     *Grid
	Tally    Tally
	Files    []FileResult
}

// FilesProcessed counts input units that contributed.
func (r *Result) FilesProcessed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil {
			n++
		}
	}
	return n
}

// Runner accumulates occupancy over a list of input files. Each file is
// filled into its own accumulator and merged into the run grid only once it
// has been read completely, so a file failing halfway contributes nothing.
type Runner struct {
	Logger  *slog.Logger
	Metrics *Metrics
	// Open defaults to OpenSource.
	Open func(path string, cfg SourceConfig) (EventSource, error)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) Run(ctx context.Context, rc RunConfig, inputs []string) (*Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrInvalidConfiguration)
	}

	start := time.Now()
	logger := r.logger().With("module", "run")

	type outcome struct {
		res  FileResult
		grid *Grid
	}
	outcomes := make([]outcome, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.Workers)
	for i, path := range inputs {
		g.Go(func() error {
			logger.Info(fmt.Sprintf("Processing file %d/%d: %s", i+1, len(inputs), path))
			res, grid := r.processFile(gctx, rc, path)
			if res.Err != nil && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
				return res.Err
			}
			outcomes[i] = outcome{res: res, grid: grid}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		ID:       uuid.NewString(),
		DeadTime: rc.DeadTime,
		Grid:     NewGrid(rc.Binning),
	}
	for _, o := range outcomes {
		result.Files = append(result.Files, o.res)
		r.Metrics.observeFile(o.res.status(), o.res.Tally)
		if o.res.Err != nil {
			logger.Warn("skipping input", "file", o.res.Path, "error", o.res.Err)
			continue
		}
		if err := result.Grid.Merge(o.grid); err != nil {
			return nil, err
		}
		result.Tally.add(o.res.Tally)
	}
	r.Metrics.observeRun(rc.DeadTime, time.Since(start))

	if result.Grid.Total() == 0 {
		return result, fmt.Errorf("%w: %d of %d files processed, %d events",
			ErrEmptyResult, result.FilesProcessed(), len(inputs), result.Tally.Events)
	}
	return result, nil
}

func (r *Runner) processFile(ctx context.Context, rc RunConfig, path string) (FileResult, *Grid) {
	res := FileResult{Path: path}
	logger := r.logger().With("file", path)

	open := r.Open
	if open == nil {
		open = OpenSource
	}
	src, err := open(path, rc.Source)
	if err != nil {
		if !errors.Is(err, ErrMissingInput) && !errors.Is(err, ErrUnreadableInput) {
			err = fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
		}
		res.Err = err
		return res, nil
	}
	defer src.Close()

	if n := src.Events(); n >= 0 {
		logger.Debug(fmt.Sprintf("File contains %d events", n))
	}

	acc, err := NewAccumulator(rc.Binning, rc.Selection, rc.DeadTime)
	if err != nil {
		res.Err = err
		return res, nil
	}
	err = src.Scan(ctx, rc.FirstEvent, rc.LastEvent, func(_ int64, hits []PhotonHit) error {
		acc.AddEvent(hits)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUnreadableInput) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
		}
		res.Err = err
		return res, nil
	}

	res.Tally = acc.Tally()
	logger.Info(fmt.Sprintf("Processed %d events", res.Tally.Events))
	logger.Info(fmt.Sprintf("Found %d photons passing criteria", res.Tally.Passed))
	logger.Info(fmt.Sprintf("Added %d photons to histogram", res.Tally.Accepted))
	logger.Info(fmt.Sprintf("Rejected %d photons due to %g ns deadtime", res.Tally.Rejected, rc.DeadTime))
	return res, acc.Grid()
}
