package occplot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenSource delivers its events and then fails, like a truncated file.
type brokenSource struct {
	SliceSource
}

func (s brokenSource) Scan(ctx context.Context, first, last int64, fn func(int64, []PhotonHit) error) error {
	if err := s.SliceSource.Scan(ctx, first, last, fn); err != nil {
		return err
	}
	return errors.New("unexpected end of basket")
}

func fakeOpen(sources map[string]EventSource) func(string, SourceConfig) (EventSource, error) {
	return func(path string, _ SourceConfig) (EventSource, error) {
		src, ok := sources[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		if src == nil {
			return nil, errors.New("not a ROOT file")
		}
		return src, nil
	}
}

func testRunConfig(deadTime float64) RunConfig {
	return RunConfig{
		FirstEvent: 0,
		LastEvent:  1000,
		DeadTime:   deadTime,
		Binning:    testBinning,
		Selection:  testSelection,
		Source:     DefaultSourceConfig(),
		Workers:    1,
	}
}

func TestRunner_SkipsBadInputs(t *testing.T) {
	t.Parallel()

	good := SliceSource{
		{hit(0.5, 0.5, 0), hit(0.5, 0.5, 1)},
		{hit(1.5, 1.5, 0)},
	}
	metrics := NewMetrics()
	runner := &Runner{
		Metrics: metrics,
		Open: fakeOpen(map[string]EventSource{
			"good.root":      good,
			"garbage.root":   nil,
			"truncated.root": brokenSource{SliceSource{{hit(3.5, 3.5, 0)}}},
		}),
	}

	inputs := []string{"good.root", "missing.root", "garbage.root", "truncated.root"}
	res, err := runner.Run(context.Background(), testRunConfig(5), inputs)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Grid.Count(0, 0))
	assert.Equal(t, int64(1), res.Grid.Count(1, 1))
	assert.Zero(t, res.Grid.Count(3, 3), "a file failing halfway contributes nothing")
	assert.Equal(t, Tally{Events: 2, Passed: 3, Accepted: 2, Rejected: 1}, res.Tally)
	assert.Equal(t, 1, res.FilesProcessed())
	assert.NotEmpty(t, res.ID)

	require.Len(t, res.Files, 4)
	assert.NoError(t, res.Files[0].Err)
	assert.ErrorIs(t, res.Files[1].Err, ErrMissingInput)
	assert.ErrorIs(t, res.Files[2].Err, ErrUnreadableInput)
	assert.ErrorIs(t, res.Files[3].Err, ErrUnreadableInput)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.files.WithLabelValues(FileProcessed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.files.WithLabelValues(FileMissing)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.files.WithLabelValues(FileUnreadable)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.eventsProcessed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.photonsAccepted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.photonsRejected), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(metrics.deadTimeSetting), 0)
}

func TestRunner_EmptyResult(t *testing.T) {
	t.Parallel()

	halo := hit(0.5, 0.5, 0)
	halo.IsCore = false
	runner := &Runner{Open: fakeOpen(map[string]EventSource{"a.root": SliceSource{{halo}}})}

	res, err := runner.Run(context.Background(), testRunConfig(0), []string{"a.root", "b.root"})
	require.ErrorIs(t, err, ErrEmptyResult)
	require.NotNil(t, res)
	assert.Equal(t, int64(1), res.Tally.Events)
	assert.Zero(t, res.Grid.Total())
}

func TestRunner_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	runner := &Runner{Open: fakeOpen(nil)}
	bad := map[string]func(*RunConfig){
		"negative dead time": func(rc *RunConfig) { rc.DeadTime = -1 },
		"inverted range":     func(rc *RunConfig) { rc.FirstEvent, rc.LastEvent = 5, 4 },
		"negative first":     func(rc *RunConfig) { rc.FirstEvent = -1 },
		"no workers":         func(rc *RunConfig) { rc.Workers = 0 },
		"bad binning":        func(rc *RunConfig) { rc.Binning.NX = 0 },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			rc := testRunConfig(0)
			mutate(&rc)
			_, err := runner.Run(context.Background(), rc, []string{"a.root"})
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}

	_, err := runner.Run(context.Background(), testRunConfig(0), nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRunner_EventRange(t *testing.T) {
	t.Parallel()

	src := SliceSource{
		{hit(0.5, 0.5, 0)},
		{hit(1.5, 0.5, 0)},
		{hit(2.5, 0.5, 0)},
		{hit(3.5, 0.5, 0)},
	}
	runner := &Runner{Open: fakeOpen(map[string]EventSource{"a.root": src})}
	rc := testRunConfig(0)
	rc.FirstEvent, rc.LastEvent = 1, 2

	res, err := runner.Run(context.Background(), rc, []string{"a.root"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Tally.Events)
	assert.Equal(t, []int64{0, 1, 1, 0}, []int64{
		res.Grid.Count(0, 0), res.Grid.Count(1, 0), res.Grid.Count(2, 0), res.Grid.Count(3, 0),
	})
}

func TestRunner_TwoFilesAdd(t *testing.T) {
	t.Parallel()

	five := SliceSource{make([]PhotonHit, 0, 5)}
	for i := range 5 {
		five[0] = append(five[0], hit(0.5, 0.5, float64(10*i)))
	}
	runner := &Runner{Open: fakeOpen(map[string]EventSource{"a.root": five, "b.root": five})}

	res, err := runner.Run(context.Background(), testRunConfig(5), []string{"a.root", "b.root"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Grid.Count(0, 0))
	assert.Equal(t, 2, res.FilesProcessed())
}

func TestRunner_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))
	sources := make(map[string]EventSource)
	var inputs []string
	for i := range 8 {
		var src SliceSource
		for range 20 {
			src = append(src, randomEvent(rng, 30))
		}
		name := fmt.Sprintf("run%d.root", i)
		sources[name] = src
		inputs = append(inputs, name)
	}
	runner := &Runner{Open: fakeOpen(sources)}

	rc := testRunConfig(3)
	seq, err := runner.Run(context.Background(), rc, inputs)
	require.NoError(t, err)

	rc.Workers = 4
	par, err := runner.Run(context.Background(), rc, inputs)
	require.NoError(t, err)

	assert.Equal(t, seq.Grid.counts, par.Grid.counts)
	assert.Equal(t, seq.Tally, par.Tally)
	assert.NotEqual(t, seq.ID, par.ID)
}

func TestRunner_Cancelled(t *testing.T) {
	t.Parallel()

	runner := &Runner{Open: fakeOpen(map[string]EventSource{"a.root": SliceSource{{hit(0.5, 0.5, 0)}}})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, testRunConfig(0), []string{"a.root"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenSource_Missing(t *testing.T) {
	t.Parallel()

	_, err := OpenSource(t.TempDir()+"/nope.root", DefaultSourceConfig())
	assert.ErrorIs(t, err, ErrMissingInput)
}
