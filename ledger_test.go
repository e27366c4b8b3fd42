package occplot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_RecordAndList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	ledger, err := OpenLedger(path)
	require.NoError(t, err)

	ctx := context.Background()
	older := LedgerEntry{
		ID:        "run-1",
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		DeadTime:  0,
		NX:        400,
		NY:        400,
		Files:     1,
		Events:    20,
		Accepted:  1234,
		Output:    "2DHistogram_NoDeadtime_400x400_1files_20events.png",
	}
	newer := LedgerEntry{
		ID:        "run-2",
		CreatedAt: older.CreatedAt.Add(time.Hour),
		DeadTime:  30,
		NX:        100,
		NY:        100,
		Files:     10,
		Events:    200,
		Accepted:  9000,
		Rejected:  800,
		Output:    "2DHistogram_Deadtime30.0ns_100x100_10files_200events.root",
	}
	require.NoError(t, ledger.Record(ctx, older))
	require.NoError(t, ledger.Record(ctx, newer))
	assert.Error(t, ledger.Record(ctx, older), "run ids are unique")
	require.NoError(t, ledger.Close())

	// reopening keeps the history
	ledger, err = OpenLedger(path)
	require.NoError(t, err)
	defer ledger.Close()

	runs, err := ledger.Runs(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]LedgerEntry{newer, older}, runs); diff != "" {
		t.Errorf("Runs() mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryFromResult(t *testing.T) {
	t.Parallel()

	g := NewGrid(testBinning)
	g.Add(Bin{IX: 1, IY: 1}, 7)
	res := &Result{
		ID:       "abc",
		DeadTime: 5,
		Grid:     g,
		Tally:    Tally{Events: 3, Passed: 9, Accepted: 7, Rejected: 2},
		Files:    []FileResult{{Path: "a.root"}, {Path: "b.root", Err: ErrMissingInput}},
	}

	e := EntryFromResult(res, "out.png")
	assert.Equal(t, "abc", e.ID)
	assert.Equal(t, 1, e.Files)
	assert.Equal(t, 4, e.NX)
	assert.Equal(t, int64(7), e.Accepted)
	assert.Equal(t, int64(2), e.Rejected)
	assert.Equal(t, "out.png", e.Output)
	assert.False(t, e.CreatedAt.IsZero())
}
