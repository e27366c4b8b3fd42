package occplot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	dead_time  REAL    NOT NULL,
	nx         INTEGER NOT NULL,
	ny         INTEGER NOT NULL,
	files      INTEGER NOT NULL,
	events     INTEGER NOT NULL,
	accepted   INTEGER NOT NULL,
	rejected   INTEGER NOT NULL,
	output     TEXT    NOT NULL
)`

// LedgerEntry is one finished run.
type LedgerEntry struct {
	ID        string
	CreatedAt time.Time
	DeadTime  float64
	NX, NY    int
	Files     int
	Events    int64
	Accepted  int64
	Rejected  int64
	Output    string
}

type ledgerRow struct {
	ID        string  `db:"id"`
	CreatedAt int64   `db:"created_at"`
	DeadTime  float64 `db:"dead_time"`
	NX        int     `db:"nx"`
	NY        int     `db:"ny"`
	Files     int     `db:"files"`
	Events    int64   `db:"events"`
	Accepted  int64   `db:"accepted"`
	Rejected  int64   `db:"rejected"`
	Output    string  `db:"output"`
}

// EntryFromResult describes a successful run that produced output.
func EntryFromResult(r *Result, output string) LedgerEntry {
	return LedgerEntry{
		ID:        r.ID,
		CreatedAt: time.Now(),
		DeadTime:  r.DeadTime,
		NX:        r.Grid.Binning.NX,
		NY:        r.Grid.Binning.NY,
		Files:     r.FilesProcessed(),
		Events:    r.Tally.Events,
		Accepted:  r.Tally.Accepted,
		Rejected:  r.Tally.Rejected,
		Output:    output,
	}
}

// Ledger records runs in a sqlite database.
type Ledger struct {
	db *sqlx.DB
}

func OpenLedger(path string) (*Ledger, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("occplot: open ledger %s: %w", path, err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("occplot: create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Record(ctx context.Context, e LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	row := ledgerRow{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UnixNano(),
		DeadTime:  e.DeadTime,
		NX:        e.NX,
		NY:        e.NY,
		Files:     e.Files,
		Events:    e.Events,
		Accepted:  e.Accepted,
		Rejected:  e.Rejected,
		Output:    e.Output,
	}
	_, err := l.db.NamedExecContext(ctx,
		`INSERT INTO runs (id, created_at, dead_time, nx, ny, files, events, accepted, rejected, output)
		 VALUES (:id, :created_at, :dead_time, :nx, :ny, :files, :events, :accepted, :rejected, :output)`,
		row)
	if err != nil {
		return fmt.Errorf("occplot: record run %s: %w", e.ID, err)
	}
	return nil
}

// Runs lists recorded runs, newest first.
func (l *Ledger) Runs(ctx context.Context) ([]LedgerEntry, error) {
	var rows []ledgerRow
	err := l.db.SelectContext(ctx, &rows,
		`SELECT id, created_at, dead_time, nx, ny, files, events, accepted, rejected, output
		 FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("occplot: list runs: %w", err)
	}

	entries := make([]LedgerEntry, len(rows))
	for i, r := range rows {
		entries[i] = LedgerEntry{
			ID:        r.ID,
			CreatedAt: time.Unix(0, r.CreatedAt),
			DeadTime:  r.DeadTime,
			NX:        r.NX,
			NY:        r.NY,
			Files:     r.Files,
			Events:    r.Events,
			Accepted:  r.Accepted,
			Rejected:  r.Rejected,
			Output:    r.Output,
		}
	}
	return entries, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
