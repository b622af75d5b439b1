// Package store is the scratch warehouse behind snapshot builds. Raw
// incident and mobilisation rows are staged into SQLite, the
// first-pump reduction runs as SQL, and the builder streams the joined
// rows back out. Nothing here outlives a build; the snapshot is the
// durable artifact.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Warehouse wraps the staging database for one or more builds.
type Warehouse struct {
	db *sql.DB
}

// Open opens (or creates) the staging database and configures WAL mode.
func Open(path string) (*Warehouse, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Warehouse{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS incidents (
	incident_number TEXT PRIMARY KEY,
	called_at       DATETIME NOT NULL,
	incident_type   TEXT NOT NULL,
	borough         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mobilisations (
	id               TEXT PRIMARY KEY,
	incident_number  TEXT NOT NULL,
	pump_order       INTEGER NOT NULL,
	turnout_seconds  REAL,
	travel_seconds   REAL,
	response_seconds REAL,
	delay_code       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS build_runs (
	id            TEXT PRIMARY KEY,
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME,
	incidents     INTEGER,
	mobilisations INTEGER,
	snapshot      TEXT
);

CREATE INDEX IF NOT EXISTS idx_mobilisations_incident
	ON mobilisations(incident_number, pump_order);
`

// Migrate creates the staging schema.
func (w *Warehouse) Migrate(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// Reset clears the staging tables ahead of a fresh build. Build run
// bookkeeping survives.
func (w *Warehouse) Reset(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM incidents`,
		`DELETE FROM mobilisations`,
	} {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "store: reset: %s", stmt)
		}
	}
	return nil
}

// IncidentRow is one staged incident record.
type IncidentRow struct {
	Number  string
	Time    time.Time
	Type    string
	Borough string
}

// MobilisationRow is one staged pump mobilisation.
type MobilisationRow struct {
	IncidentNumber string
	PumpOrder      int
	Turnout        sql.NullFloat64
	Travel         sql.NullFloat64
	Response       sql.NullFloat64
	DelayCode      string
}

// InsertIncidents stages incident rows in one transaction. A repeated
// incident number replaces the earlier row, so re-ingesting a source
// file is harmless.
func (w *Warehouse) InsertIncidents(ctx context.Context, rows []IncidentRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin incidents tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO incidents (incident_number, called_at, incident_type, borough)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "store: prepare incidents insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Number, r.Time.UTC(), r.Type, r.Borough); err != nil {
			return eris.Wrapf(err, "store: insert incident %s", r.Number)
		}
	}
	return eris.Wrap(tx.Commit(), "store: commit incidents")
}

// InsertMobilisations stages mobilisation rows in one transaction.
func (w *Warehouse) InsertMobilisations(ctx context.Context, rows []MobilisationRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin mobilisations tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO mobilisations
		 (id, incident_number, pump_order, turnout_seconds, travel_seconds, response_seconds, delay_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "store: prepare mobilisations insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), r.IncidentNumber, r.PumpOrder,
			r.Turnout, r.Travel, r.Response, r.DelayCode)
		if err != nil {
			return eris.Wrapf(err, "store: insert mobilisation for %s", r.IncidentNumber)
		}
	}
	return eris.Wrap(tx.Commit(), "store: commit mobilisations")
}

// Counts returns the staged incident and mobilisation row counts.
func (w *Warehouse) Counts(ctx context.Context) (incidents, mobilisations int, err error) {
	if err = w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&incidents); err != nil {
		return 0, 0, eris.Wrap(err, "store: count incidents")
	}
	if err = w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mobilisations`).Scan(&mobilisations); err != nil {
		return 0, 0, eris.Wrap(err, "store: count mobilisations")
	}
	return incidents, mobilisations, nil
}

// FirstPump is one incident joined to its first-arriving pump, plus
// the second pump's response when one attended.
type FirstPump struct {
	IncidentNumber string
	Time           time.Time
	Type           string
	Borough        string
	Turnout        sql.NullFloat64
	Travel         sql.NullFloat64
	Response       sql.NullFloat64
	SecondResponse sql.NullFloat64
	DelayCode      string
}

const firstPumpQuery = `
SELECT
	i.incident_number, i.called_at, i.incident_type, i.borough,
	m.turnout_seconds, m.travel_seconds, m.response_seconds, m.delay_code,
	m2.response_seconds AS second_response
FROM incidents i
JOIN mobilisations m
	ON m.incident_number = i.incident_number
	AND m.pump_order = (
		SELECT MIN(f.pump_order) FROM mobilisations f
		WHERE f.incident_number = i.incident_number
	)
LEFT JOIN mobilisations m2
	ON m2.incident_number = i.incident_number
	AND m2.pump_order = (
		SELECT MIN(s.pump_order) FROM mobilisations s
		WHERE s.incident_number = i.incident_number AND s.pump_order > m.pump_order
	)
ORDER BY i.called_at, i.incident_number
`

// ScanFirstPumps streams the first-pump reduction: every incident with
// at least one mobilisation, carried by its lowest pump order, with
// the next pump's response alongside. Incidents without a mobilisation
// drop out of the join. The callback stops the scan by returning an
// error.
func (w *Warehouse) ScanFirstPumps(ctx context.Context, fn func(FirstPump) error) error {
	rows, err := w.db.QueryContext(ctx, firstPumpQuery)
	if err != nil {
		return eris.Wrap(err, "store: query first pumps")
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var fp FirstPump
		err := rows.Scan(&fp.IncidentNumber, &fp.Time, &fp.Type, &fp.Borough,
			&fp.Turnout, &fp.Travel, &fp.Response, &fp.DelayCode, &fp.SecondResponse)
		if err != nil {
			return eris.Wrap(err, "store: scan first pump")
		}
		// Duplicate pump orders in the raw data can double a join row.
		if _, dup := seen[fp.IncidentNumber]; dup {
			continue
		}
		seen[fp.IncidentNumber] = struct{}{}
		if err := fn(fp); err != nil {
			return err
		}
	}
	return eris.Wrap(rows.Err(), "store: iterate first pumps")
}

// BuildRun is one snapshot build's bookkeeping row.
type BuildRun struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	Incidents     sql.NullInt64
	Mobilisations sql.NullInt64
	Snapshot      sql.NullString
}

// BeginRun records the start of a build and returns its run ID.
func (w *Warehouse) BeginRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO build_runs (id, started_at) VALUES (?, ?)`,
		id, time.Now().UTC())
	if err != nil {
		return "", eris.Wrap(err, "store: begin run")
	}
	return id, nil
}

// FinishRun closes a build run with the staged counts and the snapshot
// it produced.
func (w *Warehouse) FinishRun(ctx context.Context, runID, snapshotPath string) error {
	incidents, mobilisations, err := w.Counts(ctx)
	if err != nil {
		return err
	}
	res, err := w.db.ExecContext(ctx,
		`UPDATE build_runs SET finished_at = ?, incidents = ?, mobilisations = ?, snapshot = ? WHERE id = ?`,
		time.Now().UTC(), incidents, mobilisations, snapshotPath, runID)
	if err != nil {
		return eris.Wrapf(err, "store: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// Run fetches one build run's bookkeeping row.
func (w *Warehouse) Run(ctx context.Context, runID string) (*BuildRun, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, incidents, mobilisations, snapshot
		 FROM build_runs WHERE id = ?`, runID)

	var br BuildRun
	err := row.Scan(&br.ID, &br.StartedAt, &br.FinishedAt, &br.Incidents, &br.Mobilisations, &br.Snapshot)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("store: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	return &br, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: run not found: %s", id)
	}
	return nil
}
