package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/census-choropleth/internal/model"
	"github.com/sells-group/census-choropleth/internal/tiger"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	area_name  TEXT NOT NULL,
	total_id   TEXT NOT NULL,
	total      INTEGER NOT NULL,
	hispanic   INTEGER NOT NULL,
	white      INTEGER NOT NULL,
	black      INTEGER NOT NULL,
	asian      INTEGER NOT NULL,
	mixed      INTEGER NOT NULL,
	others     INTEGER NOT NULL,
	units      INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	area_name TEXT NOT NULL,
	geo_id    TEXT NOT NULL,
	total     INTEGER NOT NULL,
	hispanic  INTEGER NOT NULL,
	white     INTEGER NOT NULL,
	black     INTEGER NOT NULL,
	asian     INTEGER NOT NULL,
	mixed     INTEGER NOT NULL,
	others    INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS merged (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	field      TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	geo_id     TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      REAL,
	matched_id TEXT NOT NULL DEFAULT '',
	geom       BLOB,
	PRIMARY KEY (run_id, field, geo_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_records_geo_id ON records(geo_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, source string, total model.CanonicalRecord, perUnit []model.CanonicalRecord) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Source:    source,
		Total:     total,
		Units:     len(perUnit),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin save run")
	}
	defer tx.Rollback() //nolint:errcheck

	args := append([]any{run.ID, source, total.AreaName, total.ID}, countArgs(total)...)
	args = append(args, run.Units, run.CreatedAt)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, seq, area_name, geo_id, `+strings.Join(countColumns, ", ")+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, rec := range perUnit {
		args := append([]any{run.ID, i, rec.AreaName, rec.ID}, countArgs(rec)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert record %s", rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit save run")
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]model.CanonicalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT area_name, geo_id, `+strings.Join(countColumns, ", ")+` FROM records WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CanonicalRecord
	for rows.Next() {
		var rec model.CanonicalRecord
		if err := rows.Scan(append([]any{&rec.AreaName, &rec.ID}, countDest(&rec)...)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: list records %s", runID)
}

// SaveMerged replaces the stored join for (runID, field) with records.
func (s *SQLiteStore) SaveMerged(ctx context.Context, runID, field string, records []model.MergedRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save merged")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM merged WHERE run_id = ? AND field = ?`, runID, field); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear merged %s/%s", runID, field)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO merged (run_id, field, seq, geo_id, name, value, matched_id, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, field, geo_id) DO UPDATE SET
			seq = excluded.seq,
			name = excluded.name,
			value = excluded.value,
			matched_id = excluded.matched_id,
			geom = excluded.geom`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare merged upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for i, rec := range records {
		wkb, err := tiger.EncodeWKB(rec.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: encode geometry %s", rec.GeoID)
		}
		if _, err := stmt.ExecContext(ctx, runID, field, i, rec.GeoID, rec.Name, nullFloat(rec.Value), rec.MatchedID, wkb); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert merged %s", rec.GeoID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save merged")
	}
	return n, nil
}

func (s *SQLiteStore) ListMerged(ctx context.Context, runID, field string) ([]model.MergedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geo_id, name, value, matched_id, geom FROM merged WHERE run_id = ? AND field = ? ORDER BY seq`,
		runID, field,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list merged %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.MergedRecord
	for rows.Next() {
		var (
			rec   model.MergedRecord
			value sql.NullFloat64
			wkb   []byte
		)
		if err := rows.Scan(&rec.GeoID, &rec.Name, &value, &rec.MatchedID, &wkb); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan merged")
		}
		if value.Valid {
			v := value.Float64
			rec.Value = &v
		}
		if rec.Geometry, err = tiger.DecodeWKB(wkb); err != nil {
			return nil, eris.Wrapf(err, "sqlite: geometry for %s", rec.GeoID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: list merged %s", runID)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
