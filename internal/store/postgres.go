package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/census-choropleth/internal/db"
	"github.com/sells-group/census-choropleth/internal/model"
	"github.com/sells-group/census-choropleth/internal/tiger"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source     TEXT NOT NULL,
	area_name  TEXT NOT NULL,
	total_id   TEXT NOT NULL,
	total      BIGINT NOT NULL,
	hispanic   BIGINT NOT NULL,
	white      BIGINT NOT NULL,
	black      BIGINT NOT NULL,
	asian      BIGINT NOT NULL,
	mixed      BIGINT NOT NULL,
	others     BIGINT NOT NULL,
	units      INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	area_name TEXT NOT NULL,
	geo_id    TEXT NOT NULL,
	total     BIGINT NOT NULL,
	hispanic  BIGINT NOT NULL,
	white     BIGINT NOT NULL,
	black     BIGINT NOT NULL,
	asian     BIGINT NOT NULL,
	mixed     BIGINT NOT NULL,
	others    BIGINT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS merged (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	field      TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	geo_id     TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      DOUBLE PRECISION,
	matched_id TEXT NOT NULL DEFAULT '',
	geom       BYTEA,
	PRIMARY KEY (run_id, field, geo_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_records_geo_id ON records(geo_id);
`

var (
	recordColumns = append([]string{"run_id", "seq", "area_name", "geo_id"}, countColumns...)
	mergedColumns = []string{"run_id", "field", "seq", "geo_id", "name", "value", "matched_id", "geom"}
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, source string, total model.CanonicalRecord, perUnit []model.CanonicalRecord) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Source:    source,
		Total:     total,
		Units:     len(perUnit),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin save run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	args := append([]any{run.ID, source, total.AreaName, total.ID}, countArgs(total)...)
	args = append(args, run.Units, run.CreatedAt)
	if _, err := tx.Exec(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		args...,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	rows := make([][]any, len(perUnit))
	for i, rec := range perUnit {
		rows[i] = append([]any{run.ID, i, rec.AreaName, rec.ID}, countArgs(rec)...)
	}
	if _, err := db.CopyFrom(ctx, tx, "records", recordColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy records")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit save run")
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if filter.Source != "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+runColumns+` FROM runs WHERE source = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
			filter.Source, limit, filter.Offset,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
			limit, filter.Offset,
		)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string) ([]model.CanonicalRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT area_name, geo_id, `+strings.Join(countColumns, ", ")+` FROM records WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list records %s", runID)
	}
	defer rows.Close()

	var out []model.CanonicalRecord
	for rows.Next() {
		var rec model.CanonicalRecord
		if err := rows.Scan(append([]any{&rec.AreaName, &rec.ID}, countDest(&rec)...)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: list records %s", runID)
}

// SaveMerged replaces the stored join for (runID, field) with records. The
// old rows are deleted and the new ones upserted in one transaction.
func (s *PostgresStore) SaveMerged(ctx context.Context, runID, field string, records []model.MergedRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, rec := range records {
		wkb, err := tiger.EncodeWKB(rec.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: encode geometry %s", rec.GeoID)
		}
		rows[i] = []any{runID, field, i, rec.GeoID, rec.Name, rec.Value, rec.MatchedID, wkb}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin save merged")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM merged WHERE run_id = $1 AND field = $2`, runID, field); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear merged %s/%s", runID, field)
	}

	n, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "merged",
		Columns:      mergedColumns,
		ConflictKeys: []string{"run_id", "field", "geo_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save merged")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit save merged")
	}
	return n, nil
}

func (s *PostgresStore) ListMerged(ctx context.Context, runID, field string) ([]model.MergedRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geo_id, name, value, matched_id, geom FROM merged WHERE run_id = $1 AND field = $2 ORDER BY seq`,
		runID, field,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list merged %s", runID)
	}
	defer rows.Close()

	var out []model.MergedRecord
	for rows.Next() {
		var (
			rec model.MergedRecord
			wkb []byte
		)
		if err := rows.Scan(&rec.GeoID, &rec.Name, &rec.Value, &rec.MatchedID, &wkb); err != nil {
			return nil, eris.Wrap(err, "postgres: scan merged")
		}
		if rec.Geometry, err = tiger.DecodeWKB(wkb); err != nil {
			return nil, eris.Wrapf(err, "postgres: geometry for %s", rec.GeoID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: list merged %s", runID)
}
