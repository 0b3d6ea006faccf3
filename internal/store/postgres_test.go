package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runRowColumns = []string{
	"id", "source", "area_name", "total_id",
	"total", "hispanic", "white", "black", "asian", "mixed", "others",
	"units", "created_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnError(fmt.Errorf("connection refused"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, recordColumns).WillReturnResult(2)
	mock.ExpectCommit()

	run, err := s.SaveRun(context.Background(), "ga.csv", georgiaTotal(), georgiaCounties())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Units)
	assert.Equal(t, georgiaTotal(), run.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, recordColumns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err := s.SaveRun(context.Background(), "ga.csv", georgiaTotal(), georgiaCounties())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	total := georgiaTotal()

	mock.ExpectQuery(`SELECT id, source, .* FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows(runRowColumns).AddRow(
			"run-1", "ga.csv", total.AreaName, total.ID,
			total.Total, total.Hispanic, total.White, total.Black, total.Asian, total.Mixed, total.Others,
			2, now,
		))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, total, run.Total)
	assert.Equal(t, 2, run.Units)
	assert.Equal(t, now, run.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, source, .* FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_BySource(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	total := georgiaTotal()

	mock.ExpectQuery(`FROM runs WHERE source = \$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("ga.csv", defaultListLimit, 0).
		WillReturnRows(mock.NewRows(runRowColumns).AddRow(
			"run-1", "ga.csv", total.AreaName, total.ID,
			total.Total, total.Hispanic, total.White, total.Black, total.Asian, total.Mixed, total.Others,
			2, time.Now(),
		))

	runs, err := s.ListRuns(context.Background(), RunFilter{Source: "ga.csv"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := mock.NewRows([]string{"area_name", "geo_id", "total", "hispanic", "white", "black", "asian", "mixed", "others"})
	for _, r := range georgiaCounties() {
		rows.AddRow(r.AreaName, r.ID, r.Total, r.Hispanic, r.White, r.Black, r.Asian, r.Mixed, r.Others)
	}
	mock.ExpectQuery(`FROM records WHERE run_id = \$1 ORDER BY seq`).WithArgs("run-1").WillReturnRows(rows)

	recs, err := s.ListRecords(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, georgiaCounties(), recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMerged(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM merged WHERE run_id = \$1 AND field = \$2`).
		WithArgs("run-1", "White%").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_merged"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_merged"}, mergedColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "merged" .* ON CONFLICT \("run_id", "field", "geo_id"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectCommit()

	n, err := s.SaveMerged(context.Background(), "run-1", "White%", mergedRows())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMerged_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM merged`).
		WithArgs("run-1", "White").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	n, err := s.SaveMerged(context.Background(), "run-1", "White", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMerged_DeleteError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM merged`).WillReturnError(fmt.Errorf("lock timeout"))
	mock.ExpectRollback()

	_, err := s.SaveMerged(context.Background(), "run-1", "White%", mergedRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear merged run-1/White%")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close_NilCloseFn(t *testing.T) {
	s := &PostgresStore{}
	assert.NoError(t, s.Close())
}
