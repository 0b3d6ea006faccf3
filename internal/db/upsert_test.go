package db

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergedUpsert() UpsertConfig {
	return UpsertConfig{
		Table:        "census.merged",
		Columns:      []string{"run_id", "field", "geo_id", "value"},
		ConflictKeys: []string{"run_id", "field", "geo_id"},
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, mergedUpsert(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	cfg := mergedUpsert()
	cfg.Columns = nil
	_, err := BulkUpsert(context.TODO(), nil, cfg, [][]any{{"r1", "White", "13001", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	cfg := mergedUpsert()
	cfg.ConflictKeys = nil
	_, err := BulkUpsert(context.TODO(), nil, cfg, [][]any{{"r1", "White", "13001", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_census_merged" \(LIKE "census"\."merged" INCLUDING DEFAULTS\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_census_merged"}, []string{"run_id", "field", "geo_id", "value"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "census"\."merged" .* ON CONFLICT \("run_id", "field", "geo_id"\) DO UPDATE SET "value" = EXCLUDED\."value"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{{"r1", "White", "13001", 61.5}, {"r1", "White", "13003", nil}}
	n, err := BulkUpsert(context.Background(), mock, mergedUpsert(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_census_merged"}, []string{"run_id", "field", "geo_id", "value"}).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, mergedUpsert(), [][]any{{"r1", "White", "13001", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for census.merged")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"records", `"records"`},
		{"census.records", `"census"."records"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"run_id", "geo_id", "total"`, quoteAndJoin([]string{"run_id", "geo_id", "total"}))
}

func TestBulkUpsert_NoTable(t *testing.T) {
	cfg := mergedUpsert()
	cfg.Table = ""
	_, err := BulkUpsert(context.TODO(), nil, cfg, [][]any{{"r1", "White", "13001", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table specified")
}

func TestUpsertConfig_InsertSQL(t *testing.T) {
	cfg := mergedUpsert()
	assert.Equal(t,
		`INSERT INTO "census"."merged" ("run_id", "field", "geo_id", "value") SELECT "run_id", "field", "geo_id", "value" FROM "_tmp_upsert_census_merged" ON CONFLICT ("run_id", "field", "geo_id") DO UPDATE SET "value" = EXCLUDED."value"`,
		cfg.insertSQL())

	cfg.UpdateCols = []string{"value", "field"}
	assert.Contains(t, cfg.insertSQL(), `DO UPDATE SET "value" = EXCLUDED."value", "field" = EXCLUDED."field"`)
}

func TestUpsertConfig_KeysOnlyDoNothing(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "runs",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}
	assert.Empty(t, cfg.updateColumns())
	assert.True(t, strings.HasSuffix(cfg.insertSQL(), "ON CONFLICT (\"id\") DO NOTHING"))
}
