package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
)

func spansTable() TableConfig {
	return TableConfig{
		Name:         "spans",
		Columns:      []string{"id", "model", "score", "created_at"},
		JSONColumns:  []string{"metadata"},
		DefaultOrder: []condition.SortKey{condition.Column("created_at").Desc()},
	}
}

func TestRowsRepository_Statements(t *testing.T) {
	repo := NewRowsRepository(nil, spansTable())

	req := query.Request{
		Filter: condition.Column("model").Eq("gpt-4").And(condition.Column("metadata.task.id").In("t1", "t2")),
		Limit:  10,
	}
	pageSQL, countSQL, args, err := repo.Statements("spans", req)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, model, score, created_at, metadata FROM spans WHERE (model = $1 AND metadata #>> '{task,id}' IN ($2,$3)) ORDER BY created_at DESC LIMIT 10",
		pageSQL)
	assert.Equal(t,
		"SELECT COUNT(*) FROM (SELECT id, model, score, created_at, metadata FROM spans WHERE (model = $1 AND metadata #>> '{task,id}' IN ($2,$3))) AS sub",
		countSQL)
	assert.Equal(t, []any{"gpt-4", "t1", "t2"}, args)
}

func TestRowsRepository_Statements_ExplicitOrderAndDefaultLimit(t *testing.T) {
	repo := NewRowsRepository(nil, spansTable())

	pageSQL, _, args, err := repo.Statements("spans", query.Request{
		OrderBy: []condition.SortKey{condition.Column("score").Asc()},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, model, score, created_at, metadata FROM spans ORDER BY score ASC LIMIT 100", pageSQL)
	assert.Empty(t, args)
}

func TestRowsRepository_Errors(t *testing.T) {
	repo := NewRowsRepository(nil, spansTable())

	_, _, _, err := repo.Statements("secrets", query.Request{})
	assert.True(t, apperror.IsNotFound(err))

	_, _, _, err = repo.Statements("spans", query.Request{Filter: condition.Column("password").Eq("x")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, _, _, err = repo.Statements("spans", query.Request{Limit: -1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRowsRepository_Tables(t *testing.T) {
	repo := NewRowsRepository(nil, spansTable(), TableConfig{Name: "evals", Columns: []string{"id"}})
	assert.Equal(t, []string{"evals", "spans"}, repo.Tables())

	_, err := repo.Planner("evals")
	require.NoError(t, err)
	_, err = repo.Planner("nope")
	require.Error(t, err)
}

func TestMapPgError(t *testing.T) {
	err := mapPgError(&pgconn.PgError{Code: "22P02"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = mapPgError(&pgconn.PgError{Code: "57014"})
	assert.True(t, apperror.HasCode(err, apperror.CodeTimeout))

	err = mapPgError(&pgconn.PgError{Code: "42P01"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))

	notFound := apperror.NewNotFound("table", "x")
	assert.Same(t, notFound, mapPgError(notFound))
}

// TestRowsRepository_Query runs against a live database when
// INSPECTVIEW_TEST_DSN is set.
func TestRowsRepository_Query(t *testing.T) {
	dsn := os.Getenv("INSPECTVIEW_TEST_DSN")
	if dsn == "" {
		t.Skip("INSPECTVIEW_TEST_DSN not set")
	}
	ctx := context.Background()

	pool, err := NewPool(ctx, DefaultPoolConfig(dsn))
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS iv_spans_test (id text, model text, score double precision, metadata jsonb);
		TRUNCATE iv_spans_test;
		INSERT INTO iv_spans_test VALUES
			('a', 'gpt-4', 0.9, '{"task": {"id": "t1"}}'),
			('b', 'claude', 0.5, '{"task": {"id": "t2"}}'),
			('c', 'gpt-4', 0.2, NULL)`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS iv_spans_test") })

	opts := DefaultTxOptions()
	repo := NewRowsRepository(NewTxManager(pool, opts), TableConfig{
		Name:        "iv_spans_test",
		Columns:     []string{"id", "model", "score"},
		JSONColumns: []string{"metadata"},
	})

	resp, err := repo.Query(ctx, "iv_spans_test", query.Request{
		Filter:  condition.Column("model").Eq("gpt-4"),
		OrderBy: []condition.SortKey{condition.Column("score").Desc()},
		Limit:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalCount)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "a", resp.Rows[0]["id"])
}
