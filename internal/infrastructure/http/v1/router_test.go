package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/auth"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/filteredit"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/celeval"
	"inspectview/internal/infrastructure/sqlplan"
	"inspectview/pkg/logger"
)

type fakeEngine struct {
	mu   sync.Mutex
	last query.Request
	err  error
}

func (e *fakeEngine) Query(_ context.Context, table string, req query.Request) (*query.Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	if table != "spans" {
		return nil, apperror.NewNotFound("table", table)
	}
	return &query.Response{
		Rows:       []query.Row{{"model": "gpt-4"}},
		TotalCount: 1,
		Limit:      req.Normalize().Limit,
		Offset:     req.Offset,
	}, nil
}

func (e *fakeEngine) Tables() []string { return []string{"spans"} }

type fakePlanners struct{}

func (fakePlanners) Planner(table string) (*sqlplan.Planner, error) {
	if table != "spans" {
		return nil, apperror.NewNotFound("table", table)
	}
	return sqlplan.NewPlanner("spans", map[string]string{"model": "model", "score": "score_value"}), nil
}

func newTestRouter(t *testing.T, jwt *auth.JWTService) (http.Handler, *fakeEngine) {
	t.Helper()
	evaluator, err := celeval.NewEvaluator(0)
	require.NoError(t, err)
	engine := &fakeEngine{}
	return NewRouter(RouterConfig{
		Logger:    logger.Nop(),
		JWT:       jwt,
		Codec:     filteredit.DefaultCodec,
		Evaluator: evaluator,
		Engine:    engine,
		Planners:  fakePlanners{},
		Version:   "test",
	}), engine
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	w := do(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, h, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOperators(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	w := do(t, h, http.MethodGet, "/api/v1/filters/operators?type=number", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "number", body["filter_type"])
	assert.Equal(t, "=", body["default"])
	ops := body["operators"].([]any)
	assert.Len(t, ops, len(condition.Operators(condition.TypeNumber)))
	assert.Contains(t, ops, map[string]any{"operator": "BETWEEN", "arity": "range"})

	w = do(t, h, http.MethodGet, "/api/v1/filters/operators", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, len(condition.FilterTypes()))
}

func TestCommit(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	t.Run("valid range", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{
			"column": "score", "filter_type": "number", "operator": "BETWEEN",
			"primary": "5", "secondary": "10",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, "BETWEEN 5 AND 10", body["chip"])
		assert.Equal(t, map[string]any{
			"is_compound": false, "left": "score", "operator": "BETWEEN", "right": []any{float64(5), float64(10)},
		}, body["condition"])
	})

	t.Run("wildcard injection", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{
			"column": "model", "filter_type": "string", "operator": "ILIKE", "primary": "gpt",
		})
		require.Equal(t, http.StatusOK, w.Code)
		cond := decode(t, w)["condition"].(map[string]any)
		assert.Equal(t, "%gpt%", cond["right"])
	})

	t.Run("incomplete range", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{
			"column": "score", "filter_type": "number", "operator": "BETWEEN", "primary": "5",
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("empty", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{
			"column": "score", "filter_type": "number", "operator": ">", "primary": "  ",
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unparseable", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{
			"column": "score", "filter_type": "number", "operator": ">", "primary": "abc",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apperror.CodeInvalidInput, decode(t, w)["code"])
	})

	t.Run("operator not offered", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{
			"column": "flag", "filter_type": "boolean", "operator": "LIKE", "primary": "x",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apperror.CodeUnsupportedOperator, decode(t, w)["code"])
	})

	t.Run("missing column", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/filters/commit", map[string]any{"operator": "="})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeValidation, decode(t, w)["code"])
	})
}

func TestFormat(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/filters/format", map[string]any{
		"filter_type": "string",
		"condition":   condition.Column("model").In("a", "b"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"filter_type": "string", "operator": "IN", "primary": "a, b"}, decode(t, w))

	w = do(t, h, http.MethodPost, "/api/v1/filters/format", map[string]any{
		"filter_type": "string",
		"condition":   condition.Column("a").Eq("x").Or(condition.Column("b").Eq("y")),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDescribe(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	cond := condition.Column("model").Eq("gpt-4").And(condition.Column("score").Gt(0.8))

	w := do(t, h, http.MethodPost, "/api/v1/filters/describe?table=spans", cond)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "model = 'gpt-4' AND score > 0.8", body["text"])
	assert.Equal(t, "(model = ? AND score_value > ?)", body["sql"])
	assert.Equal(t, []any{"gpt-4", 0.8}, body["args"])
	assert.Equal(t, []any{"model", "score"}, body["columns"])
	assert.NotEmpty(t, body["cel"])

	w = do(t, h, http.MethodPost, "/api/v1/filters/describe", condition.Column("model").Eq("gpt-4"))
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "= 'gpt-4'", body["chip"])
	assert.Equal(t, `"model" = ?`, body["sql"])

	w = do(t, h, http.MethodPost, "/api/v1/filters/describe?table=spans", condition.Column("secret").Eq("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/filters/describe", `{"is_compound":false,"left":"a","operator":"LIKE","right":[1,2]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeSchemaMismatch, decode(t, w)["code"])
}

func TestEvaluate(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/filters/evaluate", map[string]any{
		"condition": condition.Column("score").Gte(0.5),
		"rows": []map[string]any{
			{"id": 1, "score": 0.9},
			{"id": 2, "score": 0.1},
			{"id": 3},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["matched"])
	assert.Equal(t, float64(3), body["total"])
}

func TestSuggest(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	w := do(t, h, http.MethodPost, "/api/v1/filters/suggest", map[string]any{
		"filter_type": "string",
		"operator":    "IN",
		"primary":     "gpt-4, cl",
		"candidates":  []any{"gpt-4", "claude", "CLIP", nil},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{"claude", "CLIP"}, decode(t, w)["suggestions"])
}

func TestQuery(t *testing.T) {
	h, engine := newTestRouter(t, nil)

	t.Run("json body", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/tables/spans/query", map[string]any{
			"filter":   condition.Column("model").Eq("gpt-4"),
			"order_by": []map[string]any{{"column": "score", "direction": "desc"}},
			"limit":    10,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, float64(1), body["totalCount"])
		assert.Equal(t, float64(10), body["limit"])
		assert.Len(t, body["rows"], 1)

		assert.True(t, condition.Equal(condition.Column("model").Eq("gpt-4"), engine.last.Filter))
		assert.Equal(t, []condition.SortKey{condition.Column("score").Desc()}, engine.last.OrderBy)
	})

	t.Run("gzip body", func(t *testing.T) {
		raw, err := json.Marshal(query.Request{Filter: condition.Column("model").In("a", "b")})
		require.NoError(t, err)
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err = zw.Write(raw)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		w := do(t, h, http.MethodPost, "/api/v1/tables/spans/query", buf.Bytes(), "Content-Encoding", "gzip")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, condition.OpIn, engine.last.Filter.Operator())
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/tables/spans/query", "{}", "Content-Encoding", "br")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("schema mismatch", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/tables/spans/query", `{"filter":{"is_compound":false,"left":"a","operator":"~","right":1}}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeSchemaMismatch, decode(t, w)["code"])
	})

	t.Run("unknown table", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/v1/tables/nope/query", `{}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rows query string", func(t *testing.T) {
		filter := condition.Column("score").Between(1, 2).Key()
		w := do(t, h, http.MethodGet, "/api/v1/tables/spans/rows?orderBy=-score,model&limit=5&filter="+url.QueryEscape(filter), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 5, engine.last.Limit)
		assert.Equal(t, []condition.SortKey{condition.Column("score").Desc(), condition.Column("model").Asc()}, engine.last.OrderBy)
		assert.Equal(t, condition.OpBetween, engine.last.Filter.Operator())
	})

	t.Run("tables", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/tables", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{"spans"}, decode(t, w)["tables"])
	})
}

func TestAuth(t *testing.T) {
	svc := auth.NewJWTService(auth.DefaultJWTConfig("secret"))
	h, _ := newTestRouter(t, svc)

	w := do(t, h, http.MethodGet, "/api/v1/filters/operators", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/filters/operators", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	filtersOnly, _, err := svc.GenerateToken("ui", auth.ScopeFilters)
	require.NoError(t, err)
	w = do(t, h, http.MethodGet, "/api/v1/filters/operators", nil, "Authorization", "Bearer "+filtersOnly)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodPost, "/api/v1/tables/spans/query", `{}`, "Authorization", "Bearer "+filtersOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)

	full, _, err := svc.GenerateToken("ui", auth.ScopeFilters, auth.ScopeQuery)
	require.NoError(t, err)
	w = do(t, h, http.MethodPost, "/api/v1/tables/spans/query", `{}`, "Authorization", "Bearer "+full)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health stays open")
}
