package queryclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/auth"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/compression"
)

type recorded struct {
	path     string
	encoding string
	auth     string
	body     map[string]any
}

func engine(t *testing.T, status int, reply any) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		algo, err := compression.ParseAlgo(r.Header.Get("Content-Encoding"))
		require.NoError(t, err)
		body, err := compression.NewReader(algo, r.Body)
		require.NoError(t, err)
		defer body.Close()
		raw, err := io.ReadAll(body)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(raw, &doc))

		mu.Lock()
		seen = append(seen, recorded{
			path:     r.URL.Path,
			encoding: r.Header.Get("Content-Encoding"),
			auth:     r.Header.Get("Authorization"),
			body:     doc,
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func page() query.Response {
	return query.Response{
		Rows:       []query.Row{{"model": "gpt-4", "score": 0.9}},
		TotalCount: 1,
		Limit:      100,
	}
}

func TestClient_Query(t *testing.T) {
	srv, seen := engine(t, http.StatusOK, page())

	cfg := DefaultClientConfig(srv.URL)
	cfg.CompressThreshold = 0
	tokens := auth.NewTokenSource(auth.NewJWTService(auth.DefaultJWTConfig("secret")), "grid", auth.ScopeQuery)
	client, err := New(cfg, WithTokenProvider(tokens))
	require.NoError(t, err)

	req := query.Request{
		Filter:  condition.Column("model").Eq("gpt-4").And(condition.Column("score").Gt(0.8)),
		OrderBy: []condition.SortKey{condition.Column("score").Desc()},
	}
	resp, err := client.Query(context.Background(), "spans", req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.TotalCount)
	assert.Equal(t, "gpt-4", resp.Rows[0]["model"])

	require.Len(t, *seen, 1)
	got := (*seen)[0]
	assert.Equal(t, "/api/v1/tables/spans/query", got.path)
	assert.Equal(t, "gzip", got.encoding)
	assert.True(t, strings.HasPrefix(got.auth, "Bearer "))
	assert.Equal(t, float64(query.DefaultLimit), got.body["limit"])

	filter := got.body["filter"].(map[string]any)
	assert.Equal(t, true, filter["is_compound"])
	assert.Equal(t, "AND", filter["operator"])
}

func TestClient_CachesByDocument(t *testing.T) {
	srv, seen := engine(t, http.StatusOK, page())
	client, err := New(DefaultClientConfig(srv.URL))
	require.NoError(t, err)

	build := func() query.Request {
		return query.Request{Filter: condition.Column("model").In("a", "b")}
	}
	_, err = client.Query(context.Background(), "spans", build())
	require.NoError(t, err)
	_, err = client.Query(context.Background(), "spans", build())
	require.NoError(t, err)
	assert.Len(t, *seen, 1, "independently built equal conditions share the cache entry")

	_, err = client.Query(context.Background(), "spans", query.Request{Filter: condition.Column("model").Between("a", "b")})
	require.NoError(t, err)
	assert.Len(t, *seen, 2, "a range is a different document than a two-item list")

	_, err = client.Query(context.Background(), "traces", build())
	require.NoError(t, err)
	assert.Len(t, *seen, 3)

	client.Purge()
	_, err = client.Query(context.Background(), "spans", build())
	require.NoError(t, err)
	assert.Len(t, *seen, 4)
}

func TestClient_DeduplicatesInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(page())
	}))
	defer srv.Close()

	client, err := New(DefaultClientConfig(srv.URL))
	require.NoError(t, err)

	req := query.Request{Filter: condition.Column("model").Eq("x")}
	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Query(context.Background(), "spans", req)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		reply    any
		wantCode string
		wantHTTP int
	}{
		{
			name:     "schema mismatch",
			status:   http.StatusBadRequest,
			reply:    map[string]any{"code": apperror.CodeSchemaMismatch, "message": "unknown operator"},
			wantCode: apperror.CodeSchemaMismatch,
			wantHTTP: http.StatusBadRequest,
		},
		{
			name:     "engine failure",
			status:   http.StatusInternalServerError,
			reply:    map[string]any{"code": apperror.CodeInternal, "message": "boom"},
			wantCode: apperror.CodeUpstream,
			wantHTTP: http.StatusBadGateway,
		},
		{
			name:     "non json body",
			status:   http.StatusServiceUnavailable,
			reply:    "maintenance",
			wantCode: apperror.CodeUpstream,
			wantHTTP: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := engine(t, tt.status, tt.reply)
			client, err := New(DefaultClientConfig(srv.URL))
			require.NoError(t, err)

			_, err = client.Query(context.Background(), "spans", query.Request{})
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.wantCode), err.Error())
			assert.Equal(t, tt.wantHTTP, apperror.GetHTTPStatus(err))
		})
	}
}

func TestClient_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(page())
	}))
	defer srv.Close()

	client, err := New(DefaultClientConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "spans", query.Request{})
	require.Error(t, err)
	_, err = client.Query(context.Background(), "spans", query.Request{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RejectsInvalidRequest(t *testing.T) {
	client, err := New(DefaultClientConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "spans", query.Request{Limit: query.MaxLimit + 1})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestClient_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(page())
	}))
	defer srv.Close()
	defer close(release)

	client, err := New(DefaultClientConfig(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Query(ctx, "spans", query.Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(DefaultClientConfig("not a url"))
	require.Error(t, err)
}
