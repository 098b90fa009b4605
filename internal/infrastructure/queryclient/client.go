// Package queryclient sends condition documents to the remote query engine.
//
// Requests are keyed by their serialized form: concurrent identical requests
// share one round trip, and completed responses are cached for a short TTL.
package queryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"inspectview/internal/core/apperror"
	appctx "inspectview/internal/core/context"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/compression"
	"inspectview/pkg/logger"
)

var tracer = otel.Tracer("inspectview/queryclient")

const maxErrorBody = 64 << 10

// ClientConfig holds query client configuration.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	CacheSize         int
	CacheTTL          time.Duration
	Compression       compression.Algo
	CompressThreshold int // bytes
}

// DefaultClientConfig returns default client configuration.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		CacheSize:         128,
		CacheTTL:          30 * time.Second,
		Compression:       compression.Gzip,
		CompressThreshold: 4 << 10,
	}
}

// TokenProvider supplies bearer tokens for the engine.
type TokenProvider interface {
	Token() (string, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenProvider authenticates requests with bearer tokens from tp.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) { c.tokens = tp }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client is safe for concurrent use.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	encoder *compression.Encoder
	log     *logger.Logger

	tokenMu sync.Mutex
	tokens  TokenProvider

	group singleflight.Group
	cache *expirable.LRU[string, *query.Response]
}

// New creates a client for the engine at cfg.BaseURL.
func New(cfg ClientConfig, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid engine url: %w", err)
	}
	encoder, err := compression.NewEncoder(cfg.Compression, cfg.CompressThreshold)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		encoder: encoder,
		log:     logger.Default(),
	}
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		c.cache = expirable.NewLRU[string, *query.Response](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("queryclient")
	return c, nil
}

// Query fetches one page of table rows matching req. The returned response is
// shared with other callers and must not be modified.
func (c *Client) Query(ctx context.Context, table string, req query.Request) (*query.Response, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	doc, err := req.Key()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("encode request: %w", err))
	}
	key := table + "\n" + doc

	if c.cache != nil {
		if resp, ok := c.cache.Get(key); ok {
			c.log.WithContext(ctx).Debugw("query cache hit", "table", table)
			return resp, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// The first caller's cancellation must not fail the callers sharing the flight.
		fetchCtx := context.WithoutCancel(ctx)
		resp, err := c.fetch(fetchCtx, table, []byte(doc), req.Filter)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Add(key, resp)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.log.WithContext(ctx).Debugw("query shared in flight", "table", table)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*query.Response), nil
	}
}

// Purge drops every cached response.
func (c *Client) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func (c *Client) fetch(ctx context.Context, table string, doc []byte, filter *condition.Condition) (*query.Response, error) {
	ctx, span := tracer.Start(ctx, "queryclient.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("query.table", table),
			attribute.StringSlice("query.columns", condition.Columns(filter)),
		))
	defer span.End()

	resp, err := c.do(ctx, table, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("query.rows", len(resp.Rows)),
		attribute.Int64("query.total", resp.TotalCount),
	)
	return resp, nil
}

func (c *Client) do(ctx context.Context, table string, doc []byte) (*query.Response, error) {
	body, encoding, err := c.encoder.Encode(doc)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/v1/tables/" + url.PathEscape(table) + "/query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if encoding != compression.None {
		httpReq.Header.Set("Content-Encoding", string(encoding))
	}
	if id := appctx.GetRequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	if c.tokens != nil {
		token, err := c.token()
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("issue engine token: %w", err))
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &apperror.AppError{
				Code:       apperror.CodeTimeout,
				Message:    "query engine timed out",
				HTTPStatus: http.StatusGatewayTimeout,
				Err:        err,
			}
		}
		return nil, apperror.NewUpstream(0, "query engine unreachable").WithCause(err)
	}
	defer httpResp.Body.Close()

	c.log.WithContext(ctx).Debugw("query engine responded",
		"table", table,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_bytes", len(body),
	)

	if httpResp.StatusCode != http.StatusOK {
		return nil, upstreamError(httpResp)
	}

	var out query.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, apperror.NewUpstream(httpResp.StatusCode, "malformed engine response").WithCause(err)
	}
	return &out, nil
}

func (c *Client) token() (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.tokens.Token()
}

// upstreamError maps an engine error response. The engine reports errors as
// {code, message, details}; a schema rejection keeps its code so callers can
// tell a bad document from an engine failure.
func upstreamError(resp *http.Response) error {
	var body struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return apperror.NewUpstream(resp.StatusCode, msg)
	}

	switch body.Code {
	case apperror.CodeSchemaMismatch:
		return apperror.NewSchemaMismatch(errors.New(body.Message))
	case apperror.CodeUnauthorized:
		return apperror.NewUnauthorized(body.Message)
	default:
		return apperror.NewUpstream(resp.StatusCode, body.Message).WithDetail("upstream_code", body.Code)
	}
}
