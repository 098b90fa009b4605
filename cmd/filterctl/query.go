package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"inspectview/internal/domain/auth"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/compression"
	"inspectview/internal/infrastructure/queryclient"
	"inspectview/pkg/logger"
)

// queryCommand runs a condition against a remote query engine.
type queryCommand struct {
	out         io.Writer
	url         *string
	secret      *string
	compression *string
	timeout     *time.Duration
	table       *string
	filter      *string
	orderBy     *string
	limit       *int
	offset      *int
}

func (cmd *queryCommand) run(*kingpin.ParseContext) error {
	req, err := cmd.request()
	if err != nil {
		return err
	}
	client, err := cmd.client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *cmd.timeout)
	defer cancel()

	resp, err := client.Query(ctx, *cmd.table, req)
	if err != nil {
		return err
	}
	if err := writeRows(cmd.out, resp.Rows); err != nil {
		return err
	}
	heading(cmd.out, fmt.Sprintf("rows %d-%d of %d", resp.Offset+1, resp.Offset+len(resp.Rows), resp.TotalCount))
	return nil
}

func (cmd *queryCommand) request() (query.Request, error) {
	req := query.Request{Limit: *cmd.limit, Offset: *cmd.offset}
	if *cmd.filter != "" {
		doc, err := readInput(*cmd.filter)
		if err != nil {
			return req, err
		}
		if req.Filter, err = condition.Parse(doc); err != nil {
			return req, err
		}
	}
	if *cmd.orderBy != "" {
		for _, part := range strings.Split(*cmd.orderBy, ",") {
			key, err := condition.ParseSortKey(part)
			if err != nil {
				return req, err
			}
			req.OrderBy = append(req.OrderBy, key)
		}
	}
	return req, nil
}

func (cmd *queryCommand) client() (*queryclient.Client, error) {
	algo, err := compression.ParseAlgo(*cmd.compression)
	if err != nil {
		return nil, err
	}
	cfg := queryclient.DefaultClientConfig(*cmd.url)
	cfg.Timeout = *cmd.timeout
	cfg.Compression = algo
	cfg.CacheSize = 0

	opts := []queryclient.Option{queryclient.WithLogger(logger.Nop())}
	if *cmd.secret != "" {
		tokens := auth.NewTokenSource(auth.NewJWTService(auth.DefaultJWTConfig(*cmd.secret)), "filterctl", auth.ScopeQuery)
		opts = append(opts, queryclient.WithTokenProvider(tokens))
	}
	return queryclient.New(cfg, opts...)
}

func addQueryCommand(app *kingpin.Application, out io.Writer) {
	cmd := &queryCommand{out: out}
	c := app.Command("query", "Query a table of a remote engine.").Action(cmd.run)
	cmd.url = c.Flag("url", "Base URL of the query engine.").Envar("FILTERCTL_ENGINE_URL").Required().String()
	cmd.secret = c.Flag("secret", "HMAC secret used to sign request tokens.").Envar("FILTERCTL_JWT_SECRET").String()
	cmd.compression = c.Flag("compression", "Request body compression: none, gzip or zstd.").Default("gzip").String()
	cmd.timeout = c.Flag("timeout", "Request timeout.").Default("30s").Duration()
	cmd.filter = c.Flag("filter", "Condition document file, '-' for stdin.").Short('f').String()
	cmd.orderBy = c.Flag("order-by", "Sort keys, e.g. '-score,model'.").String()
	cmd.limit = c.Flag("limit", "Page size.").Default(fmt.Sprint(query.DefaultLimit)).Int()
	cmd.offset = c.Flag("offset", "Rows to skip.").Default("0").Int()
	cmd.table = c.Arg("table", "Table name.").Required().String()
}
