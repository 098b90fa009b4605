package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/sqlplan"
)

// TableConfig exposes one table to the query API.
type TableConfig struct {
	Name         string
	Columns      []string
	JSONColumns  []string
	DefaultOrder []condition.SortKey
}

type table struct {
	cfg     TableConfig
	planner *sqlplan.Planner
}

// RowsRepository executes condition queries against registered tables.
type RowsRepository struct {
	txm    *TxManager
	tables map[string]table
}

// NewRowsRepository creates a repository over the given tables.
func NewRowsRepository(txm *TxManager, tables ...TableConfig) *RowsRepository {
	r := &RowsRepository{txm: txm, tables: make(map[string]table, len(tables))}
	for _, t := range tables {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a table.
func (r *RowsRepository) Register(cfg TableConfig) {
	cols := make(map[string]string, len(cfg.Columns))
	for _, c := range cfg.Columns {
		cols[c] = c
	}
	for _, c := range cfg.JSONColumns {
		cols[c] = c
	}
	r.tables[cfg.Name] = table{cfg: cfg, planner: sqlplan.NewPlanner(cfg.Name, cols, cfg.JSONColumns...)}
}

// Tables returns the registered table names, sorted.
func (r *RowsRepository) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Planner returns the planner of a registered table.
func (r *RowsRepository) Planner(name string) (*sqlplan.Planner, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, apperror.NewNotFound("table", name)
	}
	return t.planner, nil
}

// Statements builds the page and count statements for req without running them.
func (r *RowsRepository) Statements(name string, req query.Request) (pageSQL, countSQL string, args []any, err error) {
	t, ok := r.tables[name]
	if !ok {
		return "", "", nil, apperror.NewNotFound("table", name)
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return "", "", nil, err
	}
	if len(req.OrderBy) == 0 {
		req.OrderBy = t.cfg.DefaultOrder
	}

	selectCols := append(append([]string(nil), t.cfg.Columns...), t.cfg.JSONColumns...)
	q, countQ, err := t.planner.Select(req, selectCols...)
	if err != nil {
		return "", "", nil, err
	}
	countSQL, _, err = countQ.ToSql()
	if err != nil {
		return "", "", nil, fmt.Errorf("build count query: %w", err)
	}
	pageSQL, args, err = q.ToSql()
	if err != nil {
		return "", "", nil, fmt.Errorf("build query: %w", err)
	}
	return pageSQL, countSQL, args, nil
}

// Query returns one page of rows matching req together with the total count.
func (r *RowsRepository) Query(ctx context.Context, name string, req query.Request) (*query.Response, error) {
	pageSQL, countSQL, args, err := r.Statements(name, req)
	if err != nil {
		return nil, err
	}
	req = req.Normalize()

	result := &query.Response{Limit: req.Limit, Offset: req.Offset}
	err = r.txm.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// LIMIT and OFFSET are inlined, so both statements bind the same filter args.
		if err := tx.QueryRow(ctx, countSQL, args...).Scan(&result.TotalCount); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		var rows []map[string]any
		if err := pgxscan.Select(ctx, tx, &rows, pageSQL, args...); err != nil {
			return fmt.Errorf("list: %w", err)
		}
		result.Rows = make([]query.Row, len(rows))
		for i, row := range rows {
			result.Rows[i] = query.Row(row)
		}
		return nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return result, nil
}

// mapPgError turns type errors raised by the filter into validation errors;
// everything else is a database failure.
func mapPgError(err error) error {
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02", "22007", "22008", "42883":
			return apperror.NewValidation("filter value does not match column type").
				WithDetail("pg_code", pgErr.Code).
				WithCause(err)
		case "57014":
			return &apperror.AppError{
				Code:       apperror.CodeTimeout,
				Message:    "query timed out",
				HTTPStatus: http.StatusGatewayTimeout,
				Err:        err,
			}
		}
	}
	return apperror.NewDatabase(err)
}
