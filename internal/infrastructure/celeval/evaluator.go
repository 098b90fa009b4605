package celeval

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"

	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
)

const storedTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultProgramCacheSize bounds the number of compiled programs kept by an Evaluator.
const DefaultProgramCacheSize = 256

// Program is a compiled condition.
type Program struct {
	source  string
	program cel.Program
}

// Source returns the CEL expression the program was compiled from.
func (p *Program) Source() string { return p.source }

// Match reports whether row satisfies the condition.
func (p *Program) Match(row query.Row) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{RowVar: normalizeRow(row)})
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	return asBool(out)
}

// Filter returns the rows that satisfy the condition, in their original order.
func (p *Program) Filter(rows []query.Row) ([]query.Row, error) {
	out := make([]query.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := p.Match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Evaluator compiles conditions into programs and caches them by wire key.
// It is safe for concurrent use.
type Evaluator struct {
	env   *cel.Env
	cache *lru.Cache[string, *Program]
}

// NewEvaluator creates an evaluator caching up to size programs.
func NewEvaluator(size int) (*Evaluator, error) {
	if size <= 0 {
		size = DefaultProgramCacheSize
	}
	env, err := cel.NewEnv(
		cel.Variable(RowVar, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("build CEL env: %w", err)
	}
	cache, err := lru.New[string, *Program](size)
	if err != nil {
		return nil, fmt.Errorf("create program cache: %w", err)
	}
	return &Evaluator{env: env, cache: cache}, nil
}

// Compile returns the program for c, compiling it on first use.
func (e *Evaluator) Compile(c *condition.Condition) (*Program, error) {
	key := c.Key()
	if p, ok := e.cache.Get(key); ok {
		return p, nil
	}

	src, err := Expression(c)
	if err != nil {
		return nil, err
	}
	ast, issues := e.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid CEL filter: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build CEL program: %w", err)
	}

	p := &Program{source: src, program: prg}
	e.cache.Add(key, p)
	return p, nil
}

// Filter compiles c and applies it to rows.
func (e *Evaluator) Filter(c *condition.Condition, rows []query.Row) ([]query.Row, error) {
	p, err := e.Compile(c)
	if err != nil {
		return nil, err
	}
	return p.Filter(rows)
}

func asBool(v ref.Val) (bool, error) {
	switch val := v.Value().(type) {
	case bool:
		return val, nil
	default:
		return false, fmt.Errorf("filter expression must return bool, got %T", val)
	}
}

// normalizeRow maps driver and decoder types onto the scalar kinds conditions
// carry, so a datetime column compares against the stored string form.
// Nested objects are also exposed under dotted keys ("metadata.task.id"),
// matching how JSON columns are addressed in SQL. A flat key already present
// in the row wins over a derived one.
func normalizeRow(row query.Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = normalizeValue(v)
	}
	for k := range row {
		if nested, ok := out[k].(map[string]any); ok {
			flatten(out, k, nested)
		}
	}
	return out
}

func flatten(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := prefix + "." + k
		if _, ok := out[key]; !ok {
			out[key] = v
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(out, key, nested)
		}
	}
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(storedTimeLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(storedTimeLayout)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case decimal.Decimal:
		return val.InexactFloat64()
	case uuid.UUID:
		return val.String()
	case time.Duration:
		return val.Seconds()
	case query.Row:
		return normalizeValue(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
