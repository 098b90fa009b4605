package handlers

import (
	"github.com/gin-gonic/gin"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/filteredit"
	"inspectview/internal/infrastructure/celeval"
	"inspectview/internal/infrastructure/http/v1/dto"
	"inspectview/internal/infrastructure/sqlplan"
	"inspectview/pkg/logger"
)

// PlannerSource resolves the planner of a named table.
type PlannerSource interface {
	Planner(table string) (*sqlplan.Planner, error)
}

// FilterHandler exposes the operator catalog, the value codec and condition
// rendering.
type FilterHandler struct {
	*BaseHandler
	codec     filteredit.Codec
	planners  PlannerSource
	evaluator *celeval.Evaluator
}

// NewFilterHandler creates a new filter handler. planners may be nil.
func NewFilterHandler(base *BaseHandler, codec filteredit.Codec, planners PlannerSource, evaluator *celeval.Evaluator) *FilterHandler {
	return &FilterHandler{BaseHandler: base, codec: codec, planners: planners, evaluator: evaluator}
}

// RegisterRoutes registers filter routes.
func (h *FilterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/operators", h.Operators)
	rg.POST("/commit", h.Commit)
	rg.POST("/format", h.Format)
	rg.POST("/describe", h.Describe)
	rg.POST("/evaluate", h.Evaluate)
	rg.POST("/suggest", h.Suggest)
}

// Operators handles GET /filters/operators?type=number.
// Without a type, the catalog of every filter type is returned.
func (h *FilterHandler) Operators(c *gin.Context) {
	if t := c.Query("type"); t != "" {
		h.OK(c, dto.NewOperatorsResponse(condition.ParseFilterType(t)))
		return
	}
	types := condition.FilterTypes()
	out := make([]dto.OperatorsResponse, len(types))
	for i, ft := range types {
		out[i] = dto.NewOperatorsResponse(ft)
	}
	h.OK(c, out)
}

// Commit handles POST /filters/commit.
// Responds 200 with the leaf condition, 204 while input is empty or
// incomplete, 422 when the text cannot be parsed.
func (h *FilterHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ft := condition.ParseFilterType(req.FilterType)
	op, ok := condition.ParseOperator(req.Operator)
	if !ok || !condition.Supports(ft, op) {
		h.Error(c, apperror.NewUnsupportedOperator(string(ft), req.Operator))
		return
	}

	res := h.codec.Commit(req.Column, filteredit.EditState{
		FilterType: ft,
		Operator:   op,
		Primary:    req.Primary,
		Secondary:  req.Secondary,
	})
	switch res.Status {
	case filteredit.StatusValid:
		logger.Debug(c.Request.Context(), "filter committed", "column", req.Column, "condition", res.Condition.Key())
		h.OK(c, dto.CommitResponse{Condition: res.Condition, Chip: condition.ChipText(res.Condition)})
	case filteredit.StatusInvalid:
		h.Error(c, apperror.NewInvalidInput(req.Column, res.Err))
	default:
		h.NoContent(c)
	}
}

// Format handles POST /filters/format: the editor text for an existing leaf.
func (h *FilterHandler) Format(c *gin.Context) {
	var req dto.FormatRequest
	if !h.DecodeJSON(c, &req) {
		return
	}
	cond, ok := h.ParseCondition(c, req.Condition)
	if !ok {
		return
	}
	ft := condition.ParseFilterType(req.FilterType)
	if cond == nil {
		h.OK(c, dto.FormatResponse{FilterType: ft, Operator: condition.DefaultOperator(ft)})
		return
	}
	if cond.IsCompound() {
		h.Error(c, apperror.NewValidation("only simple conditions can be edited"))
		return
	}
	h.OK(c, h.codec.FormatCondition(ft, cond))
}

// Describe handles POST /filters/describe?table=spans with a wire document body.
func (h *FilterHandler) Describe(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read request body").WithCause(err))
		return
	}
	cond, ok := h.ParseCondition(c, body)
	if !ok {
		return
	}

	columns := condition.Columns(cond)
	if columns == nil {
		columns = []string{}
	}
	resp := dto.DescribeResponse{
		Chip:    condition.ChipText(cond),
		Text:    condition.Describe(cond),
		Columns: columns,
	}

	planner, err := h.planner(c.Query("table"), columns)
	if err != nil {
		h.Error(c, err)
		return
	}
	resp.SQL, resp.Args, err = planner.Preview(cond)
	if err != nil {
		h.Error(c, err)
		return
	}
	if resp.CEL, err = celeval.Expression(cond); err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	h.OK(c, resp)
}

// planner returns the table planner, or an ad hoc planner quoting every
// referenced column when no table is named.
func (h *FilterHandler) planner(table string, columns []string) (*sqlplan.Planner, error) {
	if table != "" {
		if h.planners == nil {
			return nil, apperror.NewNotFound("table", table)
		}
		return h.planners.Planner(table)
	}
	return sqlplan.Quoted(columns...), nil
}

// Evaluate handles POST /filters/evaluate: applies a condition to inline rows.
func (h *FilterHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if !h.DecodeJSON(c, &req) {
		return
	}
	cond, ok := h.ParseCondition(c, req.Condition)
	if !ok {
		return
	}
	rows, err := h.evaluator.Filter(cond, req.Rows)
	if err != nil {
		h.Error(c, apperror.NewValidation("condition cannot be evaluated").WithCause(err))
		return
	}
	h.OK(c, dto.EvaluateResponse{Rows: rows, Matched: len(rows), Total: len(req.Rows)})
}

// Suggest handles POST /filters/suggest.
func (h *FilterHandler) Suggest(c *gin.Context) {
	var req dto.SuggestRequest
	if !h.DecodeJSON(c, &req) {
		return
	}
	out := h.codec.Suggest(req.EditState, req.Candidates, req.Limit)
	if out == nil {
		out = []string{}
	}
	h.OK(c, dto.SuggestResponse{Suggestions: out})
}
