package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/http/v1/dto"
)

// Engine executes condition queries. The postgres repository and the remote
// query client both satisfy it.
type Engine interface {
	Query(ctx context.Context, table string, req query.Request) (*query.Response, error)
}

// TableLister is implemented by engines that know their tables.
type TableLister interface {
	Tables() []string
}

// QueryHandler exposes table queries.
type QueryHandler struct {
	*BaseHandler
	engine Engine
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(base *BaseHandler, engine Engine) *QueryHandler {
	return &QueryHandler{BaseHandler: base, engine: engine}
}

// RegisterRoutes registers table routes.
func (h *QueryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Tables)
	rg.POST("/:table/query", h.Query)
	rg.GET("/:table/rows", h.Rows)
}

// Tables handles GET /tables.
func (h *QueryHandler) Tables(c *gin.Context) {
	tables := []string{}
	if l, ok := h.engine.(TableLister); ok {
		tables = l.Tables()
	}
	h.OK(c, dto.TablesResponse{Tables: tables})
}

// Query handles POST /tables/:table/query with a {filter, order_by, limit, offset} body.
func (h *QueryHandler) Query(c *gin.Context) {
	var req query.Request
	if !h.DecodeJSON(c, &req) {
		return
	}
	h.run(c, req)
}

// Rows handles GET /tables/:table/rows?filter=<wire document>&orderBy=-score,model&limit=50&offset=0.
func (h *QueryHandler) Rows(c *gin.Context) {
	req := query.Request{
		Limit:  h.ParseIntQuery(c, "limit", query.DefaultLimit),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("filter"); raw != "" {
		cond, ok := h.ParseCondition(c, []byte(raw))
		if !ok {
			return
		}
		req.Filter = cond
	}

	if orderBy := c.Query("orderBy"); orderBy != "" {
		for _, part := range strings.Split(orderBy, ",") {
			key, err := condition.ParseSortKey(part)
			if err != nil {
				h.Error(c, apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy))
				return
			}
			req.OrderBy = append(req.OrderBy, key)
		}
	}

	h.run(c, req)
}

func (h *QueryHandler) run(c *gin.Context, req query.Request) {
	resp, err := h.engine.Query(c.Request.Context(), c.Param("table"), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	if resp.Rows == nil {
		resp.Rows = []query.Row{}
	}
	h.OK(c, resp)
}
