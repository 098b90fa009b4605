// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
	"inspectview/pkg/logger"
)

// Recovery middleware recovers from panics and returns an error response.
// A rejected condition operand becomes a validation error; anything else is
// logged with its stack and reported as 500 without internal details.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if err, ok := rec.(error); ok {
				var opErr *condition.OperandError
				if errors.As(err, &opErr) {
					logger.Warn(c.Request.Context(), "condition operand rejected", "error", opErr)
					abortWith(c, apperror.NewValidation(opErr.Error()).
						WithDetail("column", opErr.Column).
						WithDetail("operator", opErr.Operator))
					return
				}
			}

			logger.Error(c.Request.Context(), "panic recovered",
				"error", rec,
				"stack", string(debug.Stack()),
			)
			abortWith(c, apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
				WithDetail("request_id", c.GetString("request_id")))
		}()
		c.Next()
	}
}

// abortWith renders err immediately: the panic unwound ErrorHandler before it
// could respond.
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
	if !c.Writer.Written() {
		respondError(c, err)
	}
}
