package middleware

import (
	"github.com/gin-gonic/gin"

	"inspectview/internal/core/apperror"
	"inspectview/internal/infrastructure/compression"
)

// Decompress middleware transparently decodes gzip and zstd request bodies.
func Decompress() gin.HandlerFunc {
	return func(c *gin.Context) {
		algo, err := compression.ParseAlgo(c.GetHeader("Content-Encoding"))
		if err != nil {
			_ = c.Error(apperror.NewValidation("unsupported content encoding").
				WithDetail("content_encoding", c.GetHeader("Content-Encoding")))
			c.Abort()
			return
		}
		if algo == compression.None {
			c.Next()
			return
		}

		body, err := compression.NewReader(algo, c.Request.Body)
		if err != nil {
			_ = c.Error(apperror.NewValidation("malformed compressed body").WithCause(err))
			c.Abort()
			return
		}
		defer body.Close()

		c.Request.Body = body
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}
