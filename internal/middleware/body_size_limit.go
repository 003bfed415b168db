package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kardan-dev/kardan-api/internal/models"
)

// BodySizeLimitMiddleware limits the size of request bodies.
// Declared oversize bodies are rejected up front; the rest are capped while reading.
func BodySizeLimitMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip for GET, HEAD, OPTIONS requests (no body)
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBodySize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.LeadResponse{
				OK:    false,
				Error: "Request body too large",
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

		c.Next()
	}
}
