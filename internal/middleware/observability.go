package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/kardan-dev/kardan-api/pkg/errors"
	"github.com/kardan-dev/kardan-api/pkg/logger"
	"github.com/kardan-dev/kardan-api/pkg/metrics"
	"go.uber.org/zap"
)

const leadReferenceKey = "lead_reference"

// unmatchedRoute labels requests gin could not route, keeping raw paths out of metric labels
const unmatchedRoute = "unmatched"

// SetLeadReference tags the request with the reference of the lead it captured
func SetLeadReference(c *gin.Context, reference string) {
	c.Set(leadReferenceKey, reference)
}

// LeadReferenceFrom returns the reference set by SetLeadReference, or ""
func LeadReferenceFrom(c *gin.Context) string {
	return c.GetString(leadReferenceKey)
}

// ObservabilityMiddleware records request metrics by route template and writes
// one access-log line per request. Lead captures carry their reference; failed
// requests carry the stable error code and the attached errors.
func ObservabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		metrics.ActiveRequests.WithLabelValues(method).Inc()
		defer metrics.ActiveRequests.WithLabelValues(method).Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		duration := metrics.MeasureDuration(start)

		labels := []string{method, route, strconv.Itoa(status)}
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(duration)
		metrics.HTTPRequestTotal.WithLabelValues(labels...).Inc()

		logger.LogHTTPRequest(method, c.Request.URL.Path, status, duration, accessLogFields(c, route)...)
	}
}

func accessLogFields(c *gin.Context, route string) []zap.Field {
	fields := []zap.Field{
		zap.String("route", route),
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
		zap.Int("response_size", c.Writer.Size()),
	}
	if id := RequestIDFrom(c); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if ref := LeadReferenceFrom(c); ref != "" {
		fields = append(fields, zap.String("lead_reference", ref))
	}

	if last := c.Errors.Last(); last != nil {
		fields = append(fields,
			zap.String("error_code", string(apperrors.CodeOf(last.Err))),
			zap.String("error", c.Errors.String()),
		)
	}
	return fields
}
