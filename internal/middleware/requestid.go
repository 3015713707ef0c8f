package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// RequestIDKey is the gin context key for the request ID.
	RequestIDKey = "request_id"

	// RequestIDHeader is the HTTP header used to propagate the request ID.
	RequestIDHeader = "X-Request-ID"
)

const tracerName = "github.com/persistorai/lineage/internal/middleware"

// RequestID assigns a fresh server-side UUID to every request and opens the
// request span that traversal spans nest under. A client X-Request-ID is
// recorded as client_request_id but never becomes the canonical ID.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)

	return func(c *gin.Context) {
		id := uuid.New().String()

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("lineage.request_id", id)),
		)
		defer span.End()

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			log.WithFields(logrus.Fields{
				"request_id":        id,
				"client_request_id": clientID,
			}).Debug("client provided request ID mapped to server ID")
			c.Set("client_request_id", clientID)
			span.SetAttributes(attribute.String("lineage.client_request_id", clientID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
