package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/evans-manyala/enxero/internal/infra/logger"
	"github.com/evans-manyala/enxero/internal/usecase"
)

const (
	// RequestIDHeader carries the caller supplied or generated request id.
	RequestIDHeader = "X-Request-ID"
	// TraceIDHeader echoes the trace id of the request span.
	TraceIDHeader = "X-Trace-ID"

	TraceIDKey   = "trace_id"
	AccountIDKey = "account_id"
	RoleIDKey    = "role_id"
)

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorEnvelope builds an error body carrying the request trace id.
func NewErrorEnvelope(c *gin.Context, message string) ErrorEnvelope {
	return ErrorEnvelope{Status: "error", Message: message, TraceID: GetTraceID(c)}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, NewErrorEnvelope(c, message))
}

// EnrichContext assigns the request id and trace id used by logs and error bodies.
// It should run after Tracing so the trace id matches the server span.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		traceID := reqID
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID returns the trace id assigned by EnrichContext.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetAuthenticatedAccountID returns the account id set by RequireAuth.
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	id := c.GetString(AccountIDKey)
	return id, id != ""
}

// ClientInfo extracts the caller address and user agent.
func ClientInfo(c *gin.Context) usecase.ClientInfo {
	return usecase.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// NotFound answers unknown routes with the error envelope.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "route not found")
	}
}
