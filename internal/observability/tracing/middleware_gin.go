package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/lis/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/smallbiznis/lis/http"

// GinMiddleware opens a server span per request on the global tracer provider.
func GinMiddleware() gin.HandlerFunc {
	return Middleware(otel.GetTracerProvider())
}

// Middleware opens a server span per request. The span is renamed to the matched
// route once the handler chain has run, and carries org and actor when auth set them.
func Middleware(tp trace.TracerProvider) gin.HandlerFunc {
	tracer := tp.Tracer(instrumentationName)
	return func(c *gin.Context) {
		parent := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetName(spanName(c.Request.Method, c.FullPath()))
		span.SetAttributes(requestAttributes(c, status)...)
		if status >= http.StatusInternalServerError {
			if last := c.Errors.Last(); last != nil {
				span.RecordError(SafeError(last.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func spanName(method, route string) string {
	if route == "" {
		return method + " unmatched"
	}
	return method + " " + route
}

func requestAttributes(c *gin.Context, status int) []attribute.KeyValue {
	ctx := c.Request.Context()
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
		attribute.Int("http.response.status_code", status),
	}
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if org := obscontext.OrgIDFromContext(ctx); org != "" {
		attrs = append(attrs, attribute.String("lis.org_id", org))
	}
	if actorType, _ := obscontext.ActorFromContext(ctx); actorType != "" {
		attrs = append(attrs, attribute.String("lis.actor_type", actorType))
	}
	return SafeAttributes(attrs...)
}
