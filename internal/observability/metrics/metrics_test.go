package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("email", "ana@example.com"),
		attribute.String("view", "grid"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "email" {
			t.Fatalf("expected email to be dropped")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordLogin(context.Background(), "success")
	m.RecordCatalogRender(context.Background(), "1", "grid")
	m.RecordJobRun(context.Background(), "purge_sessions", "ok", time.Second, 3)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordOrderStatusChange(context.Background(), "1", "pending", "processing")
	m.RecordPasswordReset(context.Background(), "requested", "sent")
	m.RecordJobRun(context.Background(), "purge_sessions", "error", time.Millisecond, 0)
}

func TestHTTPMetricsMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	httpMetrics := newHTTPMetrics(registry, Config{ServiceName: "lis", Environment: "test"})

	r := gin.New()
	r.Use(httpMetrics.GinMiddleware())
	r.GET("/api/products", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	}

	count := testutil.ToFloat64(httpMetrics.requests.WithLabelValues("GET", "/api/products", "401"))
	if count != 2 {
		t.Fatalf("expected 2 requests, got %v", count)
	}

	expected := `
# HELP lis_http_requests_total HTTP requests by route and status.
# TYPE lis_http_requests_total counter
lis_http_requests_total{env="test",method="GET",route="/api/products",service="lis",status="401"} 2
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "lis_http_requests_total"); err != nil {
		t.Fatalf("unexpected metrics output: %v", err)
	}
}
