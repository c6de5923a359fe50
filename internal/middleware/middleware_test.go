package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/logging"
)

func newRouter(t *testing.T, reg *prometheus.Registry) (*gin.Engine, *PrometheusMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("test", reg)
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r)

	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/fail", func(c *gin.Context) { c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"}) })
	return r, promMw
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, promMw := newRouter(t, reg)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodGet, "/fail").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/missing/123").Code)

	assert.Equal(t, 3, testutil.CollectAndCount(promMw.reqDuration))
	assert.Equal(t, float64(1), testutil.ToFloat64(promMw.reqErrors.WithLabelValues("GET", "/fail", "500")))
	assert.Equal(t, float64(1), testutil.ToFloat64(promMw.reqErrors.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(promMw.reqInflight))
}

func TestPrometheusMiddleware_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, _ := newRouter(t, reg)

	serve(r, http.MethodGet, "/ok")
	w := serve(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_request_duration_seconds")
}

func TestRequestLogger_SetsTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("http-test", &buf, logging.DEBUG)

	r := gin.New()
	r.Use(NewRequestLogger(logger).Handler())

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(TraceIDKey)
		c.String(http.StatusOK, "pong")
	})

	w := serve(r, http.MethodGet, "/ping")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Trace-Id"))

	out, err := io.ReadAll(&buf)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "GET /ping 200"), "лог ответа: %s", out)
}
