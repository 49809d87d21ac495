package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newHTTPMetrics(mp.Meter(httpInstrumentationName), zap.NewNop())

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/api/v1/projects/:id/tree", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	})
	e.POST("/api/v1/ingest", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"status": "ok"})
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/api/v1/projects/6f1c1a52-5d7e-4e43-8c8e-5c3f4f1b2a90/tree"},
		{http.MethodGet, "/api/v1/projects/0b0e7f56-0c43-4bb5-9d0c-7a0f3c1e2d11/tree"},
		{http.MethodPost, "/api/v1/ingest"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			switch md.Name {
			case "repolens.http.requests_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				byEndpoint := make(map[string]int64)
				var total int64
				for _, dp := range sum.DataPoints {
					endpoint, _ := dp.Attributes.Value(attribute.Key("endpoint"))
					byEndpoint[endpoint.AsString()] += dp.Value
					total += dp.Value
				}
				assert.Equal(t, int64(4), total)
				assert.Equal(t, int64(2), byEndpoint["/api/v1/projects/:id/tree"])
				assert.Equal(t, int64(1), byEndpoint["/api/v1/ingest"])
			case "repolens.http.request_duration_seconds":
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				var count uint64
				for _, dp := range hist.DataPoints {
					count += dp.Count
				}
				assert.Equal(t, uint64(4), count)
			case "repolens.http.active_requests":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					assert.Zero(t, dp.Value)
				}
			}
		}
	}

	assert.True(t, found["repolens.http.requests_total"], "requests counter not found")
	assert.True(t, found["repolens.http.request_duration_seconds"], "duration histogram not found")
	assert.True(t, found["repolens.http.response_size_bytes"], "response size histogram not found")
}

func TestHTTPMetrics_RecordsErrorStatus(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newHTTPMetrics(mp.Meter(httpInstrumentationName), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	// Handlers behind the request logger have already written the error
	// response when control returns here.
	e.GET("/fail", func(c echo.Context) error {
		c.Error(echo.NewHTTPError(http.StatusBadGateway, "upstream"))
		return nil
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	statuses := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "repolens.http.requests_total" {
				continue
			}
			for _, dp := range md.Data.(metricdata.Sum[int64]).DataPoints {
				endpoint, _ := dp.Attributes.Value("endpoint")
				status, _ := dp.Attributes.Value("status")
				if endpoint.AsString() == "/fail" {
					statuses["/fail"] = status.AsInt64()
				}
			}
		}
	}
	assert.Equal(t, int64(http.StatusBadGateway), statuses["/fail"])
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/health", "/health"},
		{"/api/v1/projects/:id/search", "/api/v1/projects/:id/search"},
		{"/api/v1/projects/6f1c1a52-5d7e-4e43-8c8e-5c3f4f1b2a90/chat", "/api/v1/projects/:id/chat"},
		{"/api/v1/projects/6F1C1A52-5D7E-4E43-8C8E-5C3F4F1B2A90", "/api/v1/projects/:id"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizePath(tt.input))
		})
	}
}
