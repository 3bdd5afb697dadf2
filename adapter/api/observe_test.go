package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldops/dispatch/internal/shared/infrastructure/eventbus"
	"github.com/fieldops/dispatch/pkg/observability"
)

func observedServer(t *testing.T, metrics observability.Metrics, health *observability.HealthRegistry) *Server {
	t.Helper()
	bus := eventbus.NewBus(nil, discardLogger())
	t.Cleanup(func() { _ = bus.Close() })

	cfg := DefaultServerConfig()
	cfg.Metrics = metrics
	handlers := ServerHandlers{
		Auth:      NewAuthMiddleware(testSecret, discardLogger()),
		Works:     NewWorksHandler(nil, nil, nil, nil, discardLogger()),
		Planning:  NewPlanningHandler(nil, discardLogger()),
		Directory: NewDirectoryHandler(nil, nil, discardLogger()),
		Engineers: NewEngineersHandler(nil, nil, discardLogger()),
		Sync:      NewSyncHandler(bus, 0, discardLogger()),
		Health:    health,
	}
	return NewServer(cfg, handlers, discardLogger())
}

func TestRequestObserver_RecordsMetrics(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	srv := observedServer(t, metrics, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	count := metrics.GetCounter(observability.MetricHTTPRequests,
		observability.T("method", "GET"), observability.T("status", "200"))
	assert.Equal(t, int64(1), count)
	assert.Len(t, metrics.GetTimings(observability.MetricHTTPDuration, observability.T("method", "GET")), 1)
	assert.Zero(t, metrics.GetCounter(observability.MetricHTTPErrors,
		observability.T("method", "GET"), observability.T("status", "200")))
}

func TestRequestObserver_CountsUnauthorizedStatus(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	srv := observedServer(t, metrics, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/works", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	count := metrics.GetCounter(observability.MetricHTTPRequests,
		observability.T("method", "GET"), observability.T("status", "401"))
	assert.Equal(t, int64(1), count)
}

func TestHealth_RegistryHealthy(t *testing.T) {
	health := observability.NewHealthRegistry()
	health.Register("database", observability.DatabaseHealthChecker(func(ctx context.Context) error {
		return nil
	}))
	srv := observedServer(t, nil, health)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), "database")
}

func TestHealth_RegistryUnhealthyReturns503(t *testing.T) {
	health := observability.NewHealthRegistry()
	health.Register("database", observability.DatabaseHealthChecker(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	srv := observedServer(t, nil, health)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
}
