package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry_AllHealthy(t *testing.T) {
	reg := NewHealthRegistry()
	reg.Register("database", DatabaseHealthChecker(func(ctx context.Context) error {
		return nil
	}))
	reg.Register("cache", CacheHealthChecker(func(ctx context.Context) error {
		return nil
	}))

	health := reg.GetOverallHealth(context.Background())

	assert.Equal(t, HealthStatusHealthy, health.Status)
	require.Len(t, health.Checks, 2)
	assert.Equal(t, HealthStatusHealthy, health.Checks["database"].Status)
	assert.Equal(t, HealthStatusHealthy, health.Checks["cache"].Status)
	assert.NotZero(t, health.Checks["database"].Timestamp)
}

func TestHealthRegistry_DatabaseDownIsUnhealthy(t *testing.T) {
	reg := NewHealthRegistry()
	reg.Register("database", DatabaseHealthChecker(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	health := reg.GetOverallHealth(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Contains(t, health.Checks["database"].Message, "connection refused")
}

func TestHealthRegistry_CacheDownOnlyDegrades(t *testing.T) {
	reg := NewHealthRegistry()
	reg.Register("database", DatabaseHealthChecker(func(ctx context.Context) error {
		return nil
	}))
	reg.Register("cache", CacheHealthChecker(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	health := reg.GetOverallHealth(context.Background())

	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, HealthStatusHealthy, health.Checks["database"].Status)
	assert.Equal(t, HealthStatusDegraded, health.Checks["cache"].Status)
}

func TestHealthRegistry_NoChecksIsHealthy(t *testing.T) {
	reg := NewHealthRegistry()
	assert.Equal(t, HealthStatusHealthy, reg.GetOverallHealth(context.Background()).Status)
}
