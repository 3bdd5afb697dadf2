package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all dispatch-related environment variables.
func clearEnvVars() {
	envVars := []string{
		"APP_ENV", "LOG_LEVEL",
		"HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_IDLE_TIMEOUT", "SSE_KEEPALIVE",
		"JWT_SECRET",
		"DATABASE_URL",
		"REDIS_URL", "REDIS_ENABLED",
		"RABBITMQ_URL", "RABBITMQ_ENABLED", "SYNC_QUEUE_NAME",
		"SESSION_EXPIRY_INTERVAL",
		"NOTIFICATION_WEBHOOK_URL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.SSEKeepalive)

	assert.Equal(t, "", cfg.JWTSecret)

	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.RabbitMQEnabled)

	assert.Equal(t, time.Minute, cfg.SessionExpiryInterval)
	assert.Equal(t, "", cfg.NotificationWebhookURL)
}

func TestLoad_WithCustomEnvVars(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("HTTP_ADDR", "127.0.0.1:9090")
	os.Setenv("JWT_SECRET", "hush")
	os.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/dispatch")
	os.Setenv("REDIS_ENABLED", "true")
	os.Setenv("RABBITMQ_ENABLED", "true")
	os.Setenv("SYNC_QUEUE_NAME", "dispatch-sync-1")
	os.Setenv("SSE_KEEPALIVE", "10s")
	os.Setenv("SESSION_EXPIRY_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, "hush", cfg.JWTSecret)
	assert.Equal(t, "postgres://user:pass@db:5432/dispatch", cfg.DatabaseURL)
	assert.True(t, cfg.RedisEnabled)
	assert.True(t, cfg.RabbitMQEnabled)
	assert.Equal(t, "dispatch-sync-1", cfg.SyncQueueName)
	assert.Equal(t, 10*time.Second, cfg.SSEKeepalive)
	assert.Equal(t, 5*time.Minute, cfg.SessionExpiryInterval)
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		appEnv   string
		expected bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.appEnv, func(t *testing.T) {
			cfg := &Config{AppEnv: tt.appEnv}
			assert.Equal(t, tt.expected, cfg.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		appEnv   string
		expected bool
	}{
		{"development", false},
		{"production", true},
		{"staging", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.appEnv, func(t *testing.T) {
			cfg := &Config{AppEnv: tt.appEnv}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestGetEnv(t *testing.T) {
	value := getEnv("NON_EXISTENT_VAR", "default")
	assert.Equal(t, "default", value)

	os.Setenv("TEST_VAR", "custom")
	defer os.Unsetenv("TEST_VAR")
	value = getEnv("TEST_VAR", "default")
	assert.Equal(t, "custom", value)

	os.Setenv("TEST_EMPTY", "")
	defer os.Unsetenv("TEST_EMPTY")
	value = getEnv("TEST_EMPTY", "default")
	assert.Equal(t, "default", value)
}

func TestGetDurationEnv(t *testing.T) {
	value := getDurationEnv("NON_EXISTENT_DUR", 5*time.Second)
	assert.Equal(t, 5*time.Second, value)

	os.Setenv("TEST_DUR", "10m")
	defer os.Unsetenv("TEST_DUR")
	value = getDurationEnv("TEST_DUR", 5*time.Second)
	assert.Equal(t, 10*time.Minute, value)

	os.Setenv("TEST_INVALID_DUR", "not-a-duration")
	defer os.Unsetenv("TEST_INVALID_DUR")
	value = getDurationEnv("TEST_INVALID_DUR", 5*time.Second)
	assert.Equal(t, 5*time.Second, value)
}

func TestGetBoolEnv(t *testing.T) {
	value := getBoolEnv("NON_EXISTENT_BOOL", true)
	assert.True(t, value)

	trueValues := []string{"true", "1", "True", "TRUE"}
	for _, tv := range trueValues {
		os.Setenv("TEST_BOOL", tv)
		value = getBoolEnv("TEST_BOOL", false)
		assert.True(t, value, "expected true for value: %s", tv)
	}

	falseValues := []string{"false", "0", "False", "FALSE"}
	for _, fv := range falseValues {
		os.Setenv("TEST_BOOL", fv)
		value = getBoolEnv("TEST_BOOL", true)
		assert.False(t, value, "expected false for value: %s", fv)
	}
	os.Unsetenv("TEST_BOOL")

	os.Setenv("TEST_INVALID_BOOL", "not-a-bool")
	defer os.Unsetenv("TEST_INVALID_BOOL")
	value = getBoolEnv("TEST_INVALID_BOOL", true)
	assert.True(t, value)
}
