package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/learnpath/internal/config"
	apperrors "github.com/jrsteele09/learnpath/internal/errors"
	"github.com/stretchr/testify/require"
)

func setBackend(t *testing.T) {
	t.Helper()
	t.Setenv("LEARNPATH_BACKEND_URL", "https://backend.example.com/")
	t.Setenv("LEARNPATH_BACKEND_KEY", "anon-key")
}

func TestValidateRequiresBackend(t *testing.T) {
	t.Setenv("LEARNPATH_BACKEND_URL", "")
	t.Setenv("LEARNPATH_BACKEND_KEY", "")

	err := config.Validate(config.New())
	require.ErrorIs(t, err, apperrors.ErrMissingConfig)
	require.Contains(t, err.Error(), "LEARNPATH_BACKEND_URL, LEARNPATH_BACKEND_KEY")

	t.Setenv("LEARNPATH_BACKEND_URL", "https://backend.example.com")
	err = config.Validate(config.New())
	require.ErrorIs(t, err, apperrors.ErrMissingConfig)
	require.NotContains(t, err.Error(), "LEARNPATH_BACKEND_URL")
}

func TestValidateRejectsBadValues(t *testing.T) {
	setBackend(t)

	t.Setenv("LEARNPATH_AUTH_TIMEOUT", "soon")
	require.ErrorIs(t, config.Validate(config.New()), apperrors.ErrInvalidConfig)

	t.Setenv("LEARNPATH_AUTH_TIMEOUT", "")
	t.Setenv("AUTH_RATE_PER_MINUTE", "-3")
	require.ErrorIs(t, config.Validate(config.New()), apperrors.ErrInvalidConfig)

	t.Setenv("AUTH_RATE_PER_MINUTE", "")
	require.NoError(t, config.Validate(config.New()))
}

func TestDefaults(t *testing.T) {
	setBackend(t)
	for _, v := range []string{"PORT", "LISTEN_ADDR", "APP_NAME", "ENV", "BASE_URL", "LOG_LEVEL", "LEARNPATH_AUTH_TIMEOUT", "AUTH_RATE_PER_MINUTE", "DATABASE_URL", "REDIS_URL", "LEARNPATH_ISSUER_URL"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "127.0.0.1:8080", c.GetListenAddr())
	require.Equal(t, "LearnPath", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, "https://backend.example.com", c.GetBackendURL())
	require.Equal(t, "https://backend.example.com/auth/v1", c.GetIssuerURL())
	require.Equal(t, 15*time.Second, c.GetAuthTimeout())
	require.Equal(t, 10, c.GetAuthRatePerMinute())
	require.Empty(t, c.GetDatabaseURL())
	require.Empty(t, c.GetRedisURL())
}

func TestOverrides(t *testing.T) {
	setBackend(t)
	t.Setenv("PORT", ":9000")
	t.Setenv("LEARNPATH_AUTH_TIMEOUT", "2s")
	t.Setenv("AUTH_RATE_PER_MINUTE", "30")
	t.Setenv("BASE_URL", "https://learn.example.com/")
	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "127.0.0.1:9000", c.GetListenAddr())
	require.Equal(t, 2*time.Second, c.GetAuthTimeout())
	require.Equal(t, 30, c.GetAuthRatePerMinute())
	require.Equal(t, "https://learn.example.com", c.GetBaseURL())
}

func TestListenAddrOptIn(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LISTEN_ADDR", "0.0.0.0:7000")

	require.Equal(t, "0.0.0.0:7000", config.New().GetListenAddr())
}

