package config

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/learnpath/internal/errors"
)

type Config interface {
	EnvConfig
	BackendConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetListenAddr() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Backend
	OAuth
	Security
	Storage
}

func New() Config {
	return mainConfig{}
}

// Validate reports every required variable that is unset, and any value
// that cannot be parsed.
func Validate(c Config) error {
	var missing []string
	if c.GetBackendURL() == "" {
		missing = append(missing, backendURLVar)
	}
	if c.GetBackendKey() == "" {
		missing = append(missing, backendKeyVar)
	}
	if len(missing) > 0 {
		return apperrors.Wrapf(apperrors.ErrMissingConfig, "[Validate] %s", strings.Join(missing, ", "))
	}
	if _, err := parseDuration(authTimeoutVar, ""); err != nil {
		return err
	}
	if _, err := parseInt(authRateVar); err != nil {
		return err
	}
	return nil
}

func invalid(envVar, value string) error {
	return apperrors.Wrapf(apperrors.ErrInvalidConfig, "[config] %s=%q", envVar, value)
}

func wrapInvalid(envVar, value string, err error) error {
	return fmt.Errorf("%w: %v", invalid(envVar, value), err)
}
