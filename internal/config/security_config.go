package config

import (
	"time"

	"github.com/jrsteele09/learnpath/guard"
)

const (
	authTimeoutVar = "LEARNPATH_AUTH_TIMEOUT"
	authRateVar    = "AUTH_RATE_PER_MINUTE"
)

type SecurityConfig interface {
	GetAuthTimeout() time.Duration
	GetAuthRatePerMinute() int
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAuthTimeout bounds the route guard's loading wait.
func (Security) GetAuthTimeout() time.Duration {
	d, err := parseDuration(authTimeoutVar, "")
	if err != nil || d == 0 {
		return guard.DefaultTimeout
	}
	return d
}

// GetAuthRatePerMinute limits sign-in, sign-up and reset submissions.
func (Security) GetAuthRatePerMinute() int {
	n, err := parseInt(authRateVar)
	if err != nil || n == 0 {
		return 10
	}
	return n
}
