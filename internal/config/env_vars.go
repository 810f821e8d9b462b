package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar  = "PORT"
	listenVar   = "LISTEN_ADDR"
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	baseURLVar  = "BASE_URL"
	logLevelVar = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

// GetListenAddr is loopback only unless LISTEN_ADDR names another address;
// every visitor shares the one signed-in session.
func (e EnvVars) GetListenAddr() string {
	if addr := GetEnv(listenVar, ""); addr != "" {
		return addr
	}
	return "127.0.0.1" + e.GetPort()
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "LearnPath")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

// GetBaseURL returns the externally visible address of this server, used to
// build OAuth redirect URLs.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseDuration(envVar, defaultValue string) (time.Duration, error) {
	raw := GetEnv(envVar, defaultValue)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, wrapInvalid(envVar, raw, err)
	}
	if d <= 0 {
		return 0, invalid(envVar, raw)
	}
	return d, nil
}

func parseInt(envVar string) (int, error) {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, wrapInvalid(envVar, raw, err)
	}
	if n <= 0 {
		return 0, invalid(envVar, raw)
	}
	return n, nil
}
