package config

import "strings"

const (
	backendURLVar = "LEARNPATH_BACKEND_URL"
	backendKeyVar = "LEARNPATH_BACKEND_KEY"
)

// BackendConfig locates the hosted auth and data API.
type BackendConfig interface {
	GetBackendURL() string
	GetBackendKey() string
	GetIssuerURL() string
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendURL() string {
	return strings.TrimRight(GetEnv(backendURLVar, ""), "/")
}

// GetBackendKey is the public (anon) key, sent as the apikey header and as
// the OAuth client id.
func (Backend) GetBackendKey() string {
	return GetEnv(backendKeyVar, "")
}

func (b Backend) GetIssuerURL() string {
	return GetEnv("LEARNPATH_ISSUER_URL", b.GetBackendURL()+"/auth/v1")
}
