package config

import "time"

// EdgeConfig is consumed by the backend-for-frontend: where to reach the
// issuer and the resource backend, and how the proactive renewal filter
// behaves.
type EdgeConfig interface {
	GetAuthServiceURL() string
	GetBackendServiceURL() string
	GetRenewalThreshold() time.Duration
	GetRefreshCallTimeout() time.Duration
}

type Edge struct{}

var _ EdgeConfig = Edge{}

func (Edge) GetAuthServiceURL() string {
	return GetEnv("AUTH_SERVICE_URL", "http://localhost:8080")
}

func (Edge) GetBackendServiceURL() string {
	return GetEnv("BACKEND_SERVICE_URL", "http://localhost:8090")
}

// GetRenewalThreshold is a fixed duration rather than a fraction of the access
// token TTL, so changing token lifetimes does not silently change renewal
// behaviour.
func (Edge) GetRenewalThreshold() time.Duration {
	return GetEnvSeconds("RENEWAL_THRESHOLD_SECONDS", 8*time.Minute)
}

func (Edge) GetRefreshCallTimeout() time.Duration {
	return GetEnvSeconds("REFRESH_CALL_TIMEOUT_SECONDS", 5*time.Second)
}
