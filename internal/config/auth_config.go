package config

import "time"

// AuthConfig is the configuration surface consumed by token issuance and
// verification: issuer/audience strings, token lifetimes, optional PEM key
// material and the JWKS URI used by services that verify remotely.
type AuthConfig interface {
	GetIssuer() string
	GetAudience() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetPrivateKeyPEM() string
	GetPublicKeyPEM() string
	GetJWKSURI() string
	GetRefreshSweepInterval() time.Duration
	GetGoogleClientID() string
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetIssuer() string {
	return GetEnv("TOKEN_ISSUER", "food-rescue-auth")
}

func (Auth) GetAudience() string {
	return GetEnv("TOKEN_AUDIENCE", "food-rescue-api")
}

func (Auth) GetAccessTokenTTL() time.Duration {
	return GetEnvSeconds("ACCESS_TOKEN_TTL_SECONDS", 900*time.Second)
}

func (Auth) GetRefreshTokenTTL() time.Duration {
	return GetEnvSeconds("REFRESH_TOKEN_TTL_SECONDS", 14*24*time.Hour)
}

// GetPrivateKeyPEM returns the PKCS#8 PEM signing key, or "" to generate an
// ephemeral keypair at startup.
func (Auth) GetPrivateKeyPEM() string {
	return GetEnv("JWT_PRIVATE_KEY_PEM", "")
}

func (Auth) GetPublicKeyPEM() string {
	return GetEnv("JWT_PUBLIC_KEY_PEM", "")
}

func (Auth) GetJWKSURI() string {
	return GetEnv("JWKS_URI", "")
}

func (Auth) GetRefreshSweepInterval() time.Duration {
	return GetEnvSeconds("REFRESH_SWEEP_INTERVAL_SECONDS", 60*time.Second)
}

func (Auth) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}
