package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andresl123/food-rescue-live-sub000/token"
)

func TestRevocationRegistryBasics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry := token.NewRevocationRegistry(
		token.WithRevocationNowFunc(func() time.Time { return now }))

	require.False(t, registry.IsRevoked("jti-1"))

	registry.Revoke("jti-1", now.Add(15*time.Minute))
	require.True(t, registry.IsRevoked("jti-1"))
	require.False(t, registry.IsRevoked("jti-2"))
	require.False(t, registry.IsRevoked(""))

	registry.Revoke("", now.Add(time.Minute))
	require.Equal(t, 1, registry.Len())
}

func TestRevocationExpiredEntryReportsOnceThenPurged(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry := token.NewRevocationRegistry(
		token.WithRevocationNowFunc(func() time.Time { return now }))

	registry.Revoke("jti-1", now.Add(-time.Second))

	// The stale entry still answers revoked on the lookup that finds it
	require.True(t, registry.IsRevoked("jti-1"))
	require.Zero(t, registry.Len())

	// Once purged the id reads as unknown
	require.False(t, registry.IsRevoked("jti-1"))
}

func TestRevocationCleanupPurgesOnlyExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry := token.NewRevocationRegistry(
		token.WithRevocationNowFunc(func() time.Time { return now }))

	registry.Revoke("expired-1", now.Add(-time.Minute))
	registry.Revoke("expired-2", now)
	registry.Revoke("live-1", now.Add(time.Minute))

	require.Equal(t, 2, registry.Cleanup())
	require.Equal(t, 1, registry.Len())
	require.True(t, registry.IsRevoked("live-1"))
}

func TestRevocationLookupFaultKeepsPositiveHit(t *testing.T) {
	registry := token.NewRevocationRegistry(
		token.WithRevocationNowFunc(func() time.Time { panic("clock fault") }))

	registry.Revoke("jti-1", time.Now().Add(time.Minute))

	// The expiry comparison panics after membership is established; the
	// blacklist hit must survive the fault.
	require.NotPanics(t, func() {
		require.True(t, registry.IsRevoked("jti-1"))
	})
}

func TestRevocationLookupFaultWithoutHitFailsOpen(t *testing.T) {
	registry := token.NewRevocationRegistry(
		token.WithRevocationNowFunc(func() time.Time { panic("clock fault") }))

	// No membership was established, so the fault reads as not revoked
	require.NotPanics(t, func() {
		require.False(t, registry.IsRevoked("jti-unknown"))
	})
}

func TestRevocationCloseIsIdempotent(t *testing.T) {
	registry := token.NewRevocationRegistry(
		token.WithRevocationSweepInterval(time.Millisecond))
	registry.StartSweeping()
	registry.Close()
	registry.Close()
}
