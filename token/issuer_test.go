package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andresl123/food-rescue-live-sub000/internal/errors"
	"github.com/andresl123/food-rescue-live-sub000/token"
	"github.com/andresl123/food-rescue-live-sub000/token/keys"
	"github.com/andresl123/food-rescue-live-sub000/token/refresh"
	"github.com/andresl123/food-rescue-live-sub000/users"
)

const (
	testIssuer   = "com.testissuer"
	testAudience = "api"
)

type issuerFixture struct {
	material *keys.Material
	registry *refresh.Registry
	issuer   *token.Issuer
	verifier *token.Verifier
	now      time.Time
}

func setupIssuerFixture(t *testing.T) *issuerFixture {
	t.Helper()

	material, err := keys.Generate()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc := func() time.Time { return now }

	registry := refresh.NewRegistry(refresh.WithNowFunc(nowFunc))
	issuer := token.NewIssuer(keys.NewMaterialSigner(material), registry, testIssuer, testAudience,
		token.WithNowFunc(nowFunc))
	verifier := token.NewVerifier(material, testIssuer, testAudience,
		token.WithRefreshChecker(registry),
		token.WithVerifierNowFunc(nowFunc))

	return &issuerFixture{
		material: material,
		registry: registry,
		issuer:   issuer,
		verifier: verifier,
		now:      now,
	}
}

func testPrincipal() *users.Principal {
	return &users.Principal{
		ID:     "user-1",
		Email:  "jane.doe@example.com",
		Roles:  []users.RoleType{users.RoleDonor, users.RoleCourier},
		Status: users.StatusActive,
	}
}

func TestIssueAccessTokenRoundTrip(t *testing.T) {
	f := setupIssuerFixture(t)

	issued, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)
	require.NotEmpty(t, issued.SignedToken)
	require.NotEmpty(t, issued.ID)

	verification, err := f.verifier.Verify(issued.SignedToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", verification.Subject)
	require.Equal(t, "jane.doe@example.com", verification.Email)
	require.Equal(t, []string{"DONOR", "COURIER"}, verification.Roles)
	require.Equal(t, []string{"ROLE_DONOR", "ROLE_COURIER"}, verification.Authorities)
	require.Equal(t, "ACTIVE", verification.Status)
	require.Equal(t, issued.ID, verification.TokenID)

	// Timestamps survive the claim round trip exactly, at second granularity
	require.Equal(t, issued.IssuedAt.Unix(), verification.IssuedAt.Unix())
	require.Equal(t, issued.ExpiresAt.Unix(), verification.ExpiresAt.Unix())
	require.Equal(t, f.now.Unix(), issued.IssuedAt.Unix())
	require.Equal(t, f.now.Add(15*time.Minute).Unix(), issued.ExpiresAt.Unix())
}

func TestIssueAccessTokenCustomTTL(t *testing.T) {
	material, err := keys.Generate()
	require.NoError(t, err)

	issuer := token.NewIssuer(keys.NewMaterialSigner(material), refresh.NewRegistry(), testIssuer, testAudience,
		token.WithTokenExpiry(5*time.Minute, time.Hour))
	require.Equal(t, 5*time.Minute, issuer.AccessTokenTTL())
	require.Equal(t, time.Hour, issuer.RefreshTokenTTL())

	issued, err := issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, issued.ExpiresAt.Sub(issued.IssuedAt))
}

func TestRefreshTokenNotUsableUntilRegistered(t *testing.T) {
	f := setupIssuerFixture(t)

	issued, err := f.issuer.IssueRefreshToken(testPrincipal())
	require.NoError(t, err)

	_, err = f.verifier.VerifyRefresh(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrRefreshRejected)

	f.issuer.RegisterRefresh(issued.SignedToken)

	verification, err := f.verifier.VerifyRefresh(issued.SignedToken)
	require.NoError(t, err)
	require.Equal(t, issued.ID, verification.TokenID)
}

func TestRegisterRefreshSkipsAccessTokens(t *testing.T) {
	f := setupIssuerFixture(t)

	access, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	f.issuer.RegisterRefresh(access.SignedToken)
	require.Zero(t, f.registry.Len())
}

func TestRegisterRefreshSkipsGarbage(t *testing.T) {
	f := setupIssuerFixture(t)

	f.issuer.RegisterRefresh("not-a-token")
	f.issuer.RegisterRefresh("")
	require.Zero(t, f.registry.Len())
}

func TestRotateRefreshRejectsOldToken(t *testing.T) {
	f := setupIssuerFixture(t)
	principal := testPrincipal()

	old, err := f.issuer.IssueRefreshToken(principal)
	require.NoError(t, err)
	f.issuer.RegisterRefresh(old.SignedToken)

	rotated, err := f.issuer.RotateRefresh(principal, old.ID)
	require.NoError(t, err)
	require.NotEqual(t, old.ID, rotated.ID)

	// The old id must stay dead even though the token itself is unexpired
	_, err = f.verifier.VerifyRefresh(old.SignedToken)
	require.ErrorIs(t, err, errors.ErrRefreshRejected)

	verification, err := f.verifier.VerifyRefresh(rotated.SignedToken)
	require.NoError(t, err)
	require.Equal(t, rotated.ID, verification.TokenID)
}

func TestAccessTokenRejectedOnRefreshPath(t *testing.T) {
	f := setupIssuerFixture(t)

	access, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = f.verifier.VerifyRefresh(access.SignedToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestExtractTokenID(t *testing.T) {
	f := setupIssuerFixture(t)

	issued, err := f.issuer.IssueRefreshToken(testPrincipal())
	require.NoError(t, err)

	rti, ok := token.ExtractTokenID(issued.SignedToken)
	require.True(t, ok)
	require.Equal(t, issued.ID, rti)

	_, ok = token.ExtractTokenID("garbage")
	require.False(t, ok)
}
