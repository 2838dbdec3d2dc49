package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andresl123/food-rescue-live-sub000/internal/errors"
	"github.com/andresl123/food-rescue-live-sub000/token"
	"github.com/andresl123/food-rescue-live-sub000/token/keys"
)

func TestVerifyRejectsExpiredToken(t *testing.T) {
	f := setupIssuerFixture(t)

	issued, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	lateVerifier := token.NewVerifier(f.material, testIssuer, testAudience,
		token.WithVerifierNowFunc(func() time.Time { return f.now.Add(16 * time.Minute) }))

	_, err = lateVerifier.Verify(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuerAndAudience(t *testing.T) {
	f := setupIssuerFixture(t)

	issued, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	wrongIssuer := token.NewVerifier(f.material, "com.someoneelse", testAudience,
		token.WithVerifierNowFunc(func() time.Time { return f.now }))
	_, err = wrongIssuer.Verify(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	wrongAudience := token.NewVerifier(f.material, testIssuer, "other-api",
		token.WithVerifierNowFunc(func() time.Time { return f.now }))
	_, err = wrongAudience.Verify(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	f := setupIssuerFixture(t)

	issued, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	parts := strings.Split(issued.SignedToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = f.verifier.Verify(tampered)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	f := setupIssuerFixture(t)

	foreignMaterial, err := keys.Generate()
	require.NoError(t, err)
	foreignIssuer := token.NewIssuer(keys.NewMaterialSigner(foreignMaterial), f.registry, testIssuer, testAudience,
		token.WithNowFunc(func() time.Time { return f.now }))

	issued, err := foreignIssuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = f.verifier.Verify(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerifyReportsRevokedToken(t *testing.T) {
	f := setupIssuerFixture(t)
	revocations := token.NewRevocationRegistry(
		token.WithRevocationNowFunc(func() time.Time { return f.now }))

	verifier := token.NewVerifier(f.material, testIssuer, testAudience,
		token.WithRevocationChecker(revocations),
		token.WithVerifierNowFunc(func() time.Time { return f.now }))

	issued, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = verifier.Verify(issued.SignedToken)
	require.NoError(t, err)

	revocations.Revoke(issued.ID, issued.ExpiresAt)

	_, err = verifier.Verify(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrTokenRevoked)
}

func TestExpiredAndRevokedReportsInvalidNotRevoked(t *testing.T) {
	f := setupIssuerFixture(t)
	revocations := token.NewRevocationRegistry()

	issued, err := f.issuer.IssueAccessToken(testPrincipal())
	require.NoError(t, err)
	revocations.Revoke(issued.ID, issued.ExpiresAt)

	lateVerifier := token.NewVerifier(f.material, testIssuer, testAudience,
		token.WithRevocationChecker(revocations),
		token.WithVerifierNowFunc(func() time.Time { return f.now.Add(time.Hour) }))

	// Expiry wins: revocation is only consulted for otherwise valid tokens
	_, err = lateVerifier.Verify(issued.SignedToken)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
	require.NotErrorIs(t, err, errors.ErrTokenRevoked)
}

func TestVerifyNeverPanicsOnGarbage(t *testing.T) {
	f := setupIssuerFixture(t)

	garbage := []string{
		"",
		"   ",
		"not-a-token",
		"a.b.c",
		"eyJhbGciOiJub25lIn0..",
		strings.Repeat(".", 100),
		"\x00\x01\x02",
	}

	for _, rawToken := range garbage {
		_, err := f.verifier.Verify(rawToken)
		require.Error(t, err)

		_, err = f.verifier.VerifyRefresh(rawToken)
		require.Error(t, err)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	f := setupIssuerFixture(t)

	// alg=none style token assembled by hand
	header := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0"
	payload := "eyJzdWIiOiJ1c2VyLTEifQ"
	_, err := f.verifier.Verify(header + "." + payload + ".")
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}
