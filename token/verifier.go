package token

import (
	"crypto"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherrors "github.com/andresl123/food-rescue-live-sub000/internal/errors"
	"github.com/andresl123/food-rescue-live-sub000/internal/utils"
	"github.com/andresl123/food-rescue-live-sub000/token/keys"
)

// RolePrefix is applied to each role claim when mapping to granted authorities
// (role ADMIN becomes authority ROLE_ADMIN)
const RolePrefix = "ROLE_"

// KeySource resolves the public key identified by a token header's kid.
// Implemented by keys.Material for verifiers colocated with the issuer and by
// keys.RemoteKeySet for resource servers verifying via the published key set.
type KeySource interface {
	VerificationKey(kid string) (crypto.PublicKey, error)
}

// RevocationChecker reports whether an access token id has been revoked
type RevocationChecker interface {
	IsRevoked(jti string) bool
}

// RefreshChecker reports whether a refresh token id is still honoured
type RefreshChecker interface {
	IsValid(rti string) bool
}

// Verification is the accepted outcome of token validation, exposing the
// claims the authorization layer consumes.
type Verification struct {
	Subject     string
	Email       string
	Roles       []string
	Status      string
	Authorities []string // roles mapped to granted authorities
	TokenID     string   // jti / rti
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Verifier composes signature, temporal, issuer, audience and revocation
// checks into a single pass/fail decision. Every verification-path failure
// maps to one of the sentinel errors in internal/errors; nothing is ever
// propagated as an unhandled fault.
type Verifier struct {
	keySource   KeySource
	revocations RevocationChecker
	refreshIDs  RefreshChecker
	issuer      string
	audience    string
	nowFunc     func() time.Time
}

type VerifierOption func(*Verifier)

// WithRevocationChecker wires the access token blacklist into verification
func WithRevocationChecker(checker RevocationChecker) VerifierOption {
	return func(v *Verifier) {
		v.revocations = checker
	}
}

// WithRefreshChecker wires the refresh registry into refresh verification
func WithRefreshChecker(checker RefreshChecker) VerifierOption {
	return func(v *Verifier) {
		v.refreshIDs = checker
	}
}

// WithVerifierNowFunc sets the now time function (primarily for testing)
func WithVerifierNowFunc(nowFunc func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFunc = nowFunc
	}
}

func NewVerifier(keySource KeySource, issuer, audience string, options ...VerifierOption) *Verifier {
	v := &Verifier{
		keySource: keySource,
		issuer:    issuer,
		audience:  audience,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Verify runs the full validation pass for an access token. Revocation is
// checked last among the validators so a token that is both expired and
// revoked reports as invalid, not revoked.
func (v *Verifier) Verify(rawToken string) (verification *Verification, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			verification = nil
			err = autherrors.Wrapf(autherrors.ErrValidationInternal, "recovered: %v", rec)
		}
	}()

	claims, err := v.parseAndValidate(rawToken)
	if err != nil {
		return nil, err
	}

	jti, _ := claims["jti"].(string)
	// A token with no jti cannot be looked up and is treated as not revoked.
	if jti != "" && v.revocations != nil && v.revocations.IsRevoked(jti) {
		return nil, autherrors.ErrTokenRevoked
	}

	return newVerification(claims), nil
}

// VerifyRefresh runs the same validation pass for a refresh token, then
// requires the typ=refresh marker and registry membership. Membership is the
// sole condition under which a refresh is honoured.
func (v *Verifier) VerifyRefresh(rawToken string) (verification *Verification, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			verification = nil
			err = autherrors.Wrapf(autherrors.ErrValidationInternal, "recovered: %v", rec)
		}
	}()

	claims, err := v.parseAndValidate(rawToken)
	if err != nil {
		return nil, err
	}

	if typ, _ := claims["typ"].(string); typ != RefreshTokenType {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "not a refresh token")
	}

	rti, _ := claims["jti"].(string)
	if rti == "" || v.refreshIDs == nil || !v.refreshIDs.IsValid(rti) {
		return nil, autherrors.ErrRefreshRejected
	}

	return newVerification(claims), nil
}

func (v *Verifier) parseAndValidate(rawToken string) (jwt.MapClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, autherrors.ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{keys.RS256}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.nowFunc),
	)

	parsed, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, v.verificationKey)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidToken, "%v", err)
	}
	if !parsed.Valid {
		return nil, autherrors.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, autherrors.ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) verificationKey(parsed *jwt.Token) (any, error) {
	kid, _ := parsed.Header["kid"].(string)
	return v.keySource.VerificationKey(kid)
}

func newVerification(claims jwt.MapClaims) *Verification {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	status, _ := claims["status"].(string)
	jti, _ := claims["jti"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	var roles []string
	if claimRoles, ok := claims["roles"].([]any); ok {
		roles = utils.ToStringSlice(claimRoles)
	}

	authorities := make([]string, 0, len(roles))
	for _, role := range roles {
		authorities = append(authorities, RolePrefix+role)
	}

	return &Verification{
		Subject:     sub,
		Email:       email,
		Roles:       roles,
		Status:      status,
		Authorities: authorities,
		TokenID:     jti,
		IssuedAt:    time.Unix(int64(iat), 0),
		ExpiresAt:   time.Unix(int64(exp), 0),
	}
}
