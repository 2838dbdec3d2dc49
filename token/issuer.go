package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresl123/food-rescue-live-sub000/token/keys"
	"github.com/andresl123/food-rescue-live-sub000/token/refresh"
	"github.com/andresl123/food-rescue-live-sub000/users"
)

// RefreshTokenType is the value of the typ claim that marks refresh tokens
const RefreshTokenType = "refresh"

// IssuedToken is a freshly minted, signed token together with the metadata
// callers need to register it or shape a response.
type IssuedToken struct {
	SignedToken string
	ID          string // jti (access) or rti (refresh)
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Issuer mints signed access and refresh tokens from a principal's claims.
// Issuance is stateless; only refresh token ids are tracked, and only through
// explicit registration.
type Issuer struct {
	signer     keys.Signer
	registry   *refresh.Registry
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

type IssuerOption func(*Issuer)

func WithTokenExpiry(accessTTL, refreshTTL time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTTL = accessTTL
		i.refreshTTL = refreshTTL
	}
}

func WithNowFunc(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = nowFunc
	}
}

func NewIssuer(signer keys.Signer, registry *refresh.Registry, issuer, audience string, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:   signer,
		registry: registry,
		issuer:   issuer,
		audience: audience,
		nowFunc:  time.Now,
	}

	for _, opt := range options {
		opt(i)
	}

	if i.accessTTL == 0 {
		i.accessTTL = 15 * time.Minute
	}
	if i.refreshTTL == 0 {
		i.refreshTTL = 14 * 24 * time.Hour
	}
	return i
}

func (i *Issuer) AccessTokenTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) RefreshTokenTTL() time.Duration {
	return i.refreshTTL
}

// IssueAccessToken mints a short-lived bearer credential carrying the
// principal's identity and authorization claims. Access tokens are not
// registered anywhere; validity is inferred from signature, expiry and
// absence from the revocation registry.
func (i *Issuer) IssueAccessToken(principal *users.Principal) (*IssuedToken, error) {
	now := i.nowFunc()
	issuedAt := time.Unix(now.Unix(), 0) // second granularity, preserved exactly through claims
	expiresAt := issuedAt.Add(i.accessTTL)
	jti := uuid.New().String()

	claims := jwt.MapClaims{
		"iss":    i.issuer,
		"sub":    principal.ID,
		"aud":    i.audience,
		"email":  principal.Email,
		"roles":  principal.RoleStrings(),
		"status": string(principal.Status),
		"iat":    issuedAt.Unix(),
		"exp":    expiresAt.Unix(),
		"jti":    jti,
	}

	signedToken, err := i.signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		SignedToken: signedToken,
		ID:          jti,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// IssueRefreshToken mints a long-lived credential that only proves the
// subject may re-authenticate, so it carries no role or status claims. The
// token is not usable for refresh until RegisterRefresh is called.
func (i *Issuer) IssueRefreshToken(principal *users.Principal) (*IssuedToken, error) {
	now := i.nowFunc()
	issuedAt := time.Unix(now.Unix(), 0)
	expiresAt := issuedAt.Add(i.refreshTTL)
	rti := uuid.New().String()

	claims := jwt.MapClaims{
		"iss":   i.issuer,
		"sub":   principal.ID,
		"aud":   i.audience,
		"email": principal.Email,
		"typ":   RefreshTokenType,
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   rti,
	}

	signedToken, err := i.signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		SignedToken: signedToken,
		ID:          rti,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// RegisterRefresh makes a just-issued refresh token usable by inserting its id
// and expiry into the refresh registry. Parse failures and non-refresh tokens
// are silently skipped so the issuance flow is never blocked by registration.
func (i *Issuer) RegisterRefresh(signedToken string) {
	unverified, _, err := jwt.NewParser().ParseUnverified(signedToken, jwt.MapClaims{})
	if err != nil {
		log.Debug().Err(err).Msg("refresh registration skipped: unparseable token")
		return
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return
	}
	if typ, _ := claims["typ"].(string); typ != RefreshTokenType {
		log.Debug().Msg("refresh registration skipped: not a refresh token")
		return
	}

	rti, _ := claims["jti"].(string)
	exp, ok := claims["exp"].(float64)
	if rti == "" || !ok {
		return
	}

	i.registry.Register(rti, time.Unix(int64(exp), 0))
}

// RotateRefresh revokes the old refresh token id and issues a registered
// replacement. Revocation happens first and is not atomic with issuance: a
// concurrent request presenting the old id after revocation but before the
// caller switches tokens is rejected, which is the intended replay
// protection.
func (i *Issuer) RotateRefresh(principal *users.Principal, oldRti string) (*IssuedToken, error) {
	i.registry.Revoke(oldRti)

	issued, err := i.IssueRefreshToken(principal)
	if err != nil {
		return nil, err
	}
	i.RegisterRefresh(issued.SignedToken)
	return issued, nil
}
