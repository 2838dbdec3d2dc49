package authapi

// Routes and header names shared between the edge and the issuer.
const (
	LoginPath           = "/auth/login"
	RegisterPath        = "/auth/register"
	GooglePath          = "/auth/google"
	CompleteProfilePath = "/auth/complete-profile"
	RefreshPath         = "/auth/refresh"
	LogoutPath          = "/auth/logout"
	JWKSPath            = "/.well-known/jwks.json"

	// RefreshTokenHeader carries the refresh token from the edge to the issuer
	// on logout. Refresh itself presents the refresh token as an Authorization
	// bearer credential instead, since the issuer is a separate trust boundary
	// from the edge and never sees its cookies.
	RefreshTokenHeader = "X-Refresh-Token"
)

// TokenPairResponse is the issuance shape returned by login, registration,
// external-identity exchange, profile completion and refresh.
type TokenPairResponse struct {
	AccessToken      string `json:"accessToken"`
	AccessExpiresIn  int64  `json:"accessExpiresIn"` // seconds
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"` // seconds
}

// ErrorResponse is the JSON error shape every auth endpoint returns
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// GoogleExchangeRequest carries an externally issued ID token to be verified
// and exchanged for a local session
type GoogleExchangeRequest struct {
	IDToken string `json:"idToken"`
}

type CompleteProfileRequest struct {
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}
