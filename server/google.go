package server

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuerURL = "https://accounts.google.com"

// ExternalIdentity is what an external provider asserts about a user after
// its ID token checks out
type ExternalIdentity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// ExternalIdentityVerifier verifies a raw ID token issued by an external
// provider and returns the identity it asserts.
type ExternalIdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*ExternalIdentity, error)
}

// GoogleOIDC verifies Google-issued ID tokens against Google's published keys
type GoogleOIDC struct {
	OidcProvider *oidc.Provider
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers Google's OIDC configuration. Discovery needs
// the network, so construction can fail at startup rather than per-request.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleOIDC, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuerURL)
	if err != nil {
		return nil, fmt.Errorf("[NewGoogleVerifier] failed to create OIDC provider: %w", err)
	}

	return &GoogleOIDC{
		OidcProvider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID: clientID,
			Endpoint: provider.Endpoint(),
			Scopes:   []string{oidc.ScopeOpenID, "profile", "email"},
		},
		OidcVerifier: provider.Verifier(&oidc.Config{
			ClientID: clientID,
		}),
	}, nil
}

func (g *GoogleOIDC) Verify(ctx context.Context, rawIDToken string) (*ExternalIdentity, error) {
	idToken, err := g.OidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[GoogleOIDC Verify] ID token verification failed: %w", err)
	}

	var claims struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("[GoogleOIDC Verify] failed to parse claims: %w", err)
	}

	return &ExternalIdentity{
		Subject:   idToken.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}, nil
}
