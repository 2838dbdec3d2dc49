package keys

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer is an interface for signing JWT claims and resolving verification keys
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey returns the key used to verify a parsed token
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// MaterialSigner implements Signer over the process key material using RS256.
// Every signed token's header carries the material's key id.
type MaterialSigner struct {
	material *Material
}

func NewMaterialSigner(material *Material) *MaterialSigner {
	return &MaterialSigner{material: material}
}

func (s *MaterialSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.material.KeyID()

	signedToken, err := token.SignedString(s.material.SigningKey())
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signedToken, nil
}

func (s *MaterialSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.material.PublicKey(), nil
}

func (s *MaterialSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodRS256
}
