package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"

	"github.com/pkg/errors"

	autherrors "github.com/andresl123/food-rescue-live-sub000/internal/errors"
)

// RS256 is the only signing algorithm in use (string value used in JWKs and headers)
const RS256 = "RS256"

// Material holds the process signing keypair and its public key identifier.
// One keypair is loaded or generated at startup and held for the process
// lifetime; rotation across restarts is out of scope.
type Material struct {
	keyID      string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"`           // Key type (RSA)
	Use string `json:"use,omitempty"` // sig or enc
	Kid string `json:"kid,omitempty"` // Key ID
	Alg string `json:"alg,omitempty"` // Algorithm
	N   string `json:"n,omitempty"`   // Modulus
	E   string `json:"e,omitempty"`   // Exponent
}

// New builds the signing key material from configuration-supplied PEM strings.
// The private key must be PKCS#8, the public key X.509 SubjectPublicKeyInfo;
// anything else is a startup failure. When both strings are empty an ephemeral
// RSA-2048 keypair is generated instead.
func New(privateKeyPEM, publicKeyPEM string) (*Material, error) {
	if privateKeyPEM == "" && publicKeyPEM == "" {
		return Generate()
	}

	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, autherrors.Wrapf(autherrors.ErrKeyMaterialInit, "both private and public key PEM must be supplied")
	}

	privateKey, err := loadPrivateKeyPKCS8(privateKeyPEM)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrKeyMaterialInit, "private key: %v", err)
	}

	publicKey, err := loadPublicKeyPKIX(publicKeyPEM)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrKeyMaterialInit, "public key: %v", err)
	}

	return newMaterial(privateKey, publicKey)
}

// Generate creates ephemeral RSA-2048 key material. Tokens signed with it do
// not survive a restart, which matches the process-local registry design.
func Generate() (*Material, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrKeyMaterialInit, "generate RSA key: %v", err)
	}
	return newMaterial(privateKey, &privateKey.PublicKey)
}

func newMaterial(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) (*Material, error) {
	keyID, err := Thumbprint(publicKey)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrKeyMaterialInit, "key id: %v", err)
	}
	return &Material{
		keyID:      keyID,
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// Thumbprint derives a stable key id from the base64url SHA-256 digest of the
// public key's PKIX encoding. Computed once at startup and reused for every
// signature header and the published key set.
func Thumbprint(publicKey *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal public key")
	}
	digest := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(digest[:]), nil
}

// KeyID returns the stable identifier carried in every token's kid header
func (m *Material) KeyID() string {
	return m.keyID
}

// SigningKey returns the private key. For the issuer only.
func (m *Material) SigningKey() *rsa.PrivateKey {
	return m.privateKey
}

func (m *Material) PublicKey() *rsa.PublicKey {
	return m.publicKey
}

// PublicKeySet returns the public-key-only document served without
// authentication for downstream verifiers.
func (m *Material) PublicKeySet() *JWKS {
	return &JWKS{Keys: []JWK{m.toJWK()}}
}

// VerificationKey resolves the public key for a token header's kid. Used by
// verifiers colocated with the issuer; remote verifiers use RemoteKeySet.
func (m *Material) VerificationKey(kid string) (crypto.PublicKey, error) {
	if kid != m.keyID {
		return nil, errors.Wrapf(autherrors.ErrUnknownKeyID, "kid %q", kid)
	}
	return m.publicKey, nil
}

func (m *Material) toJWK() JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: m.keyID,
		Alg: RS256,
		N:   base64.RawURLEncoding.EncodeToString(m.publicKey.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(m.publicKey.E)).Bytes()),
	}
}

// RSAPublicKey rebuilds the RSA public key from the JWK's modulus and exponent
func (j *JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if j.Kty != "RSA" {
		return nil, errors.Errorf("unsupported key type %q", j.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode modulus")
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// ExportPrivateKeyPEM exports the private key as PKCS#8 PEM
func (m *Material) ExportPrivateKeyPEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(m.privateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal private key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// ExportPublicKeyPEM exports the public key as X.509 SubjectPublicKeyInfo PEM
func (m *Material) ExportPublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(m.publicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal public key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func loadPrivateKeyPKCS8(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PKCS#8 private key")
	}

	privateKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return privateKey, nil
}

func loadPublicKeyPKIX(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PKIX public key")
	}

	publicKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return publicKey, nil
}
