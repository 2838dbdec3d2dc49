package keys

import (
	"crypto"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	autherrors "github.com/andresl123/food-rescue-live-sub000/internal/errors"
)

// RemoteKeySet fetches and caches the issuer's published key set so resource
// servers can verify signatures without sharing process memory with the
// issuer. An unknown kid triggers one re-fetch before failing, which covers an
// issuer restarted with fresh ephemeral keys.
type RemoteKeySet struct {
	uri        string
	httpClient *http.Client

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

type RemoteKeySetOption func(*RemoteKeySet)

func WithHTTPClient(httpClient *http.Client) RemoteKeySetOption {
	return func(r *RemoteKeySet) {
		r.httpClient = httpClient
	}
}

func NewRemoteKeySet(uri string, options ...RemoteKeySetOption) *RemoteKeySet {
	r := &RemoteKeySet{
		uri:        uri,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       make(map[string]*rsa.PublicKey),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// VerificationKey resolves the public key for a token header's kid
func (r *RemoteKeySet) VerificationKey(kid string) (crypto.PublicKey, error) {
	r.mu.RLock()
	key, ok := r.keys[kid]
	r.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := r.refresh(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	key, ok = r.keys[kid]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(autherrors.ErrUnknownKeyID, "kid %q", kid)
	}
	return key, nil
}

func (r *RemoteKeySet) refresh() error {
	resp, err := r.httpClient.Get(r.uri)
	if err != nil {
		return errors.Wrap(err, "failed to fetch key set")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("key set endpoint returned %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return errors.Wrap(err, "failed to decode key set")
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for i := range jwks.Keys {
		jwk := jwks.Keys[i]
		publicKey, err := jwk.RSAPublicKey()
		if err != nil {
			continue // skip unusable entries, the rest of the set is still good
		}
		keys[jwk.Kid] = publicKey
	}

	r.mu.Lock()
	r.keys = keys
	r.mu.Unlock()
	return nil
}
