package token

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RevocationRegistry tracks access token ids revoked before their natural
// expiry (logout with immediate effect, admin action), mapping jti -> the
// token's own expiry. An entry past that expiry carries no semantic value,
// since the token would be rejected by ordinary expiry anyway, and is purged
// on read or by the periodic sweep.
//
// Entries live in process memory only; durability across restarts is not
// guaranteed.
type RevocationRegistry struct {
	mu      sync.RWMutex
	revoked map[string]time.Time

	sweepInterval time.Duration
	nowFunc       func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type RevocationOption func(*RevocationRegistry)

// WithRevocationSweepInterval overrides the periodic purge interval (default 60s)
func WithRevocationSweepInterval(interval time.Duration) RevocationOption {
	return func(r *RevocationRegistry) {
		r.sweepInterval = interval
	}
}

// WithRevocationNowFunc sets the now time function (primarily for testing)
func WithRevocationNowFunc(nowFunc func() time.Time) RevocationOption {
	return func(r *RevocationRegistry) {
		r.nowFunc = nowFunc
	}
}

func NewRevocationRegistry(options ...RevocationOption) *RevocationRegistry {
	r := &RevocationRegistry{
		revoked:       make(map[string]time.Time),
		sweepInterval: 60 * time.Second,
		nowFunc:       time.Now,
		done:          make(chan struct{}),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Revoke blacklists jti until expiresAt, the token's own expiry
func (r *RevocationRegistry) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = expiresAt
}

// IsRevoked reports whether jti is blacklisted. It never panics: a positive
// hit always reports true, and only when no positive match could be
// established does an internal fault read as "not revoked": an unreadable
// blacklist must not take the whole auth layer down. Entries found past their
// own expiry are still reported as revoked on that lookup, then purged.
func (r *RevocationRegistry) IsRevoked(jti string) (revoked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("revocation lookup fault")
		}
	}()

	if jti == "" {
		return false
	}

	r.mu.RLock()
	expiresAt, ok := r.revoked[jti]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	// Positive membership is decided here; a fault in the expiry bookkeeping
	// below must not downgrade it.
	revoked = true

	if !r.nowFunc().Before(expiresAt) {
		r.purgeIfExpired(jti)
	}
	return revoked
}

// Cleanup removes entries whose tokens have expired naturally, reporting how
// many were purged
func (r *RevocationRegistry) Cleanup() int {
	now := r.nowFunc()

	r.mu.RLock()
	candidates := make([]string, 0)
	for jti, expiresAt := range r.revoked {
		if !now.Before(expiresAt) {
			candidates = append(candidates, jti)
		}
	}
	r.mu.RUnlock()

	purged := 0
	for _, jti := range candidates {
		if r.purgeIfExpired(jti) {
			purged++
		}
	}
	return purged
}

// Len reports the number of blacklisted ids (expired-but-unpurged included)
func (r *RevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}

// StartSweeping launches the periodic purge loop. Call Close to stop it.
func (r *RevocationRegistry) StartSweeping() {
	go r.sweepLoop()
}

// Close stops the sweep loop. Idempotent.
func (r *RevocationRegistry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *RevocationRegistry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if purged := r.Cleanup(); purged > 0 {
				log.Debug().Int("purged", purged).Msg("revocation registry sweep")
			}
		}
	}
}

// purgeIfExpired removes jti only if the entry currently stored is expired
func (r *RevocationRegistry) purgeIfExpired(jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.revoked[jti]
	if !ok || r.nowFunc().Before(expiresAt) {
		return false
	}
	delete(r.revoked, jti)
	return true
}
