package refresh

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry tracks which refresh token ids are currently honoured, mapping
// rti -> expiry. Membership is the sole source of truth for refresh
// usability: a correctly signed, unexpired refresh token whose id is absent
// here must be rejected. That is what makes rotation and revocation
// effective for self-contained tokens.
//
// Entries live in process memory only; durability across restarts is not
// guaranteed.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	sweepInterval time.Duration
	nowFunc       func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Registry)

// WithSweepInterval overrides the periodic eviction interval (default 60s)
func WithSweepInterval(interval time.Duration) Option {
	return func(r *Registry) {
		r.sweepInterval = interval
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(r *Registry) {
		r.nowFunc = nowFunc
	}
}

func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		entries:       make(map[string]time.Time),
		sweepInterval: 60 * time.Second,
		nowFunc:       time.Now,
		done:          make(chan struct{}),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Register makes rti usable for refresh until expiresAt
func (r *Registry) Register(rti string, expiresAt time.Time) {
	if rti == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[rti] = expiresAt
}

// IsValid reports whether rti is registered with an expiry in the future.
// Entries found expired at lookup time are removed.
func (r *Registry) IsValid(rti string) bool {
	if rti == "" {
		return false
	}

	r.mu.RLock()
	expiresAt, ok := r.entries[rti]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	if r.nowFunc().Before(expiresAt) {
		return true
	}

	r.evictIfExpired(rti)
	return false
}

// Revoke removes rti unconditionally. Idempotent.
func (r *Registry) Revoke(rti string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, rti)
}

// Len reports the number of live entries (expired-but-unswept included)
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// StartSweeping launches the periodic eviction loop and returns immediately.
// Call Close to stop it.
func (r *Registry) StartSweeping() {
	go r.sweepLoop()
}

// Close stops the sweep loop. Idempotent.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if evicted := r.Sweep(); evicted > 0 {
				log.Debug().Int("evicted", evicted).Msg("refresh registry sweep")
			}
		}
	}
}

// Sweep removes all expired entries and reports how many were evicted, keeping
// memory bounded independent of lookup traffic. Candidates are gathered under
// a read lock so request-path operations are not blocked, and each expiry is
// re-read during eviction so an id concurrently re-registered with a fresh
// expiry survives the sweep.
func (r *Registry) Sweep() int {
	now := r.nowFunc()

	r.mu.RLock()
	candidates := make([]string, 0)
	for rti, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			candidates = append(candidates, rti)
		}
	}
	r.mu.RUnlock()

	evicted := 0
	for _, rti := range candidates {
		if r.evictIfExpired(rti) {
			evicted++
		}
	}
	return evicted
}

// evictIfExpired removes rti only if the entry currently stored is expired
func (r *Registry) evictIfExpired(rti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.entries[rti]
	if !ok || r.nowFunc().Before(expiresAt) {
		return false
	}
	delete(r.entries, rti)
	return true
}
