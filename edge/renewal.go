package edge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
)

// TokenRefresher exchanges a refresh token for a rotated pair
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*authapi.TokenPairResponse, error)
}

// RenewalFilter renews the session cookie pair before the access token
// expires, so a browser session stays alive as long as the refresh token
// does. It runs ahead of the backend proxy on every non-auth request.
type RenewalFilter struct {
	refresher   TokenRefresher
	threshold   time.Duration
	callTimeout time.Duration
	nowFunc     func() time.Time
}

type RenewalOption func(*RenewalFilter)

func WithRenewalNowFunc(nowFunc func() time.Time) RenewalOption {
	return func(f *RenewalFilter) {
		f.nowFunc = nowFunc
	}
}

func NewRenewalFilter(refresher TokenRefresher, threshold, callTimeout time.Duration, opts ...RenewalOption) *RenewalFilter {
	f := &RenewalFilter{
		refresher:   refresher,
		threshold:   threshold,
		callTimeout: callTimeout,
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Wrap applies the renewal decision ahead of next. Auth routes and preflight
// requests pass through untouched: the issuer manages its own sessions, and
// preflights never carry cookies.
func (f *RenewalFilter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || strings.HasPrefix(r.URL.Path, "/auth/") || r.URL.Path == authapi.JWKSPath {
			next(w, r)
			return
		}

		accessCookie, accessErr := r.Cookie(AccessCookieName)
		refreshCookie, refreshErr := r.Cookie(RefreshCookieName)

		if accessErr != nil {
			// A refresh cookie without an access cookie is a half-open session;
			// retire it rather than guessing.
			if refreshErr == nil {
				ClearRefreshCookie(w, r)
			}
			writeUnauthorized(w, r, "unauthenticated")
			return
		}

		expiresAt, ok := tokenExpiry(accessCookie.Value)
		if !ok {
			ClearSessionCookies(w, r)
			writeUnauthorized(w, r, "invalid_token")
			return
		}

		remaining := expiresAt.Sub(f.nowFunc())
		if remaining > f.threshold {
			next(w, r)
			return
		}

		if refreshErr != nil {
			writeUnauthorized(w, r, "session_expiring")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), f.callTimeout)
		defer cancel()

		pair, err := f.refresher.Refresh(ctx, refreshCookie.Value)
		if err != nil {
			log.Debug().Err(err).Msg("session renewal rejected")
			ClearSessionCookies(w, r)
			writeUnauthorized(w, r, "session_expired")
			return
		}

		SetSessionCookies(w, r, pair)
		replaceRequestCookies(r, pair)
		next(w, r)
	}
}

// tokenExpiry reads the exp claim without verifying the signature. The edge
// only decides timing here; the backend still verifies every token it gets.
func tokenExpiry(signedToken string) (time.Time, bool) {
	unverified, _, err := jwt.NewParser().ParseUnverified(signedToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	expiresAt, err := unverified.Claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, false
	}
	return expiresAt.Time, true
}

// replaceRequestCookies swaps the session cookie values on the inbound
// request so the proxied call downstream carries the renewed tokens
func replaceRequestCookies(r *http.Request, pair *authapi.TokenPairResponse) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, cookie := range cookies {
		switch cookie.Name {
		case AccessCookieName:
			cookie.Value = pair.AccessToken
		case RefreshCookieName:
			cookie.Value = pair.RefreshToken
		}
		r.AddCookie(cookie)
	}
}

// writeUnauthorized emits the filter's own 401. If no CORS middleware ran
// ahead of us, echo the Origin so a browser client can read the status
// instead of reporting an opaque CORS failure.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, code string) {
	if origin := r.Header.Get("Origin"); origin != "" && w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(authapi.ErrorResponse{Error: code}); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
