package edge_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
	"github.com/andresl123/food-rescue-live-sub000/edge"
	"github.com/andresl123/food-rescue-live-sub000/internal/config"
)

type recordedRequest struct {
	authorization string
	cookieHeader  string
	refreshHeader string
	path          string
}

func setupEdgeFixture(t *testing.T, freshAccessToken string) (*edge.Server, *recordedRequest, *recordedRequest) {
	t.Helper()

	issuerSeen := &recordedRequest{}
	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issuerSeen.authorization = r.Header.Get("Authorization")
		issuerSeen.cookieHeader = r.Header.Get("Cookie")
		issuerSeen.refreshHeader = r.Header.Get(authapi.RefreshTokenHeader)
		issuerSeen.path = r.URL.Path

		switch r.URL.Path {
		case authapi.LoginPath, authapi.RefreshPath:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(authapi.TokenPairResponse{
				AccessToken:      freshAccessToken,
				AccessExpiresIn:  900,
				RefreshToken:     "issued-refresh",
				RefreshExpiresIn: 1209600,
			})
		case authapi.LogoutPath:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(issuer.Close)

	backendSeen := &recordedRequest{}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendSeen.authorization = r.Header.Get("Authorization")
		backendSeen.cookieHeader = r.Header.Get("Cookie")
		backendSeen.path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(backend.Close)

	t.Setenv("AUTH_SERVICE_URL", issuer.URL)
	t.Setenv("BACKEND_SERVICE_URL", backend.URL)

	srv, err := edge.New(config.New())
	require.NoError(t, err)
	return srv, issuerSeen, backendSeen
}

func TestEdgeLoginTurnsPairIntoCookies(t *testing.T) {
	freshToken := signedTokenExpiring(t, time.Now().Add(15*time.Minute))
	srv, issuerSeen, _ := setupEdgeFixture(t, freshToken)

	req := httptest.NewRequest(http.MethodPost, "http://edge.local"+authapi.LoginPath,
		strings.NewReader(`{"email":"jane.doe@example.com","password":"Sup3rSecret"}`))
	req.AddCookie(&http.Cookie{Name: "tracking", Value: "abc"})
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, authapi.LoginPath, issuerSeen.path)
	// The issuer never sees browser cookies
	require.Empty(t, issuerSeen.cookieHeader)

	cookieValues := map[string]string{}
	for _, cookie := range recorder.Result().Cookies() {
		cookieValues[cookie.Name] = cookie.Value
	}
	require.Equal(t, freshToken, cookieValues[edge.AccessCookieName])
	require.Equal(t, "issued-refresh", cookieValues[edge.RefreshCookieName])

	// The token pair still reaches the caller in the body
	var pair authapi.TokenPairResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &pair))
	require.Equal(t, freshToken, pair.AccessToken)
}

func TestEdgeLogoutLiftsCookiesIntoHeaders(t *testing.T) {
	freshToken := signedTokenExpiring(t, time.Now().Add(15*time.Minute))
	srv, issuerSeen, _ := setupEdgeFixture(t, freshToken)

	req := httptest.NewRequest(http.MethodPost, "http://edge.local"+authapi.LogoutPath, nil)
	req.AddCookie(&http.Cookie{Name: edge.AccessCookieName, Value: "the-access-token"})
	req.AddCookie(&http.Cookie{Name: edge.RefreshCookieName, Value: "the-refresh-token"})
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, "Bearer the-access-token", issuerSeen.authorization)
	require.Equal(t, "the-refresh-token", issuerSeen.refreshHeader)
	require.Empty(t, issuerSeen.cookieHeader)

	// Both session cookies are expired on the way out
	cleared := map[string]bool{}
	for _, cookie := range recorder.Result().Cookies() {
		require.Equal(t, -1, cookie.MaxAge)
		cleared[cookie.Name] = true
	}
	require.True(t, cleared[edge.AccessCookieName])
	require.True(t, cleared[edge.RefreshCookieName])
}

func TestEdgePromotesAccessCookieForBackend(t *testing.T) {
	freshToken := signedTokenExpiring(t, time.Now().Add(15*time.Minute))
	srv, _, backendSeen := setupEdgeFixture(t, freshToken)

	req := httptest.NewRequest(http.MethodGet, "http://edge.local/api/donations", nil)
	req.AddCookie(&http.Cookie{Name: edge.AccessCookieName, Value: freshToken})
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "/api/donations", backendSeen.path)
	require.Equal(t, "Bearer "+freshToken, backendSeen.authorization)
	require.Empty(t, backendSeen.cookieHeader)
}

func TestEdgeRejectsBackendRequestWithoutSession(t *testing.T) {
	freshToken := signedTokenExpiring(t, time.Now().Add(15*time.Minute))
	srv, _, backendSeen := setupEdgeFixture(t, freshToken)

	req := httptest.NewRequest(http.MethodGet, "http://edge.local/api/donations", nil)
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Empty(t, backendSeen.path)
}

func TestEdgeRenewsSessionBeforeProxying(t *testing.T) {
	freshToken := signedTokenExpiring(t, time.Now().Add(15*time.Minute))
	srv, issuerSeen, backendSeen := setupEdgeFixture(t, freshToken)

	nearExpiry := signedTokenExpiring(t, time.Now().Add(time.Minute))
	req := httptest.NewRequest(http.MethodGet, "http://edge.local/api/donations", nil)
	req.AddCookie(&http.Cookie{Name: edge.AccessCookieName, Value: nearExpiry})
	req.AddCookie(&http.Cookie{Name: edge.RefreshCookieName, Value: "current-refresh"})
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, authapi.RefreshPath, issuerSeen.path)
	require.Equal(t, "Bearer current-refresh", issuerSeen.authorization)

	// The backend call carries the renewed token, not the near-expiry one
	require.Equal(t, "Bearer "+freshToken, backendSeen.authorization)

	cookieValues := map[string]string{}
	for _, cookie := range recorder.Result().Cookies() {
		cookieValues[cookie.Name] = cookie.Value
	}
	require.Equal(t, freshToken, cookieValues[edge.AccessCookieName])
	require.Equal(t, "issued-refresh", cookieValues[edge.RefreshCookieName])
}
