package edge

import (
	"net/http"
	"strings"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
)

// Cookie names the edge owns. Browsers never see raw tokens anywhere else.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// SessionCookies builds the cookie pair for a freshly issued token pair.
// Both cookies are HttpOnly; the refresh cookie uses a stricter SameSite
// policy than the access cookie since it is only ever replayed to this edge,
// never on cross-site navigation.
func SessionCookies(pair *authapi.TokenPairResponse, secure bool) []*http.Cookie {
	return []*http.Cookie{
		{
			Name:     AccessCookieName,
			Value:    pair.AccessToken,
			Path:     "/",
			MaxAge:   int(pair.AccessExpiresIn),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
		{
			Name:     RefreshCookieName,
			Value:    pair.RefreshToken,
			Path:     "/",
			MaxAge:   int(pair.RefreshExpiresIn),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
		},
	}
}

// SetSessionCookies writes the session cookie pair onto the response
func SetSessionCookies(w http.ResponseWriter, r *http.Request, pair *authapi.TokenPairResponse) {
	for _, cookie := range SessionCookies(pair, RequestIsSecure(r)) {
		http.SetCookie(w, cookie)
	}
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(w http.ResponseWriter, r *http.Request) {
	ClearAccessCookie(w, r)
	ClearRefreshCookie(w, r)
}

func ClearAccessCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, expiredCookie(AccessCookieName, http.SameSiteLaxMode, RequestIsSecure(r)))
}

func ClearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, expiredCookie(RefreshCookieName, http.SameSiteStrictMode, RequestIsSecure(r)))
}

func expiredCookie(name string, sameSite http.SameSite, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// RequestIsSecure reports whether the client connection is HTTPS, either
// directly or via a terminating proxy. Cloudflare reports the original scheme
// in CF-Visitor rather than X-Forwarded-Proto.
func RequestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	if strings.Contains(r.Header.Get("CF-Visitor"), `"scheme":"https"`) {
		return true
	}
	return false
}
