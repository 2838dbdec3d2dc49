package edge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
	"github.com/andresl123/food-rescue-live-sub000/internal/config"
)

// sessionRoutes are the issuer endpoints whose 2xx responses carry a token
// pair that must become cookies
var sessionRoutes = map[string]struct{}{
	authapi.LoginPath:           {},
	authapi.RegisterPath:        {},
	authapi.GooglePath:          {},
	authapi.CompleteProfilePath: {},
	authapi.RefreshPath:         {},
}

// Server is the browser-facing edge. It proxies auth routes to the issuer
// and everything else to the resource backend, translating between the
// cookie session the browser holds and the bearer tokens the services speak.
type Server struct {
	env          string
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	renewal      *RenewalFilter
	authProxy    *httputil.ReverseProxy
	backendProxy *httputil.ReverseProxy
}

func New(cfg config.Config) (*Server, error) {
	authURL, err := url.Parse(cfg.GetAuthServiceURL())
	if err != nil {
		return nil, fmt.Errorf("[Edge New] invalid auth service URL: %w", err)
	}
	backendURL, err := url.Parse(cfg.GetBackendServiceURL())
	if err != nil {
		return nil, fmt.Errorf("[Edge New] invalid backend service URL: %w", err)
	}

	authClient := NewAuthClient(cfg.GetAuthServiceURL())

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		renewal: NewRenewalFilter(authClient, cfg.GetRenewalThreshold(), cfg.GetRefreshCallTimeout()),
	}
	s.authProxy = s.newAuthProxy(authURL)
	s.backendProxy = s.newBackendProxy(backendURL)

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("/auth/", ChainMiddleware(s.authProxy.ServeHTTP, s.CorsMiddleware))
	s.RegisterRouteFunc(authapi.JWKSPath, ChainMiddleware(s.authProxy.ServeHTTP, s.CorsMiddleware))
	s.RegisterRouteFunc("/", ChainMiddleware(s.backendProxy.ServeHTTP, s.CorsMiddleware, s.renewal.Wrap))
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		log.Info().Str("path", route).Msg("edge route registered")
	}
}

// newAuthProxy forwards auth traffic to the issuer. Cookies never cross this
// boundary: the tokens they hold are lifted into headers on the way in, and
// issued pairs become cookies on the way out.
func (s *Server) newAuthProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)

	defaultDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		secure := RequestIsSecure(req)
		defaultDirector(req)
		if secure {
			req.Header.Set("X-Forwarded-Proto", "https")
		}

		if req.URL.Path == authapi.LogoutPath {
			if accessCookie, err := req.Cookie(AccessCookieName); err == nil {
				req.Header.Set("Authorization", "Bearer "+accessCookie.Value)
			}
			if refreshCookie, err := req.Cookie(RefreshCookieName); err == nil {
				req.Header.Set(authapi.RefreshTokenHeader, refreshCookie.Value)
			}
		}
		req.Header.Del("Cookie")
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		path := resp.Request.URL.Path
		secure := strings.EqualFold(resp.Request.Header.Get("X-Forwarded-Proto"), "https")

		if path == authapi.LogoutPath {
			for _, cookie := range []*http.Cookie{
				expiredCookie(AccessCookieName, http.SameSiteLaxMode, secure),
				expiredCookie(RefreshCookieName, http.SameSiteStrictMode, secure),
			} {
				resp.Header.Add("Set-Cookie", cookie.String())
			}
			return nil
		}

		if _, ok := sessionRoutes[path]; !ok || resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("[Edge authProxy] failed to read issuer response: %w", err)
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))

		var pair authapi.TokenPairResponse
		if err := json.Unmarshal(body, &pair); err != nil || pair.AccessToken == "" {
			// Not the shape we expected; pass the response through untouched
			return nil
		}

		for _, cookie := range SessionCookies(&pair, secure) {
			resp.Header.Add("Set-Cookie", cookie.String())
		}
		return nil
	}

	return proxy
}

// newBackendProxy forwards resource traffic with the access cookie promoted
// to an Authorization header. The backend never sees browser cookies.
func (s *Server) newBackendProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)

	defaultDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		defaultDirector(req)
		if accessCookie, err := req.Cookie(AccessCookieName); err == nil {
			req.Header.Set("Authorization", "Bearer "+accessCookie.Value)
		}
		req.Header.Del("Cookie")
	}

	return proxy
}
