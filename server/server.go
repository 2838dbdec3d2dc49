package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
	"github.com/andresl123/food-rescue-live-sub000/internal/config"
	"github.com/andresl123/food-rescue-live-sub000/token"
	"github.com/andresl123/food-rescue-live-sub000/token/keys"
	"github.com/andresl123/food-rescue-live-sub000/token/refresh"
	"github.com/andresl123/food-rescue-live-sub000/users"
)

// Dependencies holds everything the issuer's HTTP surface needs
type Dependencies struct {
	Principals      users.PrincipalRepo
	KeyMaterial     *keys.Material
	Issuer          *token.Issuer
	Verifier        *token.Verifier
	RefreshRegistry *refresh.Registry
	Revocations     *token.RevocationRegistry
	Google          ExternalIdentityVerifier // nil disables the external-identity exchange
}

// Server is the issuer service: login, registration, external-identity
// exchange, profile completion, refresh rotation, logout and key publication.
type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config
	deps   Dependencies
}

func New(cfg config.Config, deps Dependencies) (*Server, error) {
	if deps.Principals == nil {
		return nil, fmt.Errorf("[Server New] Principals repo is required")
	}
	if deps.KeyMaterial == nil {
		return nil, fmt.Errorf("[Server New] KeyMaterial is required")
	}
	if deps.Issuer == nil {
		return nil, fmt.Errorf("[Server New] Issuer is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("[Server New] Verifier is required")
	}
	if deps.RefreshRegistry == nil {
		return nil, fmt.Errorf("[Server New] RefreshRegistry is required")
	}
	if deps.Revocations == nil {
		return nil, fmt.Errorf("[Server New] Revocations registry is required")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		deps:   deps,
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	s.RegisterRouteFunc("POST "+authapi.LoginPath, ChainMiddleware(s.LoginHandler, api...))
	s.RegisterRouteFunc("POST "+authapi.RegisterPath, ChainMiddleware(s.RegisterHandler, api...))
	s.RegisterRouteFunc("POST "+authapi.GooglePath, ChainMiddleware(s.GoogleExchangeHandler, api...))
	s.RegisterRouteFunc("POST "+authapi.CompleteProfilePath, ChainMiddleware(s.CompleteProfileHandler, api...))
	s.RegisterRouteFunc("POST "+authapi.RefreshPath, ChainMiddleware(s.RefreshHandler, api...))
	s.RegisterRouteFunc("POST "+authapi.LogoutPath, ChainMiddleware(s.LogoutHandler, api...))
	s.RegisterRouteFunc("GET "+authapi.JWKSPath, ChainMiddleware(s.JWKSHandler, api...))
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
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Info().Str("path", parts[0]).Msg("route registered")
		}
	}
}
