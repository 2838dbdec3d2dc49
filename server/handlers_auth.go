package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresl123/food-rescue-live-sub000/authapi"
	"github.com/andresl123/food-rescue-live-sub000/internal/errors"
	"github.com/andresl123/food-rescue-live-sub000/token"
	"github.com/andresl123/food-rescue-live-sub000/users"
)

// LoginHandler authenticates email+password and responds with a token pair.
// The refresh token is registered before the response is written, so a client
// can refresh immediately.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req authapi.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	principal, err := s.deps.Principals.GetByEmail(normaliseEmail(req.Email))
	if err != nil || !users.CheckPasswordHash(req.Password, principal.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
		return
	}
	if principal.Disabled() {
		// Indistinguishable from a wrong password on purpose
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
		return
	}

	principal.LastLogin = time.Now()
	if err := s.deps.Principals.Upsert(principal); err != nil {
		log.Error().Err(err).Msg("failed to record last login")
	}

	pair, err := s.issuePair(principal)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// RegisterHandler creates an ACTIVE principal and logs it in
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req authapi.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	email := normaliseEmail(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}
	role, ok := registrableRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}

	if _, err := s.deps.Principals.GetByEmail(email); err == nil {
		writeError(w, http.StatusConflict, "already_registered", "")
		return
	}

	passwordHash, err := users.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	principal := &users.Principal{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Roles:        []users.RoleType{role},
		Status:       users.StatusActive,
		DateJoined:   time.Now(),
	}
	if err := s.deps.Principals.Upsert(principal); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	pair, err := s.issuePair(principal)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusCreated, pair)
}

// GoogleExchangeHandler verifies an externally issued ID token and exchanges
// it for a local session. First-seen subjects get an INCOMPLETE principal
// that must complete its profile before carrying any role.
func (s *Server) GoogleExchangeHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Google == nil {
		writeError(w, http.StatusNotImplemented, "unsupported", "external identity exchange is not configured")
		return
	}

	var req authapi.GoogleExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "idToken is required")
		return
	}

	identity, err := s.deps.Google.Verify(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}

	principal, err := s.deps.Principals.GetByExternalID(identity.Subject)
	if err != nil {
		principal = &users.Principal{
			Email:      normaliseEmail(identity.Email),
			FirstName:  identity.FirstName,
			LastName:   identity.LastName,
			Status:     users.StatusIncomplete,
			ExternalID: identity.Subject,
			DateJoined: time.Now(),
		}
		if err := s.deps.Principals.Upsert(principal); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}
	}
	if principal.Disabled() {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
		return
	}

	pair, err := s.issuePair(principal)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// CompleteProfileHandler transitions an INCOMPLETE principal to ACTIVE with
// its chosen role and reissues the pair so the new claims take effect
func (s *Server) CompleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	rawToken, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	verification, err := s.deps.Verifier.Verify(rawToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, rejectCode(err), "")
		return
	}

	principal, err := s.deps.Principals.GetByID(verification.Subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}
	if principal.Status != users.StatusIncomplete {
		writeError(w, http.StatusConflict, "profile_already_complete", "")
		return
	}

	var req authapi.CompleteProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	role, ok := registrableRole(req.Role)
	if !ok || req.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "a role is required")
		return
	}

	principal.Roles = []users.RoleType{role}
	principal.Status = users.StatusActive
	if req.FirstName != "" {
		principal.FirstName = req.FirstName
	}
	if req.LastName != "" {
		principal.LastName = req.LastName
	}
	if err := s.deps.Principals.Upsert(principal); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	pair, err := s.issuePair(principal)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// RefreshHandler rotates a presented refresh token and responds with a fresh
// pair. The refresh token arrives as a bearer credential; every failure maps
// to a 401, never a 5xx.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	rawToken, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	verification, err := s.deps.Verifier.VerifyRefresh(rawToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, rejectCode(err), "")
		return
	}

	principal, err := s.deps.Principals.GetByID(verification.Subject)
	if err != nil || principal.Disabled() {
		// The subject can no longer authenticate; retire the refresh id too.
		s.deps.RefreshRegistry.Revoke(verification.TokenID)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
		return
	}

	newRefresh, err := s.deps.Issuer.RotateRefresh(principal, verification.TokenID)
	if err != nil {
		log.Error().Err(err).Msg("refresh rotation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	access, err := s.deps.Issuer.IssueAccessToken(principal)
	if err != nil {
		log.Error().Err(err).Msg("token issuance failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, &authapi.TokenPairResponse{
		AccessToken:      access.SignedToken,
		AccessExpiresIn:  int64(s.deps.Issuer.AccessTokenTTL().Seconds()),
		RefreshToken:     newRefresh.SignedToken,
		RefreshExpiresIn: int64(s.deps.Issuer.RefreshTokenTTL().Seconds()),
	})
}

// LogoutHandler revokes the presented access token id and retires the refresh
// id carried in the refresh header. Always responds 204: logging out with a
// dead session is not an error.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if rawToken, ok := bearerToken(r); ok {
		if verification, err := s.deps.Verifier.Verify(rawToken); err == nil {
			s.deps.Revocations.Revoke(verification.TokenID, verification.ExpiresAt)
		}
	}

	if refreshToken := r.Header.Get(authapi.RefreshTokenHeader); refreshToken != "" {
		if rti, ok := token.ExtractTokenID(refreshToken); ok {
			s.deps.RefreshRegistry.Revoke(rti)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// JWKSHandler serves the public key set for downstream verifiers, without
// authentication
func (s *Server) JWKSHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.KeyMaterial.PublicKeySet())
}

func (s *Server) issuePair(principal *users.Principal) (*authapi.TokenPairResponse, error) {
	access, err := s.deps.Issuer.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.deps.Issuer.IssueRefreshToken(principal)
	if err != nil {
		return nil, err
	}
	s.deps.Issuer.RegisterRefresh(refreshToken.SignedToken)

	return &authapi.TokenPairResponse{
		AccessToken:      access.SignedToken,
		AccessExpiresIn:  int64(s.deps.Issuer.AccessTokenTTL().Seconds()),
		RefreshToken:     refreshToken.SignedToken,
		RefreshExpiresIn: int64(s.deps.Issuer.RefreshTokenTTL().Seconds()),
	}, nil
}

// rejectCode maps a verification failure to the error code clients see
func rejectCode(err error) string {
	switch {
	case errors.Is(err, errors.ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, errors.ErrRefreshRejected):
		return "refresh_rejected"
	case errors.Is(err, errors.ErrValidationInternal):
		return "validation_error"
	default:
		return "invalid_token"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func registrableRole(role string) (users.RoleType, bool) {
	switch users.RoleType(strings.ToUpper(strings.TrimSpace(role))) {
	case users.RoleDonor:
		return users.RoleDonor, true
	case users.RoleCourier:
		return users.RoleCourier, true
	case users.RoleReceiver, users.RoleType(""):
		return users.RoleReceiver, true
	default:
		return "", false
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, authapi.ErrorResponse{Error: code, Description: description})
}
