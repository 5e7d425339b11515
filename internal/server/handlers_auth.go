package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tasktrack/internal/api"
)

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := s.now()
	limiterKey := loginAttemptKey(req.Username, r)
	if !s.loginLimiter.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, makeAPIError(http.StatusTooManyRequests,
			"resource_exhausted", ErrCodeResourceExhausted, fmt.Errorf("too many login attempts; retry later")))
		return
	}

	session, err := s.auth.Login(r.Context(), req.Username, req.Password, now)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			s.loginLimiter.RegisterFailure(limiterKey, now)
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errInvalidCredentials))
			return
		}
		s.writeServiceError(w, r, err, ErrCodeUserNotFound)
		return
	}
	s.loginLimiter.Reset(limiterKey)

	setSessionCookie(w, session, s.cookieSecure(r), now)
	s.writeJSON(w, http.StatusOK, identityResponse(session))
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := callerFrom(r.Context())
	if err := s.auth.Revoke(r.Context(), principal.Token); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	clearSessionCookie(w, s.cookieSecure(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.IdentityResponse{Identity: identityFromContext(r.Context())})
}

// handleChangePassword is reachable while a password change is pending. On
// success every other session of the user ends and a new cookie is issued.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("current_password and new_password are required"), ErrCodeMissingRequired))
		return
	}

	now := s.now()
	identity := identityFromContext(r.Context())
	session, err := s.auth.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword, now)
	if err != nil {
		s.writeServiceError(w, r, err, ErrCodeUserNotFound)
		return
	}

	setSessionCookie(w, session, s.cookieSecure(r), now)
	s.writeJSON(w, http.StatusOK, identityResponse(session))
}

func identityResponse(session *authSession) api.IdentityResponse {
	return api.IdentityResponse{
		Identity:  session.Identity,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
