package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// requireSession resolves the session cookie into a principal. Sessions
// close to expiry are extended and the cookie is reissued.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFromRequest(r)
		if token == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("sign in required")))
			return
		}

		session, err := s.auth.Authenticate(r.Context(), token, s.now())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if session == nil {
			clearSessionCookie(w, s.cookieSecure(r))
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("session expired")))
			return
		}
		if session.Renewed {
			setSessionCookie(w, session, s.cookieSecure(r), s.now())
		}
		if rec, ok := w.(*statusRecorder); ok {
			rec.user = session.Identity.Username
		}

		ctx := withCaller(r.Context(), caller{Identity: session.Identity, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePasswordCurrent holds back users flagged to change their password.
func (s *Server) requirePasswordCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFromContext(r.Context()).MustChangePassword {
			s.writeErrorReq(w, r, http.StatusForbidden, makeAPIError(http.StatusForbidden,
				"password_change_required", ErrCodePasswordChangeRequired,
				fmt.Errorf("password change required")))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFromContext(r.Context()).IsAdmin {
			s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("admin role required"), ErrCodeForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (s *Server) cookieSecure(r *http.Request) bool {
	return s.secureCookie || requestScheme(r) == "https"
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return "http"
}

func setSessionCookie(w http.ResponseWriter, session *authSession, secure bool, now time.Time) {
	maxAge := int(session.ExpiresAt.Sub(now) / time.Second)
	if maxAge <= 0 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Expires:  session.ExpiresAt,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
