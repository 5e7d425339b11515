package server

import (
	"fmt"
	"net/http"

	"tasktrack/internal/api"
)

// handleHealth reports "ok" when the database answers a trivial query.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := s.store.DB().QueryRowContext(r.Context(), "SELECT 1").Scan(&one); err != nil {
		s.log().Warn("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("no route for %s", r.URL.Path), ErrCodeRouteNotFound))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	err := fmt.Errorf("method %s not allowed", r.Method)
	s.writeErrorReq(w, r, http.StatusMethodNotAllowed, makeAPIError(http.StatusMethodNotAllowed, "method_not_allowed", ErrCodeInvalidArgument, err))
}
