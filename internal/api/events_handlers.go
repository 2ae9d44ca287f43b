package api

import (
	"errors"
	"net/http"

	"github.com/pointsbot/pointsbot-server/internal/http/response"
)

// registerEventStream mounts the live audit stream. It streams rather than
// returning one body, so it lives on the router instead of in huma.
func (s *Server) registerEventStream() {
	if s.events == nil {
		return
	}
	s.router.Get("/api/v1/admin/events", s.handleEventStream)
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if _, err := s.RequireAdmin(r.Context(), r.Header.Get("X-Actor-ID")); err != nil {
		s.writeError(w, err)
		return
	}
	s.events.ServeHTTP(w, r)
}

// writeError renders an error from the huma-side helpers on a plain handler.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		response.Error(w, apiErr.GetStatus(), apiErr.Code, apiErr.Message, s.logger)
		return
	}
	response.HandleError(w, err, s.logger)
}
