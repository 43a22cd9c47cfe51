package server

import (
	"net/http"

	"github.com/bobmcallan/stockdesk/internal/services/session"
)

type sessionCreatedResponse struct {
	ID      string           `json:"id"`
	Session session.Snapshot `json:"session"`
}

type selectRequest struct {
	Symbol string `json:"symbol"`
}

// handleSessionCreate handles POST /api/sessions.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	id, cache := s.app.Sessions.Create()
	WriteJSON(w, http.StatusCreated, sessionCreatedResponse{ID: id, Session: cache.Snapshot()})
}

// handleSession handles GET and DELETE /api/sessions/{id}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		cache, err := s.app.Sessions.Get(id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, cache.Snapshot())

	case http.MethodDelete:
		cache, err := s.app.Sessions.Get(id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		cache.Clear()
		if err := s.app.Sessions.Close(id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "closed": true})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleSessionSelect handles POST /api/sessions/{id}/select.
func (s *Server) handleSessionSelect(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	cache, err := s.app.Sessions.Get(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req selectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	snap, err := cache.Select(r.Context(), req.Symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}

// handleSessionClear handles POST /api/sessions/{id}/clear.
func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	cache, err := s.app.Sessions.Get(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	cache.Clear()
	WriteJSON(w, http.StatusOK, cache.Snapshot())
}

// handleSessionStream handles GET /api/sessions/{id}/ws, a websocket that
// pushes every snapshot change of the session.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cache, err := s.app.Sessions.Get(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.serveSessionStream(w, r, id, cache)
}
