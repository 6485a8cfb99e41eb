package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jmoretti/mirrorme/internal/vault"
)

// userIDParam identifies the caller. There is no auth layer; the header (or
// query fallback) keys per-user data and nothing more.
func userIDParam(r *http.Request) string {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("userId"))
	}
	if userID == "" {
		return "anonymous"
	}
	return userID
}

func (s *Server) handleListVaultSessions(w http.ResponseWriter, r *http.Request) {
	filter := vault.Filter{Type: strings.TrimSpace(r.URL.Query().Get("type"))}
	if filter.Type != "" && filter.Type != vault.TypeMirror && filter.Type != vault.TypeSoulcast {
		respondError(w, http.StatusBadRequest, "invalid_type", "type must be mirror or soulcast")
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	sessions, err := s.vaultStore.List(r.Context(), userIDParam(r), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if sessions == nil {
		sessions = []vault.Session{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSaveVaultSession(w http.ResponseWriter, r *http.Request) {
	var session vault.Session
	if err := decodeJSON(r, &session); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if session.Type != vault.TypeMirror && session.Type != vault.TypeSoulcast {
		respondError(w, http.StatusBadRequest, "invalid_type", "type must be mirror or soulcast")
		return
	}
	if strings.TrimSpace(session.UserID) == "" {
		session.UserID = userIDParam(r)
	}

	saved, err := s.vaultStore.Save(r.Context(), session)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteVaultSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "session id required")
		return
	}

	err := s.vaultStore.Delete(r.Context(), userIDParam(r), id)
	if errors.Is(err, vault.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "no session with that id")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
