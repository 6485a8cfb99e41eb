package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jmoretti/mirrorme/internal/avatar"
	"github.com/jmoretti/mirrorme/internal/config"
	"github.com/jmoretti/mirrorme/internal/media"
	"github.com/jmoretti/mirrorme/internal/observability"
	"github.com/jmoretti/mirrorme/internal/pipeline"
	"github.com/jmoretti/mirrorme/internal/speech"
	"github.com/jmoretti/mirrorme/internal/vault"
)

// Orchestrator is the pipeline surface the server depends on.
type Orchestrator interface {
	ProcessWithReplica(ctx context.Context, req pipeline.Request, onUpdate pipeline.UpdateFunc) pipeline.Result
	ProcessWithoutReplica(ctx context.Context, req pipeline.Request) pipeline.Result
}

// VoiceCloner creates a voice from an uploaded sample.
type VoiceCloner interface {
	CloneVoice(ctx context.Context, sample []byte, voiceName string) (string, error)
}

// ReplicaCreator starts replica training from a face video URL.
type ReplicaCreator interface {
	CreateReplica(ctx context.Context, faceVideoURL, replicaName string) (avatar.Replica, error)
}

type Server struct {
	cfg          config.Config
	orchestrator Orchestrator
	cloner       VoiceCloner
	replicas     ReplicaCreator
	gateway      http.Handler
	vaultStore   vault.Store
	mediaStore   media.Store
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(
	cfg config.Config,
	orchestrator Orchestrator,
	cloner VoiceCloner,
	replicas ReplicaCreator,
	gatewayHandler http.Handler,
	vaultStore vault.Store,
	mediaStore media.Store,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		cloner:       cloner,
		replicas:     replicas,
		gateway:      gatewayHandler,
		vaultStore:   vaultStore,
		mediaStore:   mediaStore,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly
				// opened up; other sites must not drive a user's session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/stats/pipeline", s.handlePipelineStats)

	r.Post("/v1/mirror/reflect", s.handleMirrorReflect)
	r.Post("/v1/soulcast/converse", s.handleSoulcastConverse)
	r.Get("/v1/pipeline/ws", s.handlePipelineWS)

	r.Post("/v1/voice/clone", s.handleVoiceClone)
	r.Post("/v1/replica", s.handleCreateReplica)
	if s.gateway != nil {
		r.Handle("/v1/avatar/proxy", s.gateway)
	}

	r.Get("/v1/vault/sessions", s.handleListVaultSessions)
	r.Post("/v1/vault/sessions", s.handleSaveVaultSession)
	r.Delete("/v1/vault/sessions/{id}", s.handleDeleteVaultSession)

	r.Get("/media/*", s.handleGetMedia)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"video_configured": s.cfg.TavusAPIKey != "",
	})
}

func (s *Server) handlePipelineStats(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil || s.metrics.Stages == nil {
		respondError(w, http.StatusServiceUnavailable, "stats_unavailable", "stage window not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.Stages.Snapshot())
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing_key", "media key required")
		return
	}
	blob, err := s.mediaStore.Get(r.Context(), key)
	if errors.Is(err, media.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "no media at key")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if blob.ContentType != "" {
		w.Header().Set("Content-Type", blob.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

var (
	_ Orchestrator   = (*pipeline.Orchestrator)(nil)
	_ VoiceCloner    = (*speech.Client)(nil)
	_ ReplicaCreator = (*avatar.Client)(nil)
)
