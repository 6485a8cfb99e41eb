package httpapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jmoretti/mirrorme/internal/pipeline"
	"github.com/jmoretti/mirrorme/internal/reply"
	"github.com/jmoretti/mirrorme/internal/vault"
)

type reflectRequest struct {
	Input     string `json:"input"`
	VoiceID   string `json:"voiceId"`
	ReplicaID string `json:"replicaId"`
	UserID    string `json:"userId"`
	Save      bool   `json:"save"`

	// soulcast only
	SoulName     string `json:"soulName"`
	Traits       string `json:"traits"`
	Relationship string `json:"relationship"`
}

func (s *Server) resolveDefaults(req *reflectRequest) {
	if strings.TrimSpace(req.VoiceID) == "" {
		req.VoiceID = s.cfg.DefaultVoiceID
	}
	if strings.TrimSpace(req.ReplicaID) == "" {
		req.ReplicaID = s.cfg.DefaultReplicaID
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
}

func (s *Server) handleMirrorReflect(w http.ResponseWriter, r *http.Request) {
	var req reflectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		respondError(w, http.StatusBadRequest, "missing_input", "input text is required")
		return
	}
	s.resolveDefaults(&req)

	result := s.orchestrator.ProcessWithReplica(r.Context(), pipeline.Request{
		Input:     req.Input,
		VoiceID:   req.VoiceID,
		ReplicaID: req.ReplicaID,
		UserID:    req.UserID,
	}, nil)

	if req.Save {
		s.saveToVault(r, req, result, vault.TypeMirror)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSoulcastConverse(w http.ResponseWriter, r *http.Request) {
	var req reflectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		respondError(w, http.StatusBadRequest, "missing_input", "input text is required")
		return
	}
	if strings.TrimSpace(req.SoulName) == "" {
		req.SoulName = "Loved One"
	}
	s.resolveDefaults(&req)

	persona := &reply.Persona{
		Name:         req.SoulName,
		Traits:       req.Traits,
		Relationship: req.Relationship,
	}

	result := s.orchestrator.ProcessWithReplica(r.Context(), pipeline.Request{
		Input:     req.Input,
		VoiceID:   req.VoiceID,
		ReplicaID: req.ReplicaID,
		Persona:   persona,
		UserID:    req.UserID,
	}, nil)

	if req.Save {
		s.saveToVault(r, req, result, vault.TypeSoulcast)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) saveToVault(r *http.Request, req reflectRequest, result pipeline.Result, sessionType string) {
	session := vault.Session{
		UserID:   req.UserID,
		Type:     sessionType,
		Input:    req.Input,
		Response: result.AIReply,
		Emotion:  result.DetectedTone,
		AudioKey: result.AudioKey,
		VideoURL: result.VideoURL,
	}
	if sessionType == vault.TypeSoulcast {
		session.SoulName = req.SoulName
		session.Relationship = (&reply.Persona{
			Name:         req.SoulName,
			Traits:       req.Traits,
			Relationship: req.Relationship,
		}).RelationshipOrDefault()
	}
	if _, err := s.vaultStore.Save(r.Context(), session); err != nil {
		// A vault failure must not cost the user their reply.
		log.Warn().Err(err).Msg("vault save failed")
	}
}
