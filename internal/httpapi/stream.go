package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jmoretti/mirrorme/internal/avatar"
	"github.com/jmoretti/mirrorme/internal/pipeline"
	"github.com/jmoretti/mirrorme/internal/reply"
)

// streamRequest is one run submitted over the websocket.
type streamRequest struct {
	Type         string `json:"type"`
	Mode         string `json:"mode"`
	Input        string `json:"input"`
	VoiceID      string `json:"voiceId"`
	ReplicaID    string `json:"replicaId"`
	UserID       string `json:"userId"`
	SoulName     string `json:"soulName"`
	Traits       string `json:"traits"`
	Relationship string `json:"relationship"`
}

type streamProgress struct {
	Type     string  `json:"type"`
	Attempt  int     `json:"attempt"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress,omitempty"`
}

type streamResult struct {
	Type   string          `json:"type"`
	Result pipeline.Result `json:"result"`
}

type streamError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handlePipelineWS runs pipelines over a websocket so the client sees video
// progress as it happens instead of waiting out the whole poll budget.
func (s *Server) handlePipelineWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ActiveStreams.Inc()
		defer s.metrics.ActiveStreams.Dec()
	}

	outbound := make(chan any, 256)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()
	defer func() {
		close(outbound)
		<-writerDone
	}()

	conn.SetReadLimit(1 << 20)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req streamRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Type != "run" {
			outbound <- streamError{Type: "error", Error: "expected a run message"}
			continue
		}
		if strings.TrimSpace(req.Input) == "" {
			outbound <- streamError{Type: "error", Error: "input text is required"}
			continue
		}

		pipelineReq := pipeline.Request{
			Input:     req.Input,
			VoiceID:   req.VoiceID,
			ReplicaID: req.ReplicaID,
			UserID:    req.UserID,
		}
		if strings.TrimSpace(pipelineReq.VoiceID) == "" {
			pipelineReq.VoiceID = s.cfg.DefaultVoiceID
		}
		if strings.TrimSpace(pipelineReq.ReplicaID) == "" {
			pipelineReq.ReplicaID = s.cfg.DefaultReplicaID
		}
		if req.Mode == "soulcast" {
			name := req.SoulName
			if strings.TrimSpace(name) == "" {
				name = "Loved One"
			}
			pipelineReq.Persona = &reply.Persona{
				Name:         name,
				Traits:       req.Traits,
				Relationship: req.Relationship,
			}
		}

		log.Debug().Str("mode", req.Mode).Msg("pipeline run over websocket")

		result := s.orchestrator.ProcessWithReplica(r.Context(), pipelineReq, func(attempt int, status avatar.VideoStatus) {
			select {
			case outbound <- streamProgress{
				Type:     "video_progress",
				Attempt:  attempt,
				Status:   status.Status,
				Progress: status.Progress,
			}:
			default:
				// Writes stay single-threaded; drop progress if saturated.
			}
		})
		outbound <- streamResult{Type: "result", Result: result}
	}
}
