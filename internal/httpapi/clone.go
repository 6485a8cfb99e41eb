package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmoretti/mirrorme/internal/capture"
)

const maxUploadBytes = 64 << 20

// handleVoiceClone accepts a multipart form with a "sample" file, a "name"
// field, and an optional "durationSeconds" reported by the recorder.
func (s *Server) handleVoiceClone(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing_name", "voice name is required")
		return
	}

	file, _, err := r.FormFile("sample")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_sample", "sample file is required")
		return
	}
	defer file.Close()

	sample, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read_sample", err.Error())
		return
	}

	duration := durationField(r.FormValue("durationSeconds"))
	if err := capture.ValidateSample(capture.KindAudio, len(sample), duration); err != nil {
		respondValidation(w, err)
		return
	}

	voiceID, err := s.cloner.CloneVoice(r.Context(), sample, name)
	if err != nil {
		respondError(w, http.StatusBadGateway, "clone_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"voiceId": voiceID})
}

type createReplicaRequest struct {
	FaceVideoURL    string  `json:"faceVideoUrl"`
	ReplicaName     string  `json:"replicaName"`
	SizeBytes       int     `json:"sizeBytes"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// handleCreateReplica starts replica training from an already uploaded face
// video. Size and duration come from the client recorder when available.
func (s *Server) handleCreateReplica(w http.ResponseWriter, r *http.Request) {
	var req createReplicaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.FaceVideoURL) == "" || strings.TrimSpace(req.ReplicaName) == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "faceVideoUrl and replicaName are required")
		return
	}
	if req.SizeBytes > 0 {
		duration := time.Duration(req.DurationSeconds * float64(time.Second))
		if err := capture.ValidateSample(capture.KindVideo, req.SizeBytes, duration); err != nil {
			respondValidation(w, err)
			return
		}
	}

	replica, err := s.replicas.CreateReplica(r.Context(), req.FaceVideoURL, req.ReplicaName)
	if err != nil {
		respondError(w, http.StatusBadGateway, "replica_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, replica)
}

// respondValidation sends every sample issue and its recommendation, not
// just the first, so the client can show the user the full picture.
func respondValidation(w http.ResponseWriter, err error) {
	var vErr *capture.ValidationError
	if !errors.As(err, &vErr) {
		respondError(w, http.StatusBadRequest, "invalid_sample", err.Error())
		return
	}
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":           vErr.Error(),
		"code":            "invalid_sample",
		"issues":          vErr.Issues,
		"recommendations": vErr.Recommendations,
	})
}

func durationField(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	seconds, err := time.ParseDuration(raw + "s")
	if err != nil {
		return 0
	}
	return seconds
}
