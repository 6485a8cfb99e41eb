// Package gateway is the avatar provider proxy. It is the only component
// holding the Tavus API key; browser and pipeline clients talk to it with a
// single POST action envelope and never see the upstream credential.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTavusBaseURL = "https://tavusapi.com"

// Action names accepted in the request envelope.
const (
	ActionCreateReplica = "create-replica"
	ActionGenerateVideo = "generate-video"
	ActionVideoStatus   = "video-status"
)

// Request is the single envelope for all three proxy actions. Unused fields
// are left empty by callers.
type Request struct {
	Action       string `json:"action"`
	FaceVideoURL string `json:"faceVideoUrl,omitempty"`
	ReplicaName  string `json:"replicaName,omitempty"`
	ReplicaID    string `json:"replicaId,omitempty"`
	Script       string `json:"script,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	VoiceID      string `json:"voiceId,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
}

// Handler proxies the three avatar provider operations.
type Handler struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHandler(baseURL, apiKey string) *Handler {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultTavusBaseURL
	}
	return &Handler{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode proxy response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{"error": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST.", nil)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	log.Debug().Str("action", req.Action).Msg("avatar proxy request")

	switch req.Action {
	case ActionCreateReplica:
		h.createReplica(r.Context(), w, req)
	case ActionGenerateVideo:
		h.generateVideo(r.Context(), w, req)
	case ActionVideoStatus:
		h.videoStatus(r.Context(), w, req)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown action: %s", req.Action), nil)
	}
}

// trainVideoFilename derives the multipart filename from the fetched
// video's MIME type. The provider rejects uploads with mismatched
// extensions.
func trainVideoFilename(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mp4"):
		return "face_video.mp4"
	case strings.Contains(mimeType, "mov"):
		return "face_video.mov"
	default:
		return "face_video.webm"
	}
}

func (h *Handler) createReplica(ctx context.Context, w http.ResponseWriter, req Request) {
	if req.FaceVideoURL == "" || req.ReplicaName == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: faceVideoUrl and replicaName", nil)
		return
	}

	faceReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.FaceVideoURL, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid faceVideoUrl", err.Error())
		return
	}
	faceRes, err := h.client.Do(faceReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	defer faceRes.Body.Close()

	if faceRes.StatusCode < 200 || faceRes.StatusCode >= 300 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to fetch face video: %d", faceRes.StatusCode), nil)
		return
	}

	mimeType := faceRes.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "video/webm"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("train_video", trainVideoFilename(mimeType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	if _, err := io.Copy(fw, faceRes.Body); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	if err := mw.WriteField("replica_name", req.ReplicaName); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	if err := mw.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v2/replicas", &buf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	upReq.Header.Set("Content-Type", mw.FormDataContentType())
	upReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	upRes, err := h.client.Do(upReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	defer upRes.Body.Close()

	if upRes.StatusCode < 200 || upRes.StatusCode >= 300 {
		details := decodeLoose(upRes.Body)
		writeError(w, upRes.StatusCode, fmt.Sprintf("Tavus replica creation error: %d", upRes.StatusCode), details)
		return
	}

	var result struct {
		ReplicaID string `json:"replica_id"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(upRes.Body).Decode(&result); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create replica", err.Error())
		return
	}
	if result.Status == "" {
		result.Status = "training"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"replica_id": result.ReplicaID,
		"status":     result.Status,
	})
}

func (h *Handler) generateVideo(ctx context.Context, w http.ResponseWriter, req Request) {
	if req.ReplicaID == "" || (req.Script == "" && req.AudioURL == "") {
		writeError(w, http.StatusBadRequest, "Missing required fields: replicaId and either script or audioUrl", nil)
		return
	}

	// audio_url wins over script when both are present.
	body := map[string]string{"replica_id": req.ReplicaID}
	if req.AudioURL != "" {
		body["audio_url"] = req.AudioURL
	} else {
		body["script"] = req.Script
	}
	if req.VoiceID != "" {
		body["voice_id"] = req.VoiceID
	}

	payload, err := json.Marshal(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate video", err.Error())
		return
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v2/videos", bytes.NewReader(payload))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate video", err.Error())
		return
	}
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	upRes, err := h.client.Do(upReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate video", err.Error())
		return
	}
	defer upRes.Body.Close()

	if upRes.StatusCode < 200 || upRes.StatusCode >= 300 {
		details := decodeLoose(upRes.Body)
		writeError(w, upRes.StatusCode, fmt.Sprintf("Tavus video generation error: %d", upRes.StatusCode), details)
		return
	}

	var result struct {
		VideoID string `json:"video_id"`
		ID      string `json:"id"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(upRes.Body).Decode(&result); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate video", err.Error())
		return
	}
	videoID := result.VideoID
	if videoID == "" {
		videoID = result.ID
	}
	status := result.Status
	if status == "" {
		status = "processing"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"video_id": videoID,
		"status":   status,
	})
}

func (h *Handler) videoStatus(ctx context.Context, w http.ResponseWriter, req Request) {
	if req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: videoId", nil)
		return
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/v2/videos/"+req.VideoID, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check video status", err.Error())
		return
	}
	upReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	upRes, err := h.client.Do(upReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check video status", err.Error())
		return
	}
	defer upRes.Body.Close()

	if upRes.StatusCode < 200 || upRes.StatusCode >= 300 {
		details := decodeLoose(upRes.Body)
		writeError(w, upRes.StatusCode, fmt.Sprintf("Tavus API error: %d", upRes.StatusCode), details)
		return
	}

	var result struct {
		Status      string  `json:"status"`
		VideoURL    string  `json:"video_url"`
		DownloadURL string  `json:"download_url"`
		Progress    float64 `json:"progress"`
	}
	if err := json.NewDecoder(upRes.Body).Decode(&result); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check video status", err.Error())
		return
	}

	videoURL := result.VideoURL
	if videoURL == "" {
		videoURL = result.DownloadURL
	}
	downloadURL := result.DownloadURL
	if downloadURL == "" {
		downloadURL = result.VideoURL
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       result.Status,
		"video_url":    videoURL,
		"download_url": downloadURL,
		"progress":     result.Progress,
	})
}

// decodeLoose reads an upstream error body as JSON if possible, raw text
// otherwise.
func decodeLoose(r io.Reader) any {
	body, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil || len(body) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return strings.TrimSpace(string(body))
	}
	return obj
}
