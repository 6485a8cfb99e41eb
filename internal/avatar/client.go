// Package avatar is the pipeline-side client for the avatar gateway. It
// never holds the provider credential; the gateway does.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Terminal and transient video states reported by the provider.
const (
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusProcessing = "processing"
)

// Replica is the result of starting replica training.
type Replica struct {
	ReplicaID string `json:"replica_id"`
	Status    string `json:"status"`
}

// Video is the result of starting a video generation job.
type Video struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

// VideoStatus is one poll observation of a generation job.
type VideoStatus struct {
	Status      string  `json:"status"`
	VideoURL    string  `json:"video_url"`
	DownloadURL string  `json:"download_url"`
	Progress    float64 `json:"progress"`
}

// VideoRequest starts a generation job. AudioURL takes precedence over
// Script when both are set; VoiceID is forwarded only for custom voices.
type VideoRequest struct {
	ReplicaID string
	Script    string
	AudioURL  string
	VoiceID   string
}

// Client calls the gateway's action envelope endpoint.
type Client struct {
	gatewayURL string
	client     *http.Client
}

func NewClient(gatewayURL string) *Client {
	return &Client{
		gatewayURL: strings.TrimSpace(gatewayURL),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type envelope struct {
	Action       string `json:"action"`
	FaceVideoURL string `json:"faceVideoUrl,omitempty"`
	ReplicaName  string `json:"replicaName,omitempty"`
	ReplicaID    string `json:"replicaId,omitempty"`
	Script       string `json:"script,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	VoiceID      string `json:"voiceId,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
}

func (c *Client) post(ctx context.Context, env envelope, out any) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("gateway status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateReplica starts training a replica from a face video URL.
func (c *Client) CreateReplica(ctx context.Context, faceVideoURL, replicaName string) (Replica, error) {
	var out Replica
	err := c.post(ctx, envelope{
		Action:       "create-replica",
		FaceVideoURL: faceVideoURL,
		ReplicaName:  replicaName,
	}, &out)
	if err != nil {
		return Replica{}, fmt.Errorf("create replica: %w", err)
	}
	return out, nil
}

// GenerateVideo starts an async talking-head generation job.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (Video, error) {
	var out Video
	err := c.post(ctx, envelope{
		Action:    "generate-video",
		ReplicaID: req.ReplicaID,
		Script:    req.Script,
		AudioURL:  req.AudioURL,
		VoiceID:   req.VoiceID,
	}, &out)
	if err != nil {
		return Video{}, fmt.Errorf("generate video: %w", err)
	}
	if out.VideoID == "" {
		return Video{}, fmt.Errorf("generate video: empty video_id in response")
	}
	return out, nil
}

// GetVideoStatus polls one job. A transport or gateway failure is reported
// as a synthetic failed status rather than an error so the polling loop
// treats it as terminal instead of retrying forever.
func (c *Client) GetVideoStatus(ctx context.Context, videoID string) VideoStatus {
	var out VideoStatus
	if err := c.post(ctx, envelope{Action: "video-status", VideoID: videoID}, &out); err != nil {
		log.Warn().Err(err).Str("video_id", videoID).Msg("video status check failed")
		return VideoStatus{Status: StatusFailed}
	}
	return out
}
