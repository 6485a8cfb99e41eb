// Package speech wraps the ElevenLabs REST API: text-to-speech synthesis
// and instant voice cloning.
package speech

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

const defaultBaseURL = "https://api.elevenlabs.io"

// SynthesisError carries the upstream HTTP status so callers can decide
// whether a retry is worthwhile.
type SynthesisError struct {
	Status int
	Body   string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: status %d: %s", e.Status, e.Body)
}

// CloneError maps known upstream failure modes to user-facing messages.
type CloneError struct {
	Status  int
	Body    string
	Message string
}

func (e *CloneError) Error() string {
	return e.Message
}

// cloneMessage translates upstream error bodies into actionable text.
// Checked as substrings because the upstream error format is unstable.
func cloneMessage(body string) string {
	switch {
	case strings.Contains(body, "voice_limit_reached") || strings.Contains(body, "maximum amount of custom voices"):
		return "You have reached your ElevenLabs voice limit (30/30). Please delete an existing voice from your ElevenLabs account or upgrade your subscription to create new voice clones."
	case strings.Contains(body, "insufficient_credits"):
		return "Insufficient ElevenLabs credits. Please add credits to your account or upgrade your subscription."
	case strings.Contains(body, "invalid_api_key"):
		return "ElevenLabs API key is invalid. Please check your API configuration."
	case strings.Contains(body, "rate_limit"):
		return "ElevenLabs rate limit exceeded. Please wait a moment and try again."
	}
	return "Failed to clone voice"
}

// Client talks to the ElevenLabs API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize renders text as MPEG audio with the given voice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: "eleven_monolingual_v1",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &SynthesisError{Status: res.StatusCode, Body: string(body)}
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio response")
	}
	log.Debug().Int("bytes", len(audio)).Str("voice_id", voiceID).Msg("speech synthesized")
	return audio, nil
}

// CloneVoice uploads a recorded sample and returns the new voice id.
func (c *Client) CloneVoice(ctx context.Context, sample []byte, voiceName string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", voiceName); err != nil {
		return "", fmt.Errorf("write name field: %w", err)
	}
	fw, err := mw.CreateFormFile("files", "voice_sample.wav")
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := fw.Write(sample); err != nil {
		return "", fmt.Errorf("write sample: %w", err)
	}
	if err := mw.WriteField("description", "Voice clone for "+voiceName); err != nil {
		return "", fmt.Errorf("write description field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/voices/add", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
		return "", &CloneError{
			Status:  res.StatusCode,
			Body:    string(body),
			Message: cloneMessage(string(body)),
		}
	}

	var decoded struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.VoiceID == "" {
		return "", fmt.Errorf("missing voice_id in response")
	}
	return decoded.VoiceID, nil
}
