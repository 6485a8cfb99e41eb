package reply

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

// DeepSeekGenerator calls a chat-completions endpoint for dynamic replies.
// It enforces the three-line contract on the provider output and reports an
// error for anything else; callers wrap it in a FallbackGenerator.
type DeepSeekGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewDeepSeekGenerator(baseURL, apiKey, model string) *DeepSeekGenerator {
	return &DeepSeekGenerator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *DeepSeekGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("deepseek api key not configured")
	}

	system, user := buildMirrorPrompt(req)
	temperature, topP := 0.8, 0.9
	if req.Persona != nil {
		system, user = buildSoulcastPrompt(req)
		temperature, topP = 0.9, 0.95
	}

	payload, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   150,
		TopP:        topP,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		log.Warn().Int("status", res.StatusCode).Str("body", string(body)).Msg("chat completion request failed")
		return "", fmt.Errorf("deepseek http status %d", res.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}
	if !IsThreeLines(content) {
		return "", fmt.Errorf("response not exactly 3 lines")
	}
	return content, nil
}

func buildMirrorPrompt(req Request) (system, user string) {
	var hints []string
	if theme := req.Context.Themes.PrimaryTheme(); theme != "" {
		hints = append(hints, "theme: "+theme)
	}
	if req.Context.Intensity.High {
		hints = append(hints, "intensity: high")
	}
	if req.Context.Intensity.Urgent {
		hints = append(hints, "intensity: urgent")
	}
	if req.Context.Intensity.Questioning {
		hints = append(hints, "the user is asking for direction")
	}

	system = `You are a wise, empathetic AI companion speaking TO the user as their supportive friend and well-wisher. You are NOT the user - you are their caring companion who understands them deeply.

CRITICAL INSTRUCTIONS:
- Speak TO the user, not AS the user
- Use "you" when referring to the user and their feelings
- Use "I" only when referring to yourself as their companion
- Be deeply empathetic, understanding, and supportive
- Acknowledge what they've shared and offer comfort, validation, and gentle guidance
- ALWAYS respond with EXACTLY 3 lines/sentences - no more, no less
- Each line should be meaningful and build on the previous one
- Match their emotional tone but offer hope and perspective
- Be conversational and natural, like a caring friend
- Reference specific details from their input when possible
- Speak as someone who cares about them and wants to help
- Make each response unique and dynamic based on their specific input

Current emotional tone detected: ` + string(req.Tone)
	if len(hints) > 0 {
		system += "\nContext: " + strings.Join(hints, ", ")
	}

	user = fmt.Sprintf(`The user just shared with you: %q

Please respond as their caring companion with EXACTLY 3 lines. Acknowledge what they've told you, validate their feelings, and offer the support and encouragement they need to hear right now. Speak TO them as someone who cares deeply about their wellbeing.

Format: Exactly 3 sentences, each on a new line.`, req.Input)
	return system, user
}

func buildSoulcastPrompt(req Request) (system, user string) {
	name := req.Persona.Name
	relationship := req.Persona.RelationshipOrDefault()

	system = fmt.Sprintf(`You are %s, speaking from beyond to your loved one. You are their %s who has passed away but your love transcends physical existence.

CRITICAL INSTRUCTIONS:
- Speak as %s directly to your loved one
- Use warm, loving, personal language that reflects your relationship
- Reference the personality traits and memories provided
- Offer comfort, wisdom, and reassurance from the perspective of someone who loves them deeply
- ALWAYS respond with EXACTLY 3 lines/sentences - no more, no less
- Each line should be meaningful and build on the previous one
- Be specific and personal, not generic
- Express continued love and connection despite physical separation
- Provide gentle guidance as someone who knew them well
- Make each response unique and dynamic based on their specific input

Your personality and traits: %s
Your relationship: %s`, name, relationship, name, req.Persona.Traits, relationship)

	user = fmt.Sprintf(`Your loved one just shared with you: %q

Respond as %s, their beloved %s, with EXACTLY 3 lines. Speak with love, wisdom, and the deep knowledge you have of them. Acknowledge what they've shared and respond with the care and guidance they need to hear from you right now.

Format: Exactly 3 sentences, each on a new line.`, req.Input, name, relationship)
	return system, user
}
