// Package reply generates the three-line empathetic responses at the heart
// of the pipeline. A remote chat-completion provider is preferred; a local
// template bank covers every failure mode so generation never fails.
package reply

import (
	"context"
	"strings"

	"github.com/jmoretti/mirrorme/internal/tone"
)

// Request carries one generation call. Persona is nil for mirror mode and
// set for soulcast mode.
type Request struct {
	Input   string
	Tone    tone.Category
	Context tone.Context
	Persona *Persona
}

// Generator produces a reply of exactly three newline-separated sentences.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// SplitLines returns the non-empty trimmed lines of a reply.
func SplitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// IsThreeLines reports whether s satisfies the reply contract.
func IsThreeLines(s string) bool {
	return len(SplitLines(s)) == 3
}
