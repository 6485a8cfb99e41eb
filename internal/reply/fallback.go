package reply

import (
	"context"

	"github.com/rs/zerolog/log"
)

// FallbackGenerator tries a primary generator and falls back to a local one
// on any error. The local generator is total, so Generate never fails:
// every input yields a valid three-line reply.
type FallbackGenerator struct {
	primary Generator
	local   *TemplateGenerator

	// OnFallback, when set, is invoked with the primary's error each time
	// the local bank is used. Hook for metrics.
	OnFallback func(err error)
}

func NewFallbackGenerator(primary Generator, local *TemplateGenerator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, local: local}
}

func (g *FallbackGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.primary != nil {
		out, err := g.primary.Generate(ctx, req)
		if err == nil && IsThreeLines(out) {
			return out, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("primary reply generator failed, using local templates")
			if g.OnFallback != nil {
				g.OnFallback(err)
			}
		}
	}
	return g.local.Generate(ctx, req)
}
