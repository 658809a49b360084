package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
	"telegram-nutrition-bot/internal/infra/logging"
	"telegram-nutrition-bot/internal/infra/metrics"
)

// DefaultFallback is sent when no provider produced a reply.
const DefaultFallback = "Sorry, the assistant is unavailable right now. Please try again a bit later."

var _ adapter.GenerativeBackend = (*Gateway)(nil)

type GatewayConfig struct {
	Model           string
	Fallback        string
	MaxPromptTokens int
}

// Gateway is the GenerativeBackend used by the router. It never returns an
// error: every provider failure becomes the fallback text.
type Gateway struct {
	provider  Provider
	family    Family
	fallback  string
	counter   TokenCounter
	maxPrompt int
	log       *zerolog.Logger
}

func NewGateway(p Provider, counter TokenCounter, cfg GatewayConfig, logger *zerolog.Logger) *Gateway {
	if cfg.Fallback == "" {
		cfg.Fallback = DefaultFallback
	}
	if counter == nil {
		counter = estimateCounter{}
	}
	l := logger.With().Str("component", "ai.gateway").Logger()
	return &Gateway{
		provider:  p,
		family:    FamilyOf(CanonicalModel(cfg.Model)),
		fallback:  cfg.Fallback,
		counter:   counter,
		maxPrompt: cfg.MaxPromptTokens,
		log:       &l,
	}
}

func (g *Gateway) Complete(ctx context.Context, transcript []adapter.Message) string {
	start := time.Now()
	msgs, tokens := TrimTranscript(g.counter, transcript, g.maxPrompt)
	metrics.ObservePromptTokens(tokens)

	text, err := g.provider.Generate(ctx, msgs)
	outcome := outcomeOf(err)
	metrics.ObserveAICall(string(g.family), outcome, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		logging.With(ctx, g.log).Warn().Err(err).
			Str("outcome", outcome).
			Int("prompt_tokens", tokens).
			Msg("generative backend failed, using fallback")
		return g.fallback
	}
	return text
}
