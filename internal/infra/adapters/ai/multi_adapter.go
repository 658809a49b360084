package ai

import (
	"context"
	"strings"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

var _ Provider = (*MultiProvider)(nil)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// MultiProvider routes the configured model to the provider that serves it.
type MultiProvider struct {
	model           string
	defaultProvider string
	byProvider      map[string]Provider
}

func NewMultiProvider(model, defaultProvider string, byProvider map[string]Provider) *MultiProvider {
	return &MultiProvider{
		model:           model,
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
	}
}

// ResolveProvider maps a model name to a provider key; unknown names go to def.
func ResolveProvider(model, def string) string {
	canonical := CanonicalModel(model)
	switch {
	case FamilyOf(canonical) == FamilyGemini:
		return ProviderGemini
	case strings.HasPrefix(canonical, "gpt"), oSeries.MatchString(canonical):
		return ProviderOpenAI
	default:
		return def
	}
}

func (m *MultiProvider) pick() Provider {
	if p := m.byProvider[ResolveProvider(m.model, m.defaultProvider)]; p != nil {
		return p
	}
	// last resort: first available
	for _, p := range m.byProvider {
		if p != nil {
			return p
		}
	}
	return nil
}

func (m *MultiProvider) Generate(ctx context.Context, transcript []adapter.Message) (string, error) {
	p := m.pick()
	if p == nil {
		return "", ErrNoProvider
	}
	return p.Generate(ctx, transcript)
}
