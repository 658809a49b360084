package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

var _ Provider = (*GeminiProvider)(nil)

type GeminiProvider struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiProvider creates a Gemini provider using the official SDK. It makes
// one attempt per call; wrap it in a RetryingProvider for backoff.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, transcript []adapter.Message) (string, error) {
	system, turns := splitSystem(transcript)
	if len(turns) == 0 {
		return "", fmt.Errorf("%w: gemini: no messages", ErrBadTranscript)
	}
	last := turns[len(turns)-1]
	if strings.ToLower(last.Role) != "user" {
		return "", fmt.Errorf("%w: gemini: last message must be from user", ErrBadTranscript)
	}

	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxOut)}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	chat, err := g.client.Chats.Create(ctx, g.model, cfg, toGenAIHistory(turns[:len(turns)-1]))
	if err != nil {
		return "", statusFromGenAI(err)
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return "", statusFromGenAI(err)
	}

	var parts []string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil && strings.TrimSpace(p.Text) != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(strings.Join(parts, "")), nil
}

// statusFromGenAI turns an SDK API error into a StatusError so the Retrier
// classifies Gemini answers like HTTP ones.
func statusFromGenAI(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &StatusError{Code: apiErr.Code, Body: apiErr.Message}
	}
	return err
}

// splitSystem folds system messages into one instruction string.
func splitSystem(msgs []adapter.Message) (string, []adapter.Message) {
	var sys []string
	rest := make([]adapter.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.ToLower(m.Role) == "system" {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if r := strings.ToLower(m.Role); r == "assistant" || r == "model" {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
