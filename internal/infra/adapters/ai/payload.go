package ai

import (
	"encoding/json"
	"strings"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

// RequestOptions shape a backend request.
type RequestOptions struct {
	Model               string
	MaxOutputTokens     int
	Temperature         float64
	ReasoningEffort     string
	UseCompletionTokens bool
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesInput struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type reasoning struct {
	Effort string `json:"effort"`
}

type responsesRequest struct {
	Model           string           `json:"model"`
	Input           []responsesInput `json:"input"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	Reasoning       *reasoning       `json:"reasoning,omitempty"`
}

type chatRequest struct {
	Model               string            `json:"model"`
	Messages            []adapter.Message `json:"messages"`
	Temperature         *float64          `json:"temperature,omitempty"`
	MaxTokens           int               `json:"max_tokens,omitempty"`
	MaxCompletionTokens int               `json:"max_completion_tokens,omitempty"`
}

// BuildRequest returns the endpoint path and JSON body for the transcript.
func BuildRequest(opts RequestOptions, transcript []adapter.Message) (string, []byte, error) {
	canonical := CanonicalModel(opts.Model)
	var temp *float64
	if supportsTemperature(canonical) {
		t := opts.Temperature
		temp = &t
	}

	if FamilyOf(canonical) == FamilyResponses {
		req := responsesRequest{
			Model:           opts.Model,
			Input:           make([]responsesInput, 0, len(transcript)),
			MaxOutputTokens: opts.MaxOutputTokens,
			Temperature:     temp,
		}
		if effort := strings.TrimSpace(opts.ReasoningEffort); effort != "" {
			req.Reasoning = &reasoning{Effort: effort}
		}
		for _, m := range transcript {
			partType := "input_text"
			if m.Role == "assistant" {
				partType = "output_text"
			}
			req.Input = append(req.Input, responsesInput{
				Role:    m.Role,
				Content: []contentPart{{Type: partType, Text: m.Content}},
			})
		}
		b, err := json.Marshal(req)
		return "/responses", b, err
	}

	req := chatRequest{Model: opts.Model, Messages: transcript, Temperature: temp}
	if usesCompletionTokens(canonical, opts.UseCompletionTokens) {
		req.MaxCompletionTokens = opts.MaxOutputTokens
	} else {
		req.MaxTokens = opts.MaxOutputTokens
	}
	b, err := json.Marshal(req)
	return "/chat/completions", b, err
}
