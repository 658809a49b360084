package ai

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

// perMessageOverhead approximates role and framing tokens.
const perMessageOverhead = 4

type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimateCounter is used when no BPE table can be loaded.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// NewTokenCounter returns a tiktoken counter for model, falling back to the
// cl100k_base table and then to a rune-based estimate.
func NewTokenCounter(model string) TokenCounter {
	if enc, err := tiktoken.EncodingForModel(CanonicalModel(model)); err == nil {
		return tiktokenCounter{enc: enc}
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return tiktokenCounter{enc: enc}
	}
	return estimateCounter{}
}

// TrimTranscript keeps leading system messages and as many of the newest
// turns as fit into budget. The final message is always kept.
func TrimTranscript(c TokenCounter, transcript []adapter.Message, budget int) ([]adapter.Message, int) {
	cost := func(m adapter.Message) int { return c.Count(m.Content) + perMessageOverhead }

	total := 0
	for _, m := range transcript {
		total += cost(m)
	}
	if budget <= 0 || total <= budget || len(transcript) == 0 {
		return transcript, total
	}

	head := 0
	used := 0
	for head < len(transcript)-1 && transcript[head].Role == "system" {
		used += cost(transcript[head])
		head++
	}

	last := len(transcript) - 1
	used += cost(transcript[last])
	start := last
	for i := last - 1; i >= head; i-- {
		n := cost(transcript[i])
		if used+n > budget {
			break
		}
		used += n
		start = i
	}

	out := make([]adapter.Message, 0, head+len(transcript)-start)
	out = append(out, transcript[:head]...)
	out = append(out, transcript[start:]...)
	return out, used
}
