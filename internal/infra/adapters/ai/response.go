package ai

import (
	"encoding/json"
	"strings"
)

// ExtractReply pulls reply text out of a backend response. It tries, in order,
// a top-level output_text, the output[] parts, then choices[]. The first
// non-blank extraction wins; "" means no reply.
func ExtractReply(body []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	for _, extract := range []func(map[string]any) string{fromOutputText, fromOutput, fromChoices} {
		if s := strings.TrimSpace(extract(raw)); s != "" {
			return s
		}
	}
	return ""
}

func fromOutputText(raw map[string]any) string {
	switch v := raw["output_text"].(type) {
	case string:
		return v
	case []any:
		return joinNonEmpty(v, func(x any) string {
			s, _ := x.(string)
			return s
		})
	}
	return ""
}

func fromOutput(raw map[string]any) string {
	items, ok := raw["output"].([]any)
	if !ok {
		return ""
	}
	return joinNonEmpty(items, func(x any) string {
		item, ok := x.(map[string]any)
		if !ok {
			return ""
		}
		return contentText(item["content"])
	})
}

func fromChoices(raw map[string]any) string {
	choices, ok := raw["choices"].([]any)
	if !ok {
		return ""
	}
	return joinNonEmpty(choices, func(x any) string {
		choice, ok := x.(map[string]any)
		if !ok {
			return ""
		}
		for _, key := range []string{"message", "delta"} {
			if m, ok := choice[key].(map[string]any); ok {
				if s := contentText(m["content"]); strings.TrimSpace(s) != "" {
					return s
				}
			}
		}
		if s, ok := choice["text"].(string); ok {
			return s
		}
		return ""
	})
}

// contentText flattens a string, a list of parts, or an object carrying
// text/content.
func contentText(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		return joinNonEmpty(c, contentText)
	case map[string]any:
		if s, ok := c["text"].(string); ok {
			return s
		}
		if t, ok := c["text"].(map[string]any); ok {
			return contentText(t["value"])
		}
		return contentText(c["content"])
	}
	return ""
}

func joinNonEmpty(items []any, f func(any) string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(f(it)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
