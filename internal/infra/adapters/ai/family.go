package ai

import (
	"regexp"
	"strings"
)

// Family selects the request shape for a model.
type Family string

const (
	// FamilyResponses takes a structured input envelope and max_output_tokens.
	FamilyResponses Family = "responses"
	// FamilyChat takes a flat messages list.
	FamilyChat      Family = "chat"
	FamilyGemini    Family = "gemini"
)

var (
	versionSuffix = regexp.MustCompile(`(-\d{4}-\d{2}-\d{2}|-\d{4,8}|-latest|-preview)$`)
	oSeries       = regexp.MustCompile(`^o\d`)
)

// CanonicalModel lower-cases name and strips provider path prefixes and
// version/date suffixes: "openai/GPT-4o-2024-08-06" -> "gpt-4o".
func CanonicalModel(name string) string {
	m := strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexByte(m, '/'); i >= 0 {
		m = m[i+1:]
	}
	if i := strings.IndexAny(m, ":@"); i >= 0 {
		m = m[:i]
	}
	for {
		next := versionSuffix.ReplaceAllString(m, "")
		if next == m {
			return m
		}
		m = next
	}
}

func FamilyOf(canonical string) Family {
	switch {
	case strings.HasPrefix(canonical, "gpt-5"), oSeries.MatchString(canonical):
		return FamilyResponses
	case strings.HasPrefix(canonical, "gemini"):
		return FamilyGemini
	default:
		return FamilyChat
	}
}

// supportsTemperature is false for reasoning families that reject sampling
// parameters.
func supportsTemperature(canonical string) bool {
	return FamilyOf(canonical) != FamilyResponses
}

// usesCompletionTokens reports whether a chat model needs
// max_completion_tokens instead of the legacy max_tokens.
func usesCompletionTokens(canonical string, force bool) bool {
	if force {
		return true
	}
	return strings.HasPrefix(canonical, "gpt-4.1")
}
