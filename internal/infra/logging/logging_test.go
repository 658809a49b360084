//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"telegram-nutrition-bot/internal/config"
)

func TestWith(t *testing.T) {
	t.Run("should attach context ids to log lines", func(t *testing.T) {
		// --- Arrange ---
		var buf bytes.Buffer
		base := NewWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"}, false)
		ctx := WithTraceID(context.Background(), "abc")
		ctx = WithUpdateID(ctx, 42)
		ctx = WithTgID(ctx, 7)

		// --- Act ---
		With(ctx, base).Info().Msg("hello")

		// --- Assert ---
		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected json line, got %q: %v", buf.String(), err)
		}
		if line["trace_id"] != "abc" {
			t.Errorf("expected trace_id abc, got %v", line["trace_id"])
		}
		if line["update_id"] != float64(42) {
			t.Errorf("expected update_id 42, got %v", line["update_id"])
		}
		if line["tg_id"] != float64(7) {
			t.Errorf("expected tg_id 7, got %v", line["tg_id"])
		}
		if _, ok := line["chat_id"]; ok {
			t.Error("expected no chat_id when absent from context")
		}
	})
}

func TestRedact(t *testing.T) {
	if got := Redact("short", false); got != "***" {
		t.Errorf("expected *** for short input, got %q", got)
	}
	if got := Redact("a long message text", false); got != "a lo...xt" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("visible", true); got != "visible" {
		t.Errorf("expected passthrough in dev, got %q", got)
	}
}
