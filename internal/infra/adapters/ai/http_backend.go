package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

const (
	regionMarker = "unsupported_country_region_territory"
	maxBodyBytes = 4 << 20
)

var _ Provider = (*HTTPBackend)(nil)

type HTTPBackendConfig struct {
	BaseURL   string
	APIKey    string
	Options   RequestOptions
	RetryBase time.Duration
	Timeout   time.Duration
}

// HTTPBackend talks to an OpenAI-compatible endpoint and shapes the request
// for the configured model family.
type HTTPBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	opts    RequestOptions
	retry   *Retrier
}

func NewHTTPBackend(cfg HTTPBackendConfig, client *http.Client, logger *zerolog.Logger) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	l := logger.With().Str("component", "ai.http").Str("model", cfg.Options.Model).Logger()
	return &HTTPBackend{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		opts:    cfg.Options,
		retry:   NewRetrier(cfg.RetryBase, &l),
	}
}

// Generate makes up to three attempts through the Retrier. A 403 carrying
// the region marker stops immediately.
func (b *HTTPBackend) Generate(ctx context.Context, transcript []adapter.Message) (string, error) {
	path, body, err := BuildRequest(b.opts, transcript)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadTranscript, err)
	}
	return b.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return b.attempt(ctx, path, body)
	})
}

func (b *HTTPBackend) attempt(ctx context.Context, path string, body []byte) (string, error) {
	code, resp, err := b.post(ctx, path, body)
	switch {
	case err != nil:
		return "", err
	case code >= 200 && code < 300:
		if text := ExtractReply(resp); text != "" {
			return text, nil
		}
		return "", ErrEmptyReply
	case code == http.StatusForbidden && bytes.Contains(resp, []byte(regionMarker)):
		return "", ErrRegionBlocked
	default:
		return "", &StatusError{Code: code, Body: truncate(resp, 512)}
	}
}

func (b *HTTPBackend) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	res, err := b.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, data, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
