// Package discord implements the outbound sink as a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

// Config captures the webhook endpoint and the per-deployment branding
// merged into every payload.
type Config struct {
	WebhookURL string
	Username   string
	AvatarURL  string
	UserAgent  string
	Timeout    time.Duration
}

// Webhook posts messages to a Discord-compatible webhook URL.
type Webhook struct {
	cfg    Config
	client *http.Client
}

var _ feed.Sink = (*Webhook)(nil)

// NewWebhook validates the configuration and builds a Webhook sink.
func NewWebhook(cfg Config) (*Webhook, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type embedImage struct {
	URL string `json:"url"`
}

type embed struct {
	Image embedImage `json:"image"`
}

type payload struct {
	Content   string  `json:"content"`
	Embeds    []embed `json:"embeds,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
}

// Send posts one message. The sink is one-way: a 2xx answer is success,
// anything else an error for the caller to report.
func (w *Webhook) Send(ctx context.Context, msg feed.Message) error {
	body := payload{
		Content:   msg.Content,
		Username:  w.cfg.Username,
		AvatarURL: w.cfg.AvatarURL,
	}
	if msg.ImageURL != "" {
		body.Embeds = []embed{{Image: embedImage{URL: msg.ImageURL}}}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook rejected message: %s", resp.Status)
	}
	return nil
}
