// Package webhook posts discoveries to a Discord-compatible webhook as an
// embed carrying the formatted id and the product image.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

const (
	// DefaultColor is the embed sidebar color.
	DefaultColor = 0xFFADA2
	// DefaultFooter is the embed footer text.
	DefaultFooter = "@rtunazzz"
	// FallbackKey names the webhook used by targets without their own.
	FallbackKey = "rest"
)

// Config controls embed styling and the HTTP timeout.
type Config struct {
	URL     string
	Color   int
	Footer  string
	Timeout time.Duration
}

// Notifier posts one embed per discovery.
type Notifier struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

type embedPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Image       embedURL    `json:"image"`
	Author      embedName   `json:"author"`
	Footer      embedFooter `json:"footer"`
}

type embedURL struct {
	URL string `json:"url"`
}

type embedName struct {
	Name string `json:"name"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Resolve picks the webhook for target, falling back to the "rest" entry.
func Resolve(hooks map[string]string, target string) (string, error) {
	url, ok := hooks[strings.ToLower(target)]
	if !ok {
		url, ok = hooks[FallbackKey]
	}
	if !ok {
		return "", fmt.Errorf("%w: no webhook for %q", prober.ErrConfigurationMissing, target)
	}
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: empty webhook for %q", prober.ErrConfigurationMissing, target)
	}
	return url, nil
}

// ParseColor converts "#ffada2" or "ffada2" to an integer color. An empty
// string yields DefaultColor.
func ParseColor(raw string) (int, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if raw == "" {
		return DefaultColor, nil
	}
	v, err := strconv.ParseInt(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse embed color %q: %w", raw, err)
	}
	return int(v), nil
}

// New constructs a Notifier. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client, logger *zap.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("%w: webhook url", prober.ErrConfigurationMissing)
	}
	if cfg.Footer == "" {
		cfg.Footer = DefaultFooter
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, cfg: cfg, logger: logger.Named("webhook")}, nil
}

// Notify implements prober.Notifier.
func (n *Notifier) Notify(ctx context.Context, note prober.Notification) error {
	body, err := json.Marshal(n.payload(note))
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL+"?wait=true", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			n.logger.Warn("failed to close webhook response", zap.Error(cerr))
		}
	}()
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	n.logger.Debug("webhook delivered", zap.Int64("id", note.ID), zap.String("target", note.Target))
	return nil
}

func (n *Notifier) payload(note prober.Notification) embedPayload {
	return embedPayload{Embeds: []embed{{
		Description: "```" + note.FormattedID + "```",
		Color:       n.cfg.Color,
		Image:       embedURL{URL: note.URL},
		Author:      embedName{Name: note.Target},
		Footer:      embedFooter{Text: n.cfg.Footer},
	}}}
}
