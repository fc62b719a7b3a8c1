// Package alert implements notification transports for change alerts.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// TelegramConfig holds bot credentials and transport knobs.
type TelegramConfig struct {
	Token   string
	ChatID  string
	APIBase string
	Timeout time.Duration
}

// Telegram delivers alerts through the Telegram Bot API.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram builds a Telegram notifier. A nil client gets a default
// with the configured timeout.
func NewTelegram(cfg TelegramConfig, client *http.Client) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultTelegramAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Telegram{cfg: cfg, client: client}, nil
}

// Send implements tracker.Notifier.
func (t *Telegram) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id":                  t.cfg.ChatID,
		"text":                     message,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send failed: %d %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
