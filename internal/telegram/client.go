// Package telegram is a minimal Bot API client. Only the calls the bot
// actually makes are implemented; there is no long polling, the server
// receives updates over a webhook.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBase = "https://api.telegram.org"

// Sender sends outbound chat messages.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts ...SendOption) error
}

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	token   string
	baseURL string
	httpc   *http.Client
}

// SendOption tweaks an outbound message.
type SendOption func(*sendMessageRequest)

// WithMarkdown enables Markdown parse mode for the message text.
func WithMarkdown() SendOption {
	return func(r *sendMessageRequest) { r.ParseMode = "Markdown" }
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: apiBase,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage posts a sendMessage call for the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts ...SendOption) error {
	payload := sendMessageRequest{ChatID: chatID, Text: text}
	for _, opt := range opts {
		opt(&payload)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
