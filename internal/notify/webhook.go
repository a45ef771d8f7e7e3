package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type webhookMessage struct {
	Template Template               `json:"template"`
	To       string                 `json:"to"`
	Payload  map[string]interface{} `json:"payload"`
	SentAt   time.Time              `json:"sentAt"`
}

// Webhook posts notifications as JSON to an external mailer.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Send(ctx context.Context, email string, template Template, payload map[string]interface{}) error {
	body, err := json.Marshal(webhookMessage{Template: template, To: email, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
