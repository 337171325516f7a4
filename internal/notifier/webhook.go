package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"StockBot/internal/models"
)

// Webhook posts the alert as JSON to an HTTP endpoint.
type Webhook struct {
	URL        string
	Username   string
	Password   string
	HttpClient *http.Client
}

type webhookPayload struct {
	Event   string  `json:"event"`
	URL     string  `json:"url"`
	Title   string  `json:"title,omitempty"`
	Price   float64 `json:"price,omitempty"`
	AddedAt string  `json:"added_at"`
	Message string  `json:"message"`
}

// NewWebhook creates a webhook channel. Basic auth is sent when username is set.
func NewWebhook(url, username, password string) *Webhook {
	return &Webhook{
		URL:        url,
		Username:   username,
		Password:   password,
		HttpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, alert models.Alert) error {
	jsonData, err := json.Marshal(webhookPayload{
		Event:   "added_to_cart",
		URL:     alert.URL,
		Title:   alert.Title,
		Price:   alert.Price,
		AddedAt: alert.AddedAt.UTC().Format(time.RFC3339),
		Message: alert.Message(),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Username != "" {
		req.SetBasicAuth(w.Username, w.Password)
	}

	resp, err := w.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %s, body: %s", resp.Status, string(body))
	}
	return nil
}
