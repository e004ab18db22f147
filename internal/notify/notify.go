package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notifier delivers a message to a single user. Delivery is the chat
// gateway's job; implementations here only hand the message off.
type Notifier interface {
	Notify(ctx context.Context, userID, subject, body string) error
}

// WebhookNotifier posts notifications to the gateway's direct-message
// endpoint.
type WebhookNotifier struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given gateway URL.
func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notify posts the message to the gateway.
func (n *WebhookNotifier) Notify(ctx context.Context, userID, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{UserID: userID, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway rejected notification: %s", resp.Status)
	}
	return nil
}

// LogNotifier writes notifications to the process log. Used in
// development and as the fallback when no gateway URL is configured.
type LogNotifier struct{}

// Notify logs the message.
func (LogNotifier) Notify(_ context.Context, userID, subject, body string) error {
	log.Printf("notify %s: %s: %s", userID, subject, body)
	return nil
}
