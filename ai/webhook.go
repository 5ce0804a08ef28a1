package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// defaultWebhookTimeout bounds a webhook call when no timeout is configured.
const defaultWebhookTimeout = 30 * time.Second

// webhookPayload is the wire contract of the assistant webhook.
type webhookPayload struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// WebhookResponder posts the user message to a fixed HTTP endpoint and
// treats the plain-text response body as the assistant reply. Success is
// HTTP 2xx with a non-empty body.
type WebhookResponder struct {
	url    string
	client *http.Client
}

// NewWebhookResponder creates a responder for the given webhook URL.
func NewWebhookResponder(url string, timeout time.Duration) *WebhookResponder {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookResponder{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *WebhookResponder) Reply(ctx context.Context, request *ReplyRequest) (string, error) {
	body, err := json.Marshal(&webhookPayload{
		Message:        request.Message,
		UserID:         request.UserID,
		ConversationID: request.ConversationID,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal webhook request to %s", r.url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewBuffer(body))
	if err != nil {
		return "", errors.Wrapf(err, "failed to construct webhook request to %s", r.url)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to post webhook to %s", r.url)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read webhook response from %s", r.url)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("failed to post webhook %s, status code: %d, response body: %s", r.url, resp.StatusCode, b)
	}

	reply := strings.TrimSpace(string(b))
	if reply == "" {
		return "", errors.Errorf("webhook %s returned an empty reply", r.url)
	}

	return reply, nil
}
