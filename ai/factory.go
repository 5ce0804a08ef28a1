package ai

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/usetradechat/tradechat/internal/profile"
)

// NewResponderFromProfile builds the responder the instance is configured
// for: the direct OpenAI-compatible responder when a provider and API key
// are set, otherwise the webhook responder.
func NewResponderFromProfile(p *profile.Profile) (Responder, error) {
	if p.IsAIDirect() {
		responder, err := NewOpenAIResponder(&OpenAIConfig{
			Provider: p.AIProvider,
			APIKey:   p.AIAPIKey,
			BaseURL:  p.AIBaseURL,
			Model:    p.AIModel,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create direct responder")
		}
		slog.Info("ai responder initialized", "kind", "direct", "provider", p.AIProvider, "model", p.AIModel)
		return responder, nil
	}

	if p.AIWebhookURL != "" {
		responder := NewWebhookResponder(p.AIWebhookURL, time.Duration(p.AIWebhookTimeout)*time.Second)
		slog.Info("ai responder initialized", "kind", "webhook", "url", p.AIWebhookURL)
		return responder, nil
	}

	return nil, errors.New("no AI responder configured: set TRADECHAT_AI_WEBHOOK_URL or TRADECHAT_AI_PROVIDER")
}
