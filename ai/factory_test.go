package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usetradechat/tradechat/internal/profile"
)

func TestNewResponderFromProfileWebhook(t *testing.T) {
	p := &profile.Profile{
		AIWebhookURL:     "http://127.0.0.1:9999/reply",
		AIWebhookTimeout: 10,
	}

	responder, err := NewResponderFromProfile(p)
	require.NoError(t, err)
	assert.IsType(t, &WebhookResponder{}, responder)
}

func TestNewResponderFromProfileDirect(t *testing.T) {
	p := &profile.Profile{
		AIProvider: "openai",
		AIAPIKey:   "test-key",
		AIModel:    "gpt-4o-mini",
	}

	responder, err := NewResponderFromProfile(p)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIResponder{}, responder)
}

func TestNewResponderFromProfileDirectWinsOverWebhook(t *testing.T) {
	p := &profile.Profile{
		AIWebhookURL: "http://127.0.0.1:9999/reply",
		AIProvider:   "openai",
		AIAPIKey:     "test-key",
		AIModel:      "gpt-4o-mini",
	}

	responder, err := NewResponderFromProfile(p)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIResponder{}, responder)
}

func TestNewResponderFromProfileUnconfigured(t *testing.T) {
	_, err := NewResponderFromProfile(&profile.Profile{})
	assert.Error(t, err)
}
