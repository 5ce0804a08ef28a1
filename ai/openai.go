package ai

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful trading assistant. Answer questions about markets, " +
	"instruments and personal investing in plain language. You provide educational " +
	"information, not financial advice."

// OpenAIConfig configures the direct responder.
type OpenAIConfig struct {
	Provider string // openai, deepseek, ollama, or any OpenAI-compatible provider
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  int // Request timeout in seconds (default: 120)
}

// OpenAIResponder produces replies from an OpenAI-compatible chat
// completion API instead of the webhook.
type OpenAIResponder struct {
	client  *openai.Client
	model   string
	timeout int
}

// NewOpenAIResponder creates a direct responder for any OpenAI-compatible
// provider.
func NewOpenAIResponder(cfg *OpenAIConfig) (*OpenAIResponder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &OpenAIResponder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

func (r *OpenAIResponder) Reply(ctx context.Context, request *ReplyRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.timeout)*time.Second)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(request.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range request.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: request.Message,
	})

	slog.Debug("ai: chat completion request", "model", r.model, "messages_count", len(messages))

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("chat completion returned an empty reply")
	}
	return reply, nil
}

// newHTTPClient builds an HTTP client with connection pooling tuned for
// long-lived completion requests. The per-request timeout comes from the
// request context, not the client.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
