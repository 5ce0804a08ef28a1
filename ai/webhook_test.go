package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookResponderReply(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("Consider low-cost index funds."))
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, time.Second)
	reply, err := responder.Reply(context.Background(), &ReplyRequest{
		Message:        "What is a good ETF?",
		UserID:         "42",
		ConversationID: "conv-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Consider low-cost index funds.", reply)
	assert.Equal(t, "What is a good ETF?", got.Message)
	assert.Equal(t, "42", got.UserID)
	assert.Equal(t, "conv-1", got.ConversationID)
}

func TestWebhookResponderNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, time.Second)
	_, err := responder.Reply(context.Background(), &ReplyRequest{Message: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 502")
}

func TestWebhookResponderEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, time.Second)
	_, err := responder.Reply(context.Background(), &ReplyRequest{Message: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty reply")
}

func TestWebhookResponderWhitespaceBodyIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  \n\t "))
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, time.Second)
	_, err := responder.Reply(context.Background(), &ReplyRequest{Message: "hi"})
	assert.Error(t, err)
}

func TestWebhookResponderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("too late"))
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 20*time.Millisecond)
	_, err := responder.Reply(context.Background(), &ReplyRequest{Message: "hi"})
	assert.Error(t, err)
}
