package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usetradechat/tradechat/ai"
	"github.com/usetradechat/tradechat/store"
)

// blockingResponder parks inside Reply until released, so a test can hold
// a send open while it races another one.
type blockingResponder struct {
	started chan struct{}
	release chan struct{}
	reply   string
}

func (r *blockingResponder) Reply(ctx context.Context, _ *ai.ReplyRequest) (string, error) {
	r.started <- struct{}{}
	select {
	case <-r.release:
		return r.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestResolveChatUnauthenticated(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{})

	rec := env.do(t, http.MethodGet, "/api/v1/chat", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolveChatCreatesConversationWhenNoneExists(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{})
	token := env.signUp(t, "alice", "s3cret!")

	rec := env.do(t, http.MethodGet, "/api/v1/chat", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[chatResponse](t, rec)
	assert.Equal(t, store.DefaultConversationTitle, resp.Conversation.Title)
	assert.Empty(t, resp.Messages)
}

func TestResolveChatPicksMostRecentConversation(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{})
	token := env.signUp(t, "alice", "s3cret!")

	older := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{"title": "older"}))
	olderTs := older.UpdatedTs - 60
	_, err := env.store.UpdateConversation(context.Background(), &store.UpdateConversation{ID: mustConversationID(t, env, older.UID), UpdatedTs: &olderTs})
	require.NoError(t, err)
	newer := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{"title": "newer"}))

	resp := decodeJSON[chatResponse](t, env.do(t, http.MethodGet, "/api/v1/chat", token, nil))
	assert.Equal(t, newer.UID, resp.Conversation.UID)
}

func TestResolveChatExplicitConversationNotFound(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{})
	token := env.signUp(t, "alice", "s3cret!")

	rec := env.do(t, http.MethodGet, "/api/v1/chat?conversation=nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveChatDoesNotCrossUsers(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{})
	aliceToken := env.signUp(t, "alice", "s3cret!")
	bobToken := env.signUp(t, "bob", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", aliceToken, map[string]string{}))

	rec := env.do(t, http.MethodGet, "/api/v1/chat?conversation="+conversation.UID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageExchange(t *testing.T) {
	responder := &scriptedResponder{reply: "Consider low-cost index funds."}
	env := newTestEnv(t, responder)
	token := env.signUp(t, "alice", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{}))

	rec := env.do(t, http.MethodPost, "/api/v1/conversations/"+conversation.UID+"/messages", token, map[string]string{
		"content": "What is a good ETF?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[sendMessageResponse](t, rec)
	assert.Equal(t, "user", resp.UserMessage.Role)
	assert.Equal(t, "What is a good ETF?", resp.UserMessage.Content)
	assert.Equal(t, "assistant", resp.AssistantMessage.Role)
	assert.Equal(t, "Consider low-cost index funds.", resp.AssistantMessage.Content)
	assert.GreaterOrEqual(t, resp.Conversation.UpdatedTs, conversation.UpdatedTs)

	// The responder saw exactly the forwarded payload.
	require.Len(t, responder.calls, 1)
	assert.Equal(t, "What is a good ETF?", responder.calls[0].Message)
	assert.Equal(t, conversation.UID, responder.calls[0].ConversationID)

	// Transcript holds both turns in order.
	messages := decodeJSON[[]Message](t, env.do(t, http.MethodGet, "/api/v1/conversations/"+conversation.UID+"/messages", token, nil))
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.LessOrEqual(t, messages[0].CreatedTs, messages[1].CreatedTs)
}

func TestSendMessageTrimsAndRejectsEmpty(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{reply: "ok"})
	token := env.signUp(t, "alice", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{}))

	rec := env.do(t, http.MethodPost, "/api/v1/conversations/"+conversation.UID+"/messages", token, map[string]string{
		"content": "   \n\t ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	conversationID := mustConversationID(t, env, conversation.UID)
	messages, err := env.store.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversationID})
	require.NoError(t, err)
	assert.Empty(t, messages, "no message may be persisted for empty input")
}

func TestSendMessageResponderFailureKeepsUserMessage(t *testing.T) {
	responder := &scriptedResponder{err: errors.New("status code: 502")}
	env := newTestEnv(t, responder)
	token := env.signUp(t, "alice", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{}))

	rec := env.do(t, http.MethodPost, "/api/v1/conversations/"+conversation.UID+"/messages", token, map[string]string{
		"content": "hello?",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The user message is persisted before the responder runs, and no
	// assistant message exists after the failure.
	conversationID := mustConversationID(t, env, conversation.UID)
	messages, err := env.store.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversationID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleUser, messages[0].Role)
	assert.Equal(t, "hello?", messages[0].Content)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{reply: "ok"})
	token := env.signUp(t, "alice", "s3cret!")

	rec := env.do(t, http.MethodPost, "/api/v1/conversations/nope/messages", token, map[string]string{
		"content": "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageRejectsDuplicateInFlight(t *testing.T) {
	responder := &blockingResponder{
		started: make(chan struct{}),
		release: make(chan struct{}),
		reply:   "Consider low-cost index funds.",
	}
	env := newTestEnv(t, responder)
	token := env.signUp(t, "alice", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{}))
	path := "/api/v1/conversations/" + conversation.UID + "/messages"

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		firstDone <- env.do(t, http.MethodPost, path, token, map[string]string{"content": "What is a good ETF?"})
	}()

	// The first send is parked inside the responder, so the conversation
	// still counts as busy.
	<-responder.started
	rec := env.do(t, http.MethodPost, path, token, map[string]string{"content": "What is a good ETF?"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(responder.release)
	first := <-firstDone
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	// Exactly one exchange persisted, nothing from the rejected duplicate.
	conversationID := mustConversationID(t, env, conversation.UID)
	messages, err := env.store.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversationID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, store.RoleUser, messages[0].Role)
	assert.Equal(t, store.RoleAssistant, messages[1].Role)
}

func TestSendMessageWhenRepliesSaturated(t *testing.T) {
	env := newTestEnv(t, &scriptedResponder{reply: "ok"})
	token := env.signUp(t, "alice", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{}))

	// Occupy every reply slot so the send has to wait, and bound the
	// request so the wait gives up.
	require.NoError(t, env.service.replySemaphore.Acquire(context.Background(), maxConcurrentReplies))
	defer env.service.replySemaphore.Release(maxConcurrentReplies)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	body, err := json.Marshal(map[string]string{"content": "hello"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+conversation.UID+"/messages", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// The user message was persisted before the wait began.
	conversationID := mustConversationID(t, env, conversation.UID)
	messages, listErr := env.store.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversationID})
	require.NoError(t, listErr)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleUser, messages[0].Role)
}

func TestSendMessagePassesHistoryToResponder(t *testing.T) {
	responder := &scriptedResponder{reply: "second answer"}
	env := newTestEnv(t, responder)
	token := env.signUp(t, "alice", "s3cret!")

	conversation := decodeJSON[Conversation](t, env.do(t, http.MethodPost, "/api/v1/conversations", token, map[string]string{}))

	rec := env.do(t, http.MethodPost, "/api/v1/conversations/"+conversation.UID+"/messages", token, map[string]string{"content": "first question"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/conversations/"+conversation.UID+"/messages", token, map[string]string{"content": "second question"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, responder.calls, 2)
	assert.Empty(t, responder.calls[0].History)
	require.Len(t, responder.calls[1].History, 2)
	assert.Equal(t, "first question", responder.calls[1].History[0].Content)
	assert.Equal(t, "user", responder.calls[1].History[0].Role)
	assert.Equal(t, "assistant", responder.calls[1].History[1].Role)
}
