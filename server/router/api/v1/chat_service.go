package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/usetradechat/tradechat/ai"
	"github.com/usetradechat/tradechat/store"
)

type chatResponse struct {
	Conversation *Conversation `json:"conversation"`
	Messages     []*Message    `json:"messages"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage      *Message      `json:"userMessage"`
	AssistantMessage *Message      `json:"assistantMessage"`
	Conversation     *Conversation `json:"conversation"`
}

// ResolveChat resolves the active conversation for the chat surface.
// With an explicit ?conversation=<uid> it must belong to the session
// user; without one the most recently updated conversation is used, and
// a fresh one is created when the user has none yet.
func (s *APIV1Service) ResolveChat(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}

	var conversation *store.Conversation
	if uid := c.QueryParam("conversation"); uid != "" {
		conversation, err = s.Store.GetConversation(ctx, &store.FindConversation{
			UID:       &uid,
			CreatorID: &user.ID,
		})
		if err != nil {
			return genericError(err)
		}
		if conversation == nil {
			return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
	} else {
		conversation, err = s.Store.GetConversation(ctx, &store.FindConversation{
			CreatorID: &user.ID,
		})
		if err != nil {
			return genericError(err)
		}
		if conversation == nil {
			now := time.Now().Unix()
			conversation, err = s.Store.CreateConversation(ctx, &store.Conversation{
				UID:       shortuuid.New(),
				CreatorID: user.ID,
				Title:     store.DefaultConversationTitle,
				CreatedTs: now,
				UpdatedTs: now,
			})
			if err != nil {
				return genericError(err)
			}
		}
	}

	messages, err := s.Store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversation.ID,
	})
	if err != nil {
		return genericError(err)
	}

	return c.JSON(http.StatusOK, &chatResponse{
		Conversation: convertConversationFromStore(conversation),
		Messages:     convertMessagesFromStore(messages),
	})
}

// ListMessages returns the ordered transcript of a conversation owned by
// the session user.
func (s *APIV1Service) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}

	uid := c.Param("uid")
	conversation, err := s.Store.GetConversation(ctx, &store.FindConversation{
		UID:       &uid,
		CreatorID: &user.ID,
	})
	if err != nil {
		return genericError(err)
	}
	if conversation == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}

	messages, err := s.Store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversation.ID,
	})
	if err != nil {
		return genericError(err)
	}
	return c.JSON(http.StatusOK, convertMessagesFromStore(messages))
}

// SendMessage runs one exchange: persist the user message, obtain the
// assistant reply, persist it, refresh the conversation's recency.
// The user message is persisted before the responder runs; a responder
// failure leaves it in place with no assistant reply and no rollback.
func (s *APIV1Service) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}

	request := &sendMessageRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	content := strings.TrimSpace(request.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message content is empty")
	}

	uid := c.Param("uid")
	conversation, err := s.Store.GetConversation(ctx, &store.FindConversation{
		UID:       &uid,
		CreatorID: &user.ID,
	})
	if err != nil {
		return genericError(err)
	}
	if conversation == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}

	// One send at a time per conversation; a duplicate submission is
	// rejected instead of producing duplicate rows.
	if _, loaded := s.inflightSends.LoadOrStore(conversation.ID, struct{}{}); loaded {
		return echo.NewHTTPError(http.StatusConflict, "a message is already being sent in this conversation")
	}
	defer s.inflightSends.Delete(conversation.ID)

	s.Metrics.SendStarted()
	outcome := "error"
	defer func() { s.Metrics.SendFinished(outcome) }()

	history, err := s.Store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversation.ID,
	})
	if err != nil {
		return genericError(err)
	}

	userMessage, err := s.Store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.RoleUser,
		Content:        content,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return genericError(err)
	}

	if err := s.replySemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many messages in flight").SetInternal(err)
	}
	start := time.Now()
	reply, replyErr := s.Responder.Reply(ctx, &ai.ReplyRequest{
		Message:        content,
		UserID:         fmt.Sprintf("%d", user.ID),
		ConversationID: conversation.UID,
		History:        convertHistory(history),
	})
	s.replySemaphore.Release(1)

	if replyErr != nil {
		s.Metrics.ObserveResponder(time.Since(start), "reply")
		return echo.NewHTTPError(http.StatusBadGateway, "assistant is unavailable; your message was saved").SetInternal(replyErr)
	}
	s.Metrics.ObserveResponder(time.Since(start), "")

	assistantMessage, err := s.Store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.RoleAssistant,
		Content:        reply,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return genericError(err)
	}

	updatedTs := time.Now().Unix()
	conversation, err = s.Store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:        conversation.ID,
		UpdatedTs: &updatedTs,
	})
	if err != nil {
		return genericError(err)
	}

	outcome = "ok"
	return c.JSON(http.StatusOK, &sendMessageResponse{
		UserMessage:      convertMessageFromStore(userMessage),
		AssistantMessage: convertMessageFromStore(assistantMessage),
		Conversation:     convertConversationFromStore(conversation),
	})
}

func convertHistory(messages []*store.Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ai.Turn{Role: string(m.Role), Content: m.Content})
	}
	return turns
}
