package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/usetradechat/tradechat/store"
)

type createConversationRequest struct {
	Title string `json:"title"`
}

// ListConversations returns the session user's conversations ordered by
// last activity, most recent first.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}

	conversations, err := s.Store.ListConversations(ctx, &store.FindConversation{
		CreatorID: &user.ID,
	})
	if err != nil {
		return genericError(err)
	}

	list := make([]*Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		list = append(list, convertConversationFromStore(conversation))
	}
	return c.JSON(http.StatusOK, list)
}

// CreateConversation creates a conversation with the given title, falling
// back to the default title when empty.
func (s *APIV1Service) CreateConversation(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := getCurrentUser(ctx, s.Store)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
	}

	request := &createConversationRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}

	title := strings.TrimSpace(request.Title)
	if title == "" {
		title = store.DefaultConversationTitle
	}

	now := time.Now().Unix()
	conversation, err := s.Store.CreateConversation(ctx, &store.Conversation{
		UID:       shortuuid.New(),
		CreatorID: user.ID,
		Title:     title,
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return genericError(err)
	}

	return c.JSON(http.StatusOK, convertConversationFromStore(conversation))
}

// DeleteConversation removes a conversation owned by the session user,
// together with its messages.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
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

	if err := s.Store.DeleteConversation(ctx, &store.DeleteConversation{ID: conversation.ID}); err != nil {
		return genericError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
