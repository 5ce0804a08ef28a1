package v1

import (
	"github.com/usetradechat/tradechat/store"
)

type User struct {
	ID        int32  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	CreatedTs int64  `json:"createdTs"`
}

type Conversation struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	CreatorID int32  `json:"creatorId"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

type Message struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

func convertUserFromStore(user *store.User) *User {
	return &User{
		ID:        user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		CreatedTs: user.CreatedTs,
	}
}

func convertConversationFromStore(c *store.Conversation) *Conversation {
	return &Conversation{
		UID:       c.UID,
		Title:     c.Title,
		CreatorID: c.CreatorID,
		CreatedTs: c.CreatedTs,
		UpdatedTs: c.UpdatedTs,
	}
}

func convertMessageFromStore(m *store.Message) *Message {
	return &Message{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedTs: m.CreatedTs,
	}
}

func convertMessagesFromStore(messages []*store.Message) []*Message {
	list := make([]*Message, 0, len(messages))
	for _, m := range messages {
		list = append(list, convertMessageFromStore(m))
	}
	return list
}
