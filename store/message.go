package store

import (
	"context"

	"github.com/pkg/errors"
)

// Role tags a message with its author. It is a closed two-variant enum;
// free-form values are rejected at the store boundary.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return errors.Errorf("invalid message role: %q", string(r))
	}
}

// Message is a single turn in a conversation. Messages are append-only:
// they are never mutated or deleted, only removed via conversation cascade.
type Message struct {
	Content        string
	Role           Role
	CreatedTs      int64
	ID             int64
	ConversationID int32
}

type FindMessage struct {
	ConversationID *int32
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if err := create.Role.Validate(); err != nil {
		return nil, err
	}
	return s.driver.CreateMessage(ctx, create)
}

// ListMessages returns messages ordered by created_ts ascending, oldest
// first, with the insertion id as tiebreaker.
func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}
