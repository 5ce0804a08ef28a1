package store

import (
	"context"
)

// DefaultConversationTitle is assigned when a conversation is created
// without an explicit title, matching the product's pt-BR wording.
const DefaultConversationTitle = "Nova Conversa"

type Conversation struct {
	UID       string
	Title     string
	CreatedTs int64
	UpdatedTs int64
	ID        int32
	CreatorID int32
}

type FindConversation struct {
	ID        *int32
	UID       *string
	CreatorID *int32

	// Limit caps the number of rows returned. Rows are always ordered by
	// updated_ts descending, so Limit=1 yields the most recent conversation.
	Limit *int
}

type UpdateConversation struct {
	Title     *string
	UpdatedTs *int64
	ID        int32
}

type DeleteConversation struct {
	ID int32
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns a single conversation matching find, or nil when
// none matches. The caller's find is left untouched.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	limit := 1
	limited := *find
	limited.Limit = &limit
	conversations, err := s.driver.ListConversations(ctx, &limited)
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return nil, nil
	}
	return conversations[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}
