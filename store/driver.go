package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all the methods that the store needs to implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
}
