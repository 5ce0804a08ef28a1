// Package ai produces assistant replies for chat messages. The default
// responder forwards the message to an external webhook; an
// OpenAI-compatible responder is available for instances that talk to a
// model provider directly.
package ai

import (
	"context"
)

// ReplyRequest carries one user message to a responder.
type ReplyRequest struct {
	// Message is the trimmed user input.
	Message string
	// UserID identifies the message author.
	UserID string
	// ConversationID identifies the conversation the message belongs to.
	ConversationID string
	// History holds the prior turns of the conversation, oldest first.
	// The webhook responder ignores it; the direct responder replays it
	// as chat context.
	History []Turn
}

// Turn is a single prior exchange turn.
type Turn struct {
	Role    string // user or assistant
	Content string
}

// Responder converts a user message into an assistant reply.
type Responder interface {
	Reply(ctx context.Context, request *ReplyRequest) (string, error)
}
