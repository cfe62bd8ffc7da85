package chat

import (
	"context"
	"errors"
)

// Sentinel errors for chat operations.
var (
	ErrEmptyContent      = errors.New("message content is empty")
	ErrRecipientRequired = errors.New("operator messages require a recipient")
	ErrConversationEmpty = errors.New("conversation id is empty")
)

// AuthorFilter selects which authors a mark-read affects within a conversation.
type AuthorFilter struct {
	AuthorID string
	// Exclude inverts the match: every author except AuthorID.
	Exclude bool
}

// Matches reports whether authorID is selected by the filter.
func (f AuthorFilter) Matches(authorID string) bool {
	if f.Exclude {
		return authorID != f.AuthorID
	}
	return authorID == f.AuthorID
}

// Store defines the durable, append-only message store the relay depends on.
type Store interface {
	// Append persists msg, assigning ID and CreatedAt, and returns the stored row.
	// CreatedAt never goes backwards within a conversation.
	Append(ctx context.Context, msg Message) (Message, error)

	// History returns every message in the conversation ordered by CreatedAt
	// ascending, ties broken by insertion order. Unknown conversations yield an
	// empty slice.
	History(ctx context.Context, conversationID string) ([]Message, error)

	// Conversations returns one summary per conversation, most recent first.
	// LastMessage carries the full content; callers shorten it for display.
	Conversations(ctx context.Context) ([]Conversation, error)

	// MarkRead flags unread messages in the conversation whose author matches
	// the filter and returns how many changed.
	MarkRead(ctx context.Context, conversationID string, authors AuthorFilter) (int, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
