// Package directory answers the read-side queries of the support chat: the
// operator's conversation list, a conversation's history, and read receipts.
package directory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/validate"
)

// DefaultPreviewLength is the number of runes kept in a conversation preview.
const DefaultPreviewLength = 80

// Directory serves conversation listings and history from a chat.Store.
type Directory struct {
	store         chat.Store
	previewLength int
	log           zerolog.Logger
}

// New creates a Directory. A non-positive previewLength uses
// DefaultPreviewLength.
func New(store chat.Store, previewLength int, log zerolog.Logger) *Directory {
	if previewLength <= 0 {
		previewLength = DefaultPreviewLength
	}
	return &Directory{
		store:         store,
		previewLength: previewLength,
		log:           log.With().Str("component", "directory").Logger(),
	}
}

// ListConversations returns one row per conversation, most recent first, with
// the last message shortened to a preview.
func (d *Directory) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	convs, err := d.store.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	for i := range convs {
		convs[i].LastMessage = chat.Preview(convs[i].LastMessage, d.previewLength)
	}
	return convs, nil
}

// History returns the full thread for a conversation in send order.
func (d *Directory) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if err := validate.Identity(conversationID); err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}

	messages, err := d.store.History(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return messages, nil
}

// MarkRead marks the other party's messages as read on behalf of readBy. When
// readBy owns the conversation the staff replies are marked; otherwise the
// customer's messages are.
func (d *Directory) MarkRead(ctx context.Context, conversationID, readBy string) (int, error) {
	if err := validate.Identity(conversationID); err != nil {
		return 0, fmt.Errorf("conversation id: %w", err)
	}
	if err := validate.Identity(readBy); err != nil {
		return 0, fmt.Errorf("reader id: %w", err)
	}

	filter := chat.AuthorFilter{AuthorID: conversationID}
	if readBy == conversationID {
		filter.Exclude = true
	}

	return d.markRead(ctx, conversationID, filter)
}

// MarkReadFrom marks every unread message senderID wrote in the conversation.
func (d *Directory) MarkReadFrom(ctx context.Context, conversationID, senderID string) (int, error) {
	if err := validate.Identity(conversationID); err != nil {
		return 0, fmt.Errorf("conversation id: %w", err)
	}
	if err := validate.Identity(senderID); err != nil {
		return 0, fmt.Errorf("sender id: %w", err)
	}

	return d.markRead(ctx, conversationID, chat.AuthorFilter{AuthorID: senderID})
}

func (d *Directory) markRead(ctx context.Context, conversationID string, filter chat.AuthorFilter) (int, error) {
	n, err := d.store.MarkRead(ctx, conversationID, filter)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	if n > 0 {
		d.log.Debug().Str("conversation", conversationID).Int("updated", n).Msg("marked read")
	}
	return n, nil
}
