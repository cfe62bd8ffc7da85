// Package postgres implements the chat message store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements chat.Store on a chat_messages table.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// Append inserts msg and returns the stored row. Inserts into one conversation
// are serialized with a transaction-scoped advisory lock so created_at never
// goes backwards within it.
func (s *Store) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ConversationID == "" {
		return chat.Message{}, chat.ErrConversationEmpty
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, msg.ConversationID); err != nil {
		return chat.Message{}, fmt.Errorf("lock conversation: %w", err)
	}

	const query = `
        INSERT INTO chat_messages (id, user_id, sender_id, content, is_read, created_at)
        VALUES ($1, $2, $3, $4, FALSE, GREATEST(
            clock_timestamp(),
            COALESCE((SELECT MAX(created_at) FROM chat_messages WHERE user_id = $2), '-infinity'::timestamptz)
        ))
        RETURNING id, user_id, sender_id, content, is_read, created_at`

	var stored chat.Message
	err = tx.QueryRowContext(ctx, query, uuid.NewString(), msg.ConversationID, msg.AuthorID, msg.Content).
		Scan(&stored.ID, &stored.ConversationID, &stored.AuthorID, &stored.Content, &stored.IsRead, &stored.CreatedAt)
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return chat.Message{}, fmt.Errorf("commit message: %w", err)
	}

	stored.CreatedAt = stored.CreatedAt.UTC()
	return stored, nil
}

// History returns the conversation ordered by created_at, then insertion order.
func (s *Store) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, sender_id, content, is_read, created_at
        FROM chat_messages
        WHERE user_id = $1
        ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	messages := []chat.Message{}
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.AuthorID, &msg.Content, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return messages, nil
}

// conversationsQuery picks each conversation's latest message and joins the
// unread customer counts, aggregated once per conversation.
const conversationsQuery = `
        SELECT l.user_id, l.content, l.created_at, COALESCE(u.unread, 0)
        FROM (
            SELECT DISTINCT ON (user_id) user_id, content, created_at
            FROM chat_messages
            ORDER BY user_id, created_at DESC, seq DESC
        ) l
        LEFT JOIN (
            SELECT user_id, COUNT(*) AS unread
            FROM chat_messages
            WHERE NOT is_read AND sender_id = user_id
            GROUP BY user_id
        ) u ON u.user_id = l.user_id
        ORDER BY l.created_at DESC, l.user_id ASC`

// Conversations returns one row per conversation, most recent first.
func (s *Store) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, conversationsQuery)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	convs := []chat.Conversation{}
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.CustomerID, &c.LastMessage, &c.LastMessageTime, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.LastMessageTime = c.LastMessageTime.UTC()
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return convs, nil
}

// MarkRead flags unread messages in the conversation selected by authors.
func (s *Store) MarkRead(ctx context.Context, conversationID string, authors chat.AuthorFilter) (int, error) {
	if conversationID == "" {
		return 0, chat.ErrConversationEmpty
	}

	res, err := s.db.ExecContext(ctx, markReadQuery(authors), conversationID, authors.AuthorID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read rows: %w", err)
	}
	return int(n), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func markReadQuery(authors chat.AuthorFilter) string {
	op := "="
	if authors.Exclude {
		op = "<>"
	}
	return `UPDATE chat_messages SET is_read = TRUE WHERE user_id = $1 AND NOT is_read AND sender_id ` + op + ` $2`
}
