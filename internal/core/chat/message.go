// Package chat defines the support-chat domain types and the message store contract.
package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role identifies which side of a support conversation a connection speaks for.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
)

// RoleFromAdmin maps the transport's "is admin" flag onto a Role.
func RoleFromAdmin(isAdmin bool) Role {
	if isAdmin {
		return RoleOperator
	}
	return RoleCustomer
}

// ParseAdminFlag parses a textual "is admin" flag. An empty flag means customer.
func ParseAdminFlag(s string) (Role, error) {
	if s == "" {
		return RoleCustomer, nil
	}
	isAdmin, err := strconv.ParseBool(s)
	if err != nil {
		return "", fmt.Errorf("invalid admin flag %q", s)
	}
	return RoleFromAdmin(isAdmin), nil
}

// Message is a single persisted chat message. Only IsRead changes after creation.
//
// ConversationID is always the customer's identity, whoever authored the message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"user_id"`
	AuthorID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromCustomer reports whether the customer who owns the conversation wrote the message.
func (m Message) FromCustomer() bool {
	return m.AuthorID == m.ConversationID
}

// Conversation summarises one customer's thread for the operator view.
type Conversation struct {
	CustomerID      string    `json:"customer_id"`
	LastMessage     string    `json:"last_message_preview"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

// Preview shortens content to at most n runes, appending an ellipsis when cut.
// Surrounding whitespace is dropped; a non-positive n never cuts.
func Preview(content string, n int) string {
	content = strings.TrimSpace(content)
	if n <= 0 {
		return content
	}

	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "…"
}
