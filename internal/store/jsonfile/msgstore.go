// Package jsonfile provides a JSON file-based message store for single-node deployments.
package jsonfile

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// conversationFile is the on-disk layout of a single conversation.
type conversationFile struct {
	ID        string         `json:"id"`
	Messages  []chat.Message `json:"messages"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MsgStore implements chat.Store using one JSON file per conversation.
type MsgStore struct {
	dir string
	now func() time.Time
	mu  sync.RWMutex
}

// NewMsgStore creates a new message store rooted at the given directory
// (e.g., $XDG_DATA_HOME/supportrelay/conversations).
func NewMsgStore(dir string) *MsgStore {
	return &MsgStore{
		dir: dir,
		now: time.Now,
	}
}

// conversationPath returns the file path for a conversation. Identities are
// base64url encoded so arbitrary ids map to safe, reversible file names.
func (s *MsgStore) conversationPath(id string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(id))+".json")
}

func (s *MsgStore) lockPath(id string) string {
	return s.conversationPath(id) + ".lock"
}

func (s *MsgStore) withSharedLock(id string, fn func() error) error {
	return s.withFileLock(id, syscall.LOCK_SH, fn)
}

func (s *MsgStore) withExclusiveLock(id string, fn func() error) error {
	return s.withFileLock(id, syscall.LOCK_EX, fn)
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
// The file lock keeps several relay processes sharing one directory consistent.
// A lock file unlinked while we waited on it no longer guards anything, so the
// lock is retaken on whatever file the path names now.
func (s *MsgStore) withFileLock(id string, lockType int, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create conversations directory: %w", err)
	}

	path := s.lockPath(id)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return fmt.Errorf("open lock file: %w", err)
		}

		if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
			_ = f.Close()
			return fmt.Errorf("acquire file lock: %w", err)
		}

		current, err := sameLockFile(f, path)
		if err != nil {
			_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
			_ = f.Close()
			return err
		}
		if !current {
			_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
			_ = f.Close()
			continue
		}

		err = fn()
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return err
	}
}

// sameLockFile reports whether the locked handle f is still the file at path.
func sameLockFile(f *os.File, path string) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	onDisk, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock file: %w", err)
	}
	return os.SameFile(held, onDisk), nil
}

// exists reports whether the conversation has a file yet. Reads of unknown
// conversations skip locking so they leave nothing behind.
func (s *MsgStore) exists(id string) (bool, error) {
	_, err := os.Stat(s.conversationPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat conversation file: %w", err)
}

// Append persists msg at the end of its conversation.
func (s *MsgStore) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ConversationID == "" {
		return chat.Message{}, chat.ErrConversationEmpty
	}
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withExclusiveLock(msg.ConversationID, func() error {
		conv, err := s.load(msg.ConversationID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if n := len(conv.Messages); n > 0 && conv.Messages[n-1].CreatedAt.After(now) {
			now = conv.Messages[n-1].CreatedAt
		}

		msg.ID = uuid.NewString()
		msg.CreatedAt = now
		msg.IsRead = false

		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = now

		return s.save(conv)
	})
	if err != nil {
		return chat.Message{}, err
	}

	return msg, nil
}

// History returns the conversation's messages in insertion order, which is
// also CreatedAt order.
func (s *MsgStore) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := []chat.Message{}
	ok, err := s.exists(conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return messages, nil
	}

	err = s.withSharedLock(conversationID, func() error {
		conv, err := s.load(conversationID)
		if err != nil {
			return err
		}
		messages = append(messages, conv.Messages...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// Conversations returns a summary per conversation file, most recent first.
func (s *MsgStore) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.listConversationsUnsafe()
	if err != nil {
		return nil, err
	}

	out := make([]chat.Conversation, 0, len(ids))
	for _, id := range ids {
		err := s.withSharedLock(id, func() error {
			conv, err := s.load(id)
			if err != nil {
				return err
			}
			if len(conv.Messages) == 0 {
				return nil
			}

			last := conv.Messages[len(conv.Messages)-1]
			summary := chat.Conversation{
				CustomerID:      id,
				LastMessage:     last.Content,
				LastMessageTime: last.CreatedAt,
			}
			for _, msg := range conv.Messages {
				if msg.FromCustomer() && !msg.IsRead {
					summary.UnreadCount++
				}
			}
			out = append(out, summary)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessageTime.Equal(out[j].LastMessageTime) {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})

	return out, nil
}

// MarkRead flags unread messages whose author matches the filter.
func (s *MsgStore) MarkRead(ctx context.Context, conversationID string, authors chat.AuthorFilter) (int, error) {
	if conversationID == "" {
		return 0, chat.ErrConversationEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, err := s.exists(conversationID); err != nil || !ok {
		return 0, err
	}

	var changed int
	err := s.withExclusiveLock(conversationID, func() error {
		conv, err := s.load(conversationID)
		if err != nil {
			return err
		}

		for i, msg := range conv.Messages {
			if !msg.IsRead && authors.Matches(msg.AuthorID) {
				conv.Messages[i].IsRead = true
				changed++
			}
		}

		if changed == 0 {
			return nil
		}
		conv.UpdatedAt = s.now().UTC()
		return s.save(conv)
	})
	if err != nil {
		return 0, err
	}

	return changed, nil
}

// Ping verifies the store directory can be created and written to.
func (s *MsgStore) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create conversations directory: %w", err)
	}

	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("write conversations directory: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Close is a no-op; the store holds no open handles between calls.
func (s *MsgStore) Close() error {
	return nil
}

// listConversationsUnsafe returns all conversation ids without locking.
// Caller must hold s.mu.
func (s *MsgStore) listConversationsUnsafe() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read conversations directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, string(raw))
	}

	sort.Strings(ids)
	return ids, nil
}

// load reads a conversation file from disk.
// Returns an empty conversation if the file doesn't exist.
func (s *MsgStore) load(id string) (conversationFile, error) {
	data, err := os.ReadFile(s.conversationPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return conversationFile{ID: id}, nil
		}
		return conversationFile{}, fmt.Errorf("read conversation file: %w", err)
	}

	if len(data) == 0 {
		return conversationFile{ID: id}, nil
	}

	var conv conversationFile
	if err := json.Unmarshal(data, &conv); err != nil {
		return conversationFile{}, fmt.Errorf("parse conversation file: %w", err)
	}

	return conv, nil
}

// save writes a conversation file to disk atomically.
func (s *MsgStore) save(conv conversationFile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create conversations directory: %w", err)
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	path := s.conversationPath(conv.ID)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
