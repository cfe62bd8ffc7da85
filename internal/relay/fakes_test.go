package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// fakeSocket records frames instead of writing them to a network peer.
type fakeSocket struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	failSend bool
}

func (s *fakeSocket) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSocketClosed
	}
	if s.failSend {
		return ErrSendQueueFull
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// received decodes every frame the socket was sent.
func (s *fakeSocket) received(t *testing.T) []OutboundFrame {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OutboundFrame, 0, len(s.frames))
	for _, raw := range s.frames {
		var frame OutboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("decode outbound frame %s: %v", raw, err)
		}
		out = append(out, frame)
	}
	return out
}

func newTestConn(identity string, role chat.Role) (*Conn, *fakeSocket) {
	sock := &fakeSocket{}
	return NewConn(identity, role, sock), sock
}

// memStore implements chat.Store in memory for router tests.
type memStore struct {
	mu        sync.Mutex
	messages  []chat.Message
	appendErr error
	seq       int
	base      time.Time
}

func newMemStore() *memStore {
	return &memStore{base: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (m *memStore) Append(_ context.Context, msg chat.Message) (chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return chat.Message{}, m.appendErr
	}
	m.seq++
	msg.ID = fmt.Sprintf("m%d", m.seq)
	msg.CreatedAt = m.base.Add(time.Duration(m.seq) * time.Second)
	msg.IsRead = false
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memStore) History(_ context.Context, conversationID string) ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []chat.Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) Conversations(_ context.Context) ([]chat.Conversation, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) MarkRead(_ context.Context, _ string, _ chat.AuthorFilter) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *memStore) Ping(_ context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
