package relay

import (
	"errors"

	"github.com/google/uuid"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

var (
	ErrSocketClosed  = errors.New("socket closed")
	ErrSendQueueFull = errors.New("send queue full")
)

// Socket is the transport handle behind a connection.
type Socket interface {
	// Send enqueues a frame for delivery without blocking on network I/O.
	Send(frame []byte) error
	// Close shuts the socket down. It is safe to call more than once.
	Close() error
}

// Conn is one live client connection: who it speaks for and where to write.
type Conn struct {
	ID       string
	Identity string
	Role     chat.Role

	socket Socket
}

// NewConn creates a connection for an authenticated identity.
func NewConn(identity string, role chat.Role, socket Socket) *Conn {
	return &Conn{
		ID:       uuid.NewString(),
		Identity: identity,
		Role:     role,
		socket:   socket,
	}
}

// Send enqueues a frame on the connection's socket.
func (c *Conn) Send(frame []byte) error {
	return c.socket.Send(frame)
}

// Close closes the connection's socket.
func (c *Conn) Close() error {
	return c.socket.Close()
}
