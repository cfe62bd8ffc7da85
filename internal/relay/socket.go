package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsSocket adapts a gorilla websocket to Socket. Frames are queued on a
// bounded channel and written by a single writer goroutine.
type wsSocket struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	pingInterval time.Duration
	writeWait    time.Duration
	log          zerolog.Logger
}

func newWSSocket(conn *websocket.Conn, opts TransportOptions, log zerolog.Logger) *wsSocket {
	return &wsSocket{
		conn:         conn,
		send:         make(chan []byte, opts.SendQueueSize),
		done:         make(chan struct{}),
		pingInterval: opts.PingInterval,
		writeWait:    opts.WriteWait,
		log:          log,
	}
}

// Send enqueues frame. It never blocks: a full queue is reported as
// ErrSendQueueFull.
func (s *wsSocket) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}

	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return ErrSocketClosed
	default:
		return ErrSendQueueFull
	}
}

// Close stops the writer, which sends a close frame and closes the
// underlying connection.
func (s *wsSocket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// writePump drains the send queue and keeps the peer alive with pings until
// the socket is closed or a write fails.
func (s *wsSocket) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug().Err(err).Msg("write frame")
				_ = s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug().Err(err).Msg("write ping")
				_ = s.Close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.writeWait),
			)
			return
		}
	}
}
