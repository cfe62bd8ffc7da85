package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/validate"
)

// Router turns inbound frames into persisted messages and fans them out to
// the connections that should see them.
type Router struct {
	registry *Registry
	store    chat.Store
	metrics  *Metrics
	log      zerolog.Logger
}

// NewRouter creates a router. A nil metrics records into unregistered
// collectors.
func NewRouter(registry *Registry, store chat.Store, metrics *Metrics, log zerolog.Logger) *Router {
	if metrics == nil {
		metrics = NewMetrics(nil, registry)
	}
	return &Router{
		registry: registry,
		store:    store,
		metrics:  metrics,
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Registry returns the registry the router delivers through.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Connect registers c, superseding any earlier connection for the same identity.
func (r *Router) Connect(c *Conn) {
	if prev := r.registry.Register(c); prev != nil {
		r.log.Debug().
			Str("identity", c.Identity).
			Str("conn", c.ID).
			Str("superseded", prev.ID).
			Msg("connection superseded")
	}
	r.log.Debug().
		Str("identity", c.Identity).
		Str("role", string(c.Role)).
		Str("conn", c.ID).
		Msg("connection registered")
}

// Disconnect releases c from the registry and closes it. Safe to call more
// than once and for connections that were already superseded.
func (r *Router) Disconnect(c *Conn) {
	if r.registry.Release(c) {
		r.log.Debug().Str("identity", c.Identity).Str("conn", c.ID).Msg("connection released")
	}
	_ = c.Close()
}

// Shutdown closes every live connection and returns how many there were.
func (r *Router) Shutdown() int {
	return r.registry.CloseAll()
}

// HandleFrame processes one inbound frame from c. Protocol errors are logged
// and returned but never close the connection.
func (r *Router) HandleFrame(ctx context.Context, c *Conn, data []byte) error {
	frame, err := DecodeFrame(data)
	if err != nil {
		reason := DropMalformed
		if errors.Is(err, ErrUnknownFrame) {
			reason = DropUnknownType
		}
		r.metrics.frameDropped(reason)
		r.log.Debug().Err(err).Str("conn", c.ID).Msg("dropping frame")
		return err
	}

	switch frame.Type {
	case FrameTyping:
		return nil
	case FrameMessage:
		return r.handleMessage(ctx, c, frame)
	}
	return nil
}

func (r *Router) handleMessage(ctx context.Context, c *Conn, frame InboundFrame) error {
	if err := validate.Content(frame.Content); err != nil {
		r.metrics.frameDropped(DropEmptyContent)
		r.log.Debug().Str("conn", c.ID).Msg("dropping empty message")
		return err
	}

	conversationID, err := resolveConversation(c, frame)
	if err != nil {
		code := CodeRecipientRequired
		if errors.Is(err, validate.ErrInvalidIdentity) {
			code = CodeInvalidRecipient
		}
		r.sendError(c, code, err.Error())
		return err
	}

	msg, err := r.store.Append(ctx, chat.Message{
		ConversationID: conversationID,
		AuthorID:       c.Identity,
		Content:        frame.Content,
	})
	if err != nil {
		r.metrics.persistFailures.Inc()
		r.log.Error().Err(err).
			Str("conversation", conversationID).
			Str("sender", c.Identity).
			Msg("persist message")
		r.sendError(c, CodePersistFailed, "message could not be saved")
		return fmt.Errorf("persist message: %w", err)
	}

	event, err := EncodeNewMessage(msg)
	if err != nil {
		return err
	}

	r.metrics.messageRelayed(c.Role)
	r.fanOut(event, r.targets(c, frame))
	return nil
}

// resolveConversation returns the conversation a message from c belongs to.
// Customers always write into their own conversation.
func resolveConversation(c *Conn, frame InboundFrame) (string, error) {
	switch c.Role {
	case chat.RoleOperator:
		recipient := strings.TrimSpace(frame.RecipientID)
		if recipient == "" {
			return "", chat.ErrRecipientRequired
		}
		if err := validate.Identity(recipient); err != nil {
			return "", fmt.Errorf("recipient: %w", err)
		}
		return recipient, nil
	default:
		return c.Identity, nil
	}
}

// targets snapshots the connections that receive a message from c. The
// sender always gets its own echo and appears once.
func (r *Router) targets(c *Conn, frame InboundFrame) []*Conn {
	out := []*Conn{c}

	switch c.Role {
	case chat.RoleOperator:
		if peer, ok := r.registry.Lookup(strings.TrimSpace(frame.RecipientID)); ok && peer != c {
			out = append(out, peer)
		}
	default:
		for _, op := range r.registry.Operators() {
			if op != c {
				out = append(out, op)
			}
		}
	}

	return out
}

// fanOut delivers event to every target. A failed delivery disconnects that
// target only.
func (r *Router) fanOut(event []byte, targets []*Conn) {
	for _, t := range targets {
		if err := t.Send(event); err != nil {
			r.metrics.fanoutFailures.Inc()
			r.log.Warn().Err(err).
				Str("identity", t.Identity).
				Str("conn", t.ID).
				Msg("delivery failed, dropping connection")
			r.Disconnect(t)
		}
	}
}

func (r *Router) sendError(c *Conn, code, message string) {
	event, err := EncodeError(code, message)
	if err != nil {
		r.log.Error().Err(err).Msg("encode error frame")
		return
	}
	r.fanOut(event, []*Conn{c})
}
