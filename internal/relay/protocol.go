package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// FrameType is the "type" discriminator carried by every frame.
type FrameType string

const (
	// Inbound.
	FrameMessage FrameType = "message"
	FrameTyping  FrameType = "typing"

	// Outbound.
	FrameNewMessage FrameType = "new_message"
	FrameError      FrameType = "error"
)

// Error codes sent to the originating socket only.
const (
	CodeRecipientRequired = "recipient_required"
	CodeInvalidRecipient  = "invalid_recipient"
	CodePersistFailed     = "persist_failed"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownFrame   = errors.New("unknown frame type")
)

// InboundFrame is a client-to-server frame. RecipientID is only meaningful for
// operators.
type InboundFrame struct {
	Type        FrameType `json:"type"`
	Content     string    `json:"content,omitempty"`
	RecipientID string    `json:"recipientId,omitempty"`
}

// OutboundFrame is a server-to-client frame. Exactly one of Message or Error is
// set, matching Type.
type OutboundFrame struct {
	Type    FrameType     `json:"type"`
	Message *chat.Message `json:"message,omitempty"`
	Error   *FrameErr     `json:"error,omitempty"`
}

// FrameErr describes a rejected frame.
type FrameErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeFrame parses and classifies an inbound frame.
func DecodeFrame(data []byte) (InboundFrame, error) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch frame.Type {
	case FrameMessage, FrameTyping:
		return frame, nil
	case "":
		return InboundFrame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return InboundFrame{}, fmt.Errorf("%w: %q", ErrUnknownFrame, frame.Type)
	}
}

// EncodeNewMessage builds the fan-out event for a persisted message.
func EncodeNewMessage(msg chat.Message) ([]byte, error) {
	data, err := json.Marshal(OutboundFrame{Type: FrameNewMessage, Message: &msg})
	if err != nil {
		return nil, fmt.Errorf("marshal new_message: %w", err)
	}
	return data, nil
}

// EncodeError builds an error event for the sender.
func EncodeError(code, message string) ([]byte, error) {
	data, err := json.Marshal(OutboundFrame{Type: FrameError, Error: &FrameErr{Code: code, Message: message}})
	if err != nil {
		return nil, fmt.Errorf("marshal error frame: %w", err)
	}
	return data, nil
}
