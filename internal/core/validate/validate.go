// Package validate provides shared validation functions.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

// ErrInvalidIdentity is returned for identities the relay refuses to route.
var ErrInvalidIdentity = errors.New("invalid identity")

// maxIdentityLen bounds identities accepted from the transport and HTTP layers.
const maxIdentityLen = 128

// Content validates message content is non-empty after trimming whitespace.
// The content itself is stored verbatim.
func Content(content string) error {
	if strings.TrimSpace(content) == "" {
		return chat.ErrEmptyContent
	}
	return nil
}

// Identity validates a user identity handed over by the auth layer.
func Identity(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: identity is required", ErrInvalidIdentity)
	}
	if id != strings.TrimSpace(id) {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidIdentity, id)
	}
	if len(id) > maxIdentityLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentity, maxIdentityLen)
	}
	return nil
}
