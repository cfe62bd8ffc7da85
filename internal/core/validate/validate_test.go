package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

func TestContent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain text", "Hello", false},
		{"surrounding spaces kept valid", "  hi  ", false},
		{"empty string", "", true},
		{"only spaces", "   ", true},
		{"only newlines", "\n\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Content(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Content(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, chat.ErrEmptyContent) {
				t.Errorf("Content(%q) error = %v, want ErrEmptyContent", tt.input, err)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple id", "c1", false},
		{"uuid", "0b6f5a9e-8c1e-4a4f-9d0a-3f1b2f6f2a11", false},
		{"empty", "", true},
		{"whitespace", "  ", true},
		{"padded", " c1", true},
		{"too long", strings.Repeat("x", maxIdentityLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Identity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Identity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidIdentity) {
				t.Errorf("Identity(%q) error = %v, want ErrInvalidIdentity", tt.input, err)
			}
		})
	}
}
