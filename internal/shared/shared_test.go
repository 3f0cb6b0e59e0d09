package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestGenerateCode(t *testing.T) {
	tc := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{name: "default length", length: 6},
		{name: "single character", length: 1},
		{name: "long code", length: 32},
		{name: "zero length", length: 0, wantErr: true},
		{name: "negative length", length: -3, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			code, err := GenerateCode(tt.length)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateCode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(code) != tt.length {
				t.Errorf("GenerateCode() length = %d, want %d", len(code), tt.length)
			}
			for _, r := range code {
				if !strings.ContainsRune(codeAlphabet, r) {
					t.Errorf("GenerateCode() produced %q outside alphabet", r)
				}
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateID() = %q is not a valid uuid: %v", id, err)
	}
	if GenerateID() == id {
		t.Error("expected distinct ids")
	}
}

func TestLogger(t *testing.T) {
	t.Run("writes to given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "room", "ABC123").Info("joined")

		out := buf.String()
		if !strings.Contains(out, "joined") || !strings.Contains(out, "ABC123") {
			t.Errorf("expected message and key-values in output, got %q", out)
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		logger := NewLogger(&bytes.Buffer{})
		if err := SetLogLevel(logger, "debug"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
		if err := SetLogLevel(logger, "shouting"); err == nil {
			t.Error("expected error for unknown level")
		}
		if err := SetLogLevel(logger, ""); err != nil {
			t.Errorf("empty level should be a no-op, got %v", err)
		}
	})
}
