// package shared defines shared helpers
package shared

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel parses a level name ("debug", "info", ...) and applies it to the [log.Logger].
//
// An empty name keeps the current level; an unknown one is an [ErrInvalidConfig].
func SetLogLevel(l *log.Logger, name string) error {
	if name == "" {
		return nil
	}
	ll, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, name)
	}
	l.SetLevel(ll)
	return nil
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// GenerateCode returns a random upper-case alphanumeric room code of length n.
//
// Uniqueness is not implied; callers must check against the store.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: code length %d", ErrInvalidArgument, n)
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}
