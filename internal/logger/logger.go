// Package logger provides the configured zerolog logger used by every binary.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

var stackOnce sync.Once

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// configureStacks teaches zerolog to render github.com/pkg/errors stacks.
// Errors logged with .Stack() get a stack even when created with the std errors package.
func configureStacks() {
	stackOnce.Do(func() {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			if _, ok := err.(stackTracer); !ok {
				err = pkgerrors.WithStack(err)
			}
			return zpkgerrors.MarshalStack(err)
		}
	})
}

// New returns the service logger writing JSON lines to stdout.
// The level comes from BOOKMARK_SERVER_LOG_LEVEL (default info).
func New(serviceName string) zerolog.Logger {
	return NewWithWriter(serviceName, os.Stdout)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(serviceName string, w io.Writer) zerolog.Logger {
	configureStacks()
	return zerolog.New(w).
		Level(levelFromEnv()).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// Component derives a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func levelFromEnv() zerolog.Level {
	raw := strings.TrimSpace(os.Getenv("BOOKMARK_SERVER_LOG_LEVEL"))
	if raw == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
