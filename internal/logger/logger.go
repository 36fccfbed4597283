// Package logger provides the configured zerolog logger shared by the trail binaries.
package logger

import (
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// New returns a JSON logger on stdout tagged with the service name.
// Call sites should use .Stack() on error events to include stacks.
func New(serviceName string) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName, "")
}

// NewWithWriter is New with an explicit sink and level ("" keeps debug).
func NewWithWriter(w io.Writer, serviceName, level string) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}

	lvl := zerolog.DebugLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}

	return zerolog.New(w).Level(lvl).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
