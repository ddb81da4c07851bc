package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the service logger. APP_ENV=dev (or development) uses a
// human-friendly console writer; anything else emits JSON lines.
func NewLogger(env, component string) zerolog.Logger {
	l := zerolog.New(os.Stdout).With().Timestamp().Str("component", component).Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("component", component).Logger()
	}
	return l
}
