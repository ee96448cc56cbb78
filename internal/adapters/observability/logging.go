package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development, local) uses a human-friendly console writer;
// anything else logs JSON.
func NewLogger(env string) zerolog.Logger {
	switch env {
	case "dev", "development", "local":
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "travel-admin").Logger()
}
