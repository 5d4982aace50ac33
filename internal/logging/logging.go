package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the application logger: human readable in development, JSON
// lines otherwise. An unknown level falls back to info.
func New(env, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return newLogger(out, parseLevel(level))
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	return logger.Level(level)
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}
