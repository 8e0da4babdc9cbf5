package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger writes human-readable logs to stderr and, when logFile is set,
// appends the same lines to that file. The returned closer releases the file.
func InitLogger(debug bool, logFile string) (io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	}
	if logFile == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return io.NopCloser(nil), err
	}
	plain := zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.DateTime,
		NoColor:    true,
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, plain)).With().Timestamp().Logger()
	return f, nil
}
