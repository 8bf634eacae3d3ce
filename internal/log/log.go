// Package log is the process-wide structured logger. Call sites pass a
// message followed by alternating key/value pairs:
//
//	log.Info("feed refreshed", "id", src.ID, "appointments", n)
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu         sync.RWMutex
	logger     zerolog.Logger
	loggerOnce sync.Once
)

// initLogger writes human-readable lines to a terminal and JSON otherwise.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newLogger(defaultWriter(), LevelInfo)
	})
}

func defaultWriter() io.Writer {
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return os.Stderr
}

func newLogger(w io.Writer, l Level) zerolog.Logger {
	return zerolog.New(w).Level(toZerolog(l)).With().Timestamp().Logger()
}

// SetLevel changes the minimum level that is written.
func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	logger = logger.Level(toZerolog(l))
	mu.Unlock()
}

// SetOutput redirects all log output to w, keeping the current level.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	logger = newLogger(w, fromZerolog(logger.GetLevel()))
	mu.Unlock()
}

// ParseLevel maps a config string such as "debug" to a Level, defaulting to
// LevelInfo.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	current().Debug().Fields(kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	current().Info().Fields(kv).Msg(msg)
}

func Warn(msg string, kv ...any) {
	current().Warn().Fields(kv).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	current().Error().Err(err).Fields(kv).Msg(msg)
}

func current() *zerolog.Logger {
	initLogger()
	mu.RLock()
	l := logger
	mu.RUnlock()
	return &l
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func fromZerolog(l zerolog.Level) Level {
	switch l {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return LevelDebug
	case zerolog.WarnLevel:
		return LevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return LevelError
	default:
		return LevelInfo
	}
}
