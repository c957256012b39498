package log

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// "goroutine 123 [running]:" fits comfortably.
const stackBufSize = 32

var (
	Logger    zerolog.Logger
	stackPool = sync.Pool{New: func() any { return make([]byte, stackBufSize) }}
	goroutine = []byte("goroutine ")
)

// goroutineID returns the id of the calling goroutine, or "unknown".
func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return "unknown"
	}
	defer stackPool.Put(buf) //nolint:staticcheck // slices are fine here

	stack := buf[:runtime.Stack(buf, false)]
	stack, found := bytes.CutPrefix(stack, goroutine)
	if !found {
		return "unknown"
	}
	end := bytes.IndexByte(stack, ' ')
	if end <= 0 {
		return "unknown"
	}
	return string(stack[:end])
}

// New builds a logger writing to w at level, tagging every event with its goroutine id.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

func init() {
	Logger = New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, zerolog.InfoLevel)
	log.Logger = Logger
}

// Info logs an info message.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetLevel switches the logger to the named level ("debug", "info", ...).
// An empty name leaves the level unchanged.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return err
	}
	Logger = Logger.Level(level)
	log.Logger = Logger
	return nil
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}
