package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output encodings accepted by Get.
const (
	ConsoleEncoding = "console"
	JSONEncoding    = "json"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with the provided level and encoding.
// The first call initializes the logger; subsequent calls ignore the arguments
// and return the already initialized instance.
func Get(level string, encoding ...string) *Logger {
	once.Do(func() {
		enc := ConsoleEncoding
		if len(encoding) > 0 && encoding[0] != "" {
			enc = encoding[0]
		}
		globalLogger = newZapLogger(level, enc)
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Used where no logger is injected.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(kv...)}
}
