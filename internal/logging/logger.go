package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to INFO.
func ParseLevel(name string) Level {
	switch name {
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// writerLogger writes leveled, component-tagged lines to a shared sink.
type writerLogger struct {
	sink      *sink
	component string
}

type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

var (
	defaultSink *sink
	sinkOnce    sync.Once
)

func getDefaultSink() *sink {
	sinkOnce.Do(func() {
		defaultSink = &sink{out: os.Stderr, level: INFO}
		if path := os.Getenv("KANBAN_LOG_FILE"); path != "" {
			if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defaultSink.out = io.MultiWriter(os.Stderr, file)
			} else {
				log.Printf("failed to open log file %s: %v", filepath.Clean(path), err)
			}
		}
		if level := os.Getenv("KANBAN_LOG_LEVEL"); level != "" {
			defaultSink.level = ParseLevel(level)
		}
	})
	return defaultSink
}

// SetDefaultLevel sets the minimum level for component loggers.
func SetDefaultLevel(level Level) {
	s := getDefaultSink()
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &writerLogger{sink: getDefaultSink(), component: component}
}

// NewWriterLogger returns a logger writing to the given writer at the given
// minimum level. Used by tests to capture output.
func NewWriterLogger(out io.Writer, level Level) Logger {
	return &writerLogger{sink: &sink{out: out, level: level}}
}

func (l *writerLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *writerLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *writerLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *writerLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }

func (l *writerLogger) log(level Level, format string, args ...any) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	component := l.component
	if component == "" {
		component = "app"
	}
	fmt.Fprintf(s.out, "[%s] [%s] [%s] %s\n", timestamp, level, component, fmt.Sprintf(format, args...))
}
