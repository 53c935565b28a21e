// Package log implements the leveled logger used throughout imitator.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

type LogLevel int

// The level of visibility of the log output.
// ERROR is the lowest level, VERBOSE is the highest and it increases in the order that it is written.
const (
	ERROR LogLevel = iota
	WARN
	INFO
	DEBUG
	VERBOSE
)

var levelNames = []string{"ERROR", "WARN", "INFO", "DEBUG", "VERBOSE"}

// String returns the name of the level as printed in log entries.
func (l LogLevel) String() string {
	if l < ERROR || l > VERBOSE {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a level name (case insensitive) into a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	for i, v := range levelNames {
		if strings.EqualFold(v, name) {
			return LogLevel(i), nil
		}
	}
	if strings.EqualFold(name, "warning") {
		return WARN, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", name)
}

// Logger is exposed to the user and all logging is done through it.
// It handles its internal errors, so callers don't have to catch any.
// A nil *Logger is valid and discards everything.
type Logger struct {
	name  string
	level LogLevel
	sinks []Sink
	mu    sync.Mutex
}

var (
	registry   = make(map[string]*Logger)
	registryMu sync.Mutex
)

// NewLogger creates a Logger from the given configuration. The log file is
// opened with truncate and create flags. A blank FilePath disables the file
// sink.
func NewLogger(name string, conf LogConf) (*Logger, error) {
	formatter := DefaultFormatter()
	if conf.FormatStr != "" {
		formatter = NewFormatter(conf.FormatStr)
	}
	if err := formatter.Validate(); err != nil {
		return nil, err
	}
	l := &Logger{name: name, level: conf.Level}
	if conf.FilePath != "" {
		file, err := os.OpenFile(conf.FilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.sinks = append(l.sinks, &File{logFile: file, formatter: formatter})
	}
	if conf.Console {
		l.sinks = append(l.sinks, &Console{w: os.Stderr, formatter: formatter})
	}
	return l, nil
}

// DefaultLogger creates a Logger with the default formatter and registers it
// under name so that other packages can retrieve it with FromName.
func DefaultLogger(name string, level LogLevel, filePath string, console bool) (*Logger, error) {
	l, err := NewLogger(name, LogConf{Level: level, FilePath: filePath, Console: console})
	if err != nil {
		return nil, err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if old, ok := registry[name]; ok {
		old.Close()
	}
	registry[name] = l
	return l, nil
}

// FromName returns the logger registered under name, or a discarding logger
// if there is none.
func FromName(name string) *Logger {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}
	return Discard()
}

// Discard returns a Logger without any sinks.
func Discard() *Logger {
	return &Logger{level: ERROR}
}

// WithSink returns a logger writing to the given sink only. It is mostly
// useful for tests.
func WithSink(level LogLevel, sink Sink) *Logger {
	return &Logger{level: level, sinks: []Sink{sink}}
}

// SetLevel sets the log visibility level of the Logger instance.
func (l *Logger) SetLevel(level LogLevel) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current visibility level.
func (l *Logger) Level() LogLevel {
	if l == nil {
		return ERROR
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) write(level LogLevel, message string, args []any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	for _, sink := range l.sinks {
		if err := sink.Write(level, message); err != nil {
			// There is nowhere left to report this.
			fmt.Fprintf(os.Stderr, "failed log write: %s\n", err)
		}
	}
}

// Error prints out the error message passed to the Sinks.
func (l *Logger) Error(message string, args ...any) {
	l.write(ERROR, message, args)
}

// Warn prints out the warning message passed to the Sinks.
func (l *Logger) Warn(message string, args ...any) {
	l.write(WARN, message, args)
}

// Info prints out the information passed to the Sinks.
func (l *Logger) Info(message string, args ...any) {
	l.write(INFO, message, args)
}

// Debug prints out the debug message passed to the Sinks.
func (l *Logger) Debug(message string, args ...any) {
	l.write(DEBUG, message, args)
}

// Verbose prints out the message passed to the Sinks.
func (l *Logger) Verbose(message string, args ...any) {
	l.write(VERBOSE, message, args)
}

// Close closes every sink of the logger.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sink := range l.sinks {
		if err := sink.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log sink: %s\n", err)
		}
	}
	l.sinks = nil
}
