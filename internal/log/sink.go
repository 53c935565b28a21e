package log

import (
	"fmt"
	"io"
	"os"
)

// LogConf stores the data a Logger needs to construct itself.
type LogConf struct {
	Level     LogLevel
	FilePath  string
	FormatStr string
	Console   bool
}

// Sink is the base on which `Console` and `File` are implemented.
type Sink interface {
	Write(level LogLevel, message string) error
	Close() error
}

// Console is a Sink which writes formatted entries to a terminal stream.
type Console struct {
	w         io.Writer
	formatter Formatter
}

// NewConsole creates a Console sink writing to w.
func NewConsole(w io.Writer, formatter Formatter) *Console {
	return &Console{w, formatter}
}

// Write writes the formatted output to the console.
func (c *Console) Write(level LogLevel, message string) error {
	formattedMsg, err := c.formatter.Format(level, message)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if _, err = io.WriteString(c.w, formattedMsg); err != nil {
		return fmt.Errorf("write to console: %w", err)
	}
	return nil
}

// Close is a no-op; the console stream is not owned by the sink.
func (c *Console) Close() error {
	return nil
}

// File is a Sink which controls log file writes using its formatter.
type File struct {
	logFile   *os.File
	formatter Formatter
}

// Write writes the formatted output to the log file.
func (f *File) Write(level LogLevel, message string) error {
	formattedMsg, err := f.formatter.Format(level, message)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if _, err = f.logFile.WriteString(formattedMsg); err != nil {
		return fmt.Errorf("write to log file: %w", err)
	}
	return nil
}

// Close closes the log file.
func (f *File) Close() error {
	return f.logFile.Close()
}
