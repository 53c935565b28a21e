package log

import (
	"errors"
	"strings"
	"time"
)

// Formatter is used by the Sinks to format the log before print.
// It is initialized with a formatStr that can use certain internal variables:
// `ascTime` - The time of the log print in human readable form.
// `level` - The visibility level of the log.
// `message` - The log message itself. This is a compulsory format variable.
// All format variables are enclosed in '{' and '}'.
// Eg: "{ascTime}: [{level}] - {message}"
type Formatter struct {
	formatStr string
	now       func() time.Time
}

var errMissingMessage = errors.New("missing `message` parameter in format string")

// DefaultFormatter creates a simple Formatter instance with a pre-defined `formatStr`.
func DefaultFormatter() Formatter {
	return NewFormatter("{ascTime}: [{level}] - {message}")
}

// NewFormatter creates a Formatter instance with a user-defined `formatStr`.
func NewFormatter(formatStr string) Formatter {
	return Formatter{
		formatStr: formatStr,
		now:       time.Now,
	}
}

// Validate checks that the format string can carry a message.
func (f *Formatter) Validate() error {
	if !strings.Contains(f.formatStr, "{message}") {
		return errMissingMessage
	}
	return nil
}

// Format replaces all variables in `formatStr` with their values.
func (f *Formatter) Format(level LogLevel, message string) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	now := f.now
	if now == nil {
		now = time.Now
	}
	replacer := strings.NewReplacer(
		"{ascTime}", now().Format(time.RFC3339),
		"{level}", level.String(),
		"{message}", message,
	)
	return replacer.Replace(f.formatStr) + "\n", nil
}
