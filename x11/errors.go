package x11

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb/xproto"
)

// Error types
var (
	ErrConnectionDied = errors.New("connection with X server closed")
	ErrNoProperty     = errors.New("property not set")
	ErrStaleHandle    = errors.New("window no longer exists")
	ErrTimeout        = errors.New("timed out")
	ErrUnsupported    = errors.New("not supported")
	errInvalidLength  = errors.New("invalid response length")
)

// ConnectionError is returned when the X display cannot be opened.
type ConnectionError struct {
	Display string
	Err     error
}

func (e *ConnectionError) Error() string {
	display := e.Display
	if display == "" {
		display = "$DISPLAY"
	}
	return fmt.Sprintf("open display %s: %s", display, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// translate converts protocol errors which indicate that a window is gone
// into ErrStaleHandle.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var winErr xproto.WindowError
	var drawErr xproto.DrawableError
	if errors.As(err, &winErr) || errors.As(err, &drawErr) {
		return fmt.Errorf("%w (%s)", ErrStaleHandle, err)
	}
	return err
}
