package keyboard

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb/xproto"
)

// ErrNoFreeKeycode is returned when a keysym has to be bound to a spare
// keycode but the keyboard mapping has none.
var ErrNoFreeKeycode = errors.New("no free keycode available")

// ParseErrorKind identifies what made a piece of input invalid.
type ParseErrorKind int

const (
	UnknownDirective ParseErrorKind = iota
	UnknownModifier
	UnknownKey
	InvalidCombo
	InvalidText
)

// ParseError is returned when the input text or a combo cannot be parsed.
// It is always returned before any key event has been sent.
type ParseError struct {
	Kind ParseErrorKind
	Seq  string // The offending sequence
	Pos  int    // Byte offset of Seq within the input
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case UnknownDirective:
		return fmt.Sprintf("unknown escape directive %q at position %d", e.Seq, e.Pos)
	case UnknownModifier:
		return fmt.Sprintf("unknown modifier %q at position %d", e.Seq, e.Pos)
	case UnknownKey:
		return fmt.Sprintf("unknown key %q at position %d", e.Seq, e.Pos)
	case InvalidText:
		return fmt.Sprintf("invalid UTF-8 at position %d", e.Pos)
	default:
		return fmt.Sprintf("invalid key combination %q at position %d", e.Seq, e.Pos)
	}
}

// ResolutionError is returned when no keycode can produce a keysym. Events
// emitted before it was detected are not undone.
type ResolutionError struct {
	Rune   rune          // The character being typed, if any
	Keysym xproto.Keysym // The keysym that could not be resolved
	Err    error         // Underlying cause, if any
}

func (e *ResolutionError) Error() string {
	var what string
	if e.Rune != 0 {
		what = fmt.Sprintf("character %q", e.Rune)
	} else {
		what = "key " + KeysymName(e.Keysym)
	}
	if e.Err != nil {
		return fmt.Sprintf("cannot type %s: %s", what, e.Err)
	}
	if e.Keysym == NoSymbol {
		return fmt.Sprintf("cannot type %s: no keysym", what)
	}
	return fmt.Sprintf("cannot type %s: keysym %s is not in the keyboard mapping", what, KeysymName(e.Keysym))
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
