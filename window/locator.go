package window

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jezek/xgb/xproto"
)

// LocatorKind is the way a Locator identifies a window.
type LocatorKind int

const (
	ByTitle LocatorKind = iota
	ByClass
	ByID
	Active
	Focused
	Root
)

// Locator describes how to find a window.
type Locator struct {
	Kind    LocatorKind
	Pattern *regexp.Regexp // ByTitle, ByClass
	ID      xproto.Window  // ByID
}

// Title returns a Locator matching window titles against a regular
// expression.
func Title(pattern string) (Locator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid title pattern: %w", err)
	}
	return Locator{Kind: ByTitle, Pattern: re}, nil
}

// Class returns a Locator matching WM_CLASS names against a regular
// expression.
func Class(pattern string) (Locator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid class pattern: %w", err)
	}
	return Locator{Kind: ByClass, Pattern: re}, nil
}

// ID returns a Locator for a specific window ID.
func ID(id xproto.Window) Locator {
	return Locator{Kind: ByID, ID: id}
}

// ParseLocator parses a locator from its textual form:
//
//	title:<regexp>   window title
//	class:<regexp>   WM_CLASS instance or class
//	id:<number>      window ID, decimal or 0x-prefixed hexadecimal
//	active           the window manager's active window
//	focused          the window holding the input focus
//	root             the root window
//
// Any other string is treated as a title pattern, except for numbers, which
// are treated as window IDs.
func ParseLocator(s string) (Locator, error) {
	switch strings.ToLower(s) {
	case "active":
		return Locator{Kind: Active}, nil
	case "focused", "focus":
		return Locator{Kind: Focused}, nil
	case "root":
		return Locator{Kind: Root}, nil
	}
	kind, arg, ok := strings.Cut(s, ":")
	if ok {
		switch kind {
		case "title":
			return Title(arg)
		case "class":
			return Class(arg)
		case "id":
			return parseID(arg)
		}
	}
	if loc, err := parseID(s); err == nil {
		return loc, nil
	}
	return Title(s)
}

func parseID(s string) (Locator, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid window ID %q", s)
	}
	return ID(xproto.Window(id)), nil
}

func (l Locator) String() string {
	switch l.Kind {
	case ByTitle:
		return "title:" + l.Pattern.String()
	case ByClass:
		return "class:" + l.Pattern.String()
	case ByID:
		return fmt.Sprintf("id:0x%x", l.ID)
	case Active:
		return "active"
	case Focused:
		return "focused"
	case Root:
		return "root"
	}
	return "invalid"
}
