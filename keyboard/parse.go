package keyboard

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jezek/xgb/xproto"
)

// ActionKind identifies the variant of an Action.
type ActionKind int

const (
	// Literal types a single character.
	Literal ActionKind = iota
	// Hold presses or releases one key without releasing or pressing it again.
	Hold
	// Combo presses modifiers around a base key and releases everything.
	Combo
)

// Direction is the direction of a Hold action.
type Direction int

const (
	Press Direction = iota
	Release
)

// Action is a single step of keyboard input. Actions are emitted in order.
type Action struct {
	Kind   ActionKind
	Rune   rune            // Literal: the character to type
	Keysym xproto.Keysym   // Hold, Combo: the key to press
	Dir    Direction       // Hold: press or release
	Mods   []xproto.Keysym // Combo: modifiers, in press order
	Name   string          // The source text the action was parsed from
}

// Parse converts input text into actions. Unless raw is set, `{Name}`
// sequences are escape directives and `{Mod+Key}` sequences are combos; a
// brace which does not start a well-formed sequence is typed literally.
func Parse(text string, raw bool) ([]Action, error) {
	actions := make([]Action, 0, len(text))
	for i := 0; i < len(text); {
		if !raw && text[i] == '{' {
			if name, ok := directiveName(text[i:]); ok {
				action, err := parseDirective(name, i)
				if err != nil {
					return nil, err
				}
				actions = append(actions, action)
				i += len(name) + 2
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			return nil, &ParseError{Kind: InvalidText, Seq: text[i : i+1], Pos: i}
		}
		actions = append(actions, Action{
			Kind: Literal,
			Rune: r,
			Name: text[i : i+size],
		})
		i += size
	}
	return actions, nil
}

// parseDirective builds the action for the directive name found at byte
// offset pos. Names containing a plus are combos.
func parseDirective(name string, pos int) (Action, error) {
	if strings.Contains(name, "+") {
		action, err := ParseCombo(name)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Pos += pos + 1
			}
			return Action{}, err
		}
		return action, nil
	}
	sym, ok := lookupDirective(name)
	if !ok {
		return Action{}, &ParseError{
			Kind: UnknownDirective,
			Seq:  "{" + name + "}",
			Pos:  pos,
		}
	}
	return Action{
		Kind:   Combo,
		Keysym: sym,
		Name:   name,
	}, nil
}

// directiveName extracts the name of a `{Name}` sequence at the start of s.
// Names consist of ASCII letters, digits, underscores and plus signs.
func directiveName(s string) (string, bool) {
	end := strings.IndexByte(s[1:], '}') + 1
	if end < 2 {
		return "", false
	}
	name := s[1:end]
	word := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '+' {
			continue
		}
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", false
		}
		word = true
	}
	// Runs of plus signs, such as "{+}", are typed as-is.
	return name, word
}
