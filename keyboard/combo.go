package keyboard

import (
	"strings"

	"github.com/jezek/xgb/xproto"
)

// ParseCombo parses a "Mod1+Mod2+...+Base" key combination. The base key may
// itself be "+", as in "Ctrl++".
func ParseCombo(spec string) (Action, error) {
	if spec == "" {
		return Action{}, &ParseError{Kind: InvalidCombo, Seq: spec}
	}

	var tokens []string
	switch {
	case spec == "+":
		tokens = []string{"+"}
	case strings.HasSuffix(spec, "++"):
		tokens = append(strings.Split(spec[:len(spec)-2], "+"), "+")
	default:
		tokens = strings.Split(spec, "+")
	}

	action := Action{Kind: Combo, Name: spec}
	pos := 0
	for i, tok := range tokens {
		if tok == "" {
			return Action{}, &ParseError{Kind: InvalidCombo, Seq: spec, Pos: pos}
		}
		if i == len(tokens)-1 {
			sym, ok := lookupKey(tok)
			if !ok {
				return Action{}, &ParseError{Kind: UnknownKey, Seq: tok, Pos: pos}
			}
			action.Keysym = sym
			break
		}
		sym, ok := lookupModifier(tok)
		if !ok {
			return Action{}, &ParseError{Kind: UnknownModifier, Seq: tok, Pos: pos}
		}
		action.Mods = append(action.Mods, sym)
		pos += len(tok) + 1
	}
	return action, nil
}

// parseKey resolves the name of a single key for Down and Up.
func parseKey(name string) (xproto.Keysym, error) {
	if sym, ok := lookupModifier(name); ok {
		return sym, nil
	}
	if sym, ok := lookupKey(name); ok {
		return sym, nil
	}
	return NoSymbol, &ParseError{Kind: UnknownKey, Seq: name}
}
