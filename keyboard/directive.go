package keyboard

import (
	"strings"

	"github.com/jezek/xgb/xproto"
	"golang.org/x/exp/slices"
)

// aliases maps the short key names accepted in escape directives, combos and
// Down/Up onto X keysym names.
var aliases = map[string]string{
	"Shift":       "Shift_L",
	"Control":     "Control_L",
	"Ctrl":        "Control_L",
	"Alt":         "Alt_L",
	"AltGr":       "ISO_Level3_Shift",
	"Win":         "Super_L",
	"Super":       "Super_L",
	"Meta":        "Meta_L",
	"Hyper":       "Hyper_L",
	"Del":         "Delete",
	"DEL":         "Delete",
	"Ins":         "Insert",
	"INS":         "Insert",
	"BS":          "BackSpace",
	"Backspace":   "BackSpace",
	"Enter":       "Return",
	"TabStop":     "Tab",
	"PUp":         "Prior",
	"PageUp":      "Prior",
	"PDown":       "Next",
	"PageDown":    "Next",
	"Pos1":        "Home",
	"Esc":         "Escape",
	"ESC":         "Escape",
	"CapsLock":    "Caps_Lock",
	"ScrollLock":  "Scroll_Lock",
	"NumLock":     "Num_Lock",
	"PrintScreen": "Print",
	"Space":       "space",
}

// modifiers maps modifier names (case insensitive) onto keysyms.
var modifiers = map[string]xproto.Keysym{
	"shift":   XKShiftL,
	"control": XKControlL,
	"ctrl":    XKControlL,
	"alt":     XKAltL,
	"mod1":    XKAltL,
	"altgr":   XKISOLevel3,
	"mod5":    XKISOLevel3,
	"super":   XKSuperL,
	"win":     XKSuperL,
	"mod4":    XKSuperL,
	"meta":    0xffe7,
	"hyper":   0xffed,
}

// modifierKeysyms lists the keysyms which may be used as combo modifiers
// under their X names.
var modifierKeysyms = []xproto.Keysym{
	0xffe1, 0xffe2, 0xffe3, 0xffe4, 0xffe7, 0xffe8, 0xffe9, 0xffea,
	0xffeb, 0xffec, 0xffed, 0xffee, 0xfe03, 0xff7e,
}

// lookupDirective resolves the name inside a `{Name}` escape. A single
// character names the key which types it, so "{a}" presses a.
func lookupDirective(name string) (xproto.Keysym, bool) {
	return lookupKey(name)
}

// lookupKey resolves a key name used in a combo or with Down/Up.
func lookupKey(name string) (xproto.Keysym, bool) {
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	return KeysymByName(name)
}

// lookupModifier resolves a combo modifier token.
func lookupModifier(name string) (xproto.Keysym, bool) {
	if sym, ok := modifiers[strings.ToLower(name)]; ok {
		return sym, true
	}
	if sym, ok := keysymsByName[name]; ok && slices.Contains(modifierKeysyms, sym) {
		return sym, true
	}
	return NoSymbol, false
}
