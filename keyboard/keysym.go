package keyboard

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jezek/xgb/xproto"
)

// Well-known keysyms.
const (
	NoSymbol       xproto.Keysym = 0
	XKBackSpace    xproto.Keysym = 0xff08
	XKTab          xproto.Keysym = 0xff09
	XKReturn       xproto.Keysym = 0xff0d
	XKEscape       xproto.Keysym = 0xff1b
	XKDelete       xproto.Keysym = 0xffff
	XKShiftL       xproto.Keysym = 0xffe1
	XKControlL     xproto.Keysym = 0xffe3
	XKAltL         xproto.Keysym = 0xffe9
	XKSuperL       xproto.Keysym = 0xffeb
	XKISOLevel3    xproto.Keysym = 0xfe03
	unicodeKeysyms xproto.Keysym = 0x01000000
)

type namedKeysym struct {
	name string
	sym  xproto.Keysym
}

// functionKeys holds the keysym names outside of the Latin-1 range. When a
// keysym appears twice, the first name is its canonical one.
var functionKeys = []namedKeysym{
	{"BackSpace", 0xff08}, {"Tab", 0xff09}, {"Linefeed", 0xff0a},
	{"Clear", 0xff0b}, {"Return", 0xff0d}, {"Pause", 0xff13},
	{"Scroll_Lock", 0xff14}, {"Sys_Req", 0xff15}, {"Escape", 0xff1b},
	{"Delete", 0xffff}, {"Home", 0xff50}, {"Left", 0xff51}, {"Up", 0xff52},
	{"Right", 0xff53}, {"Down", 0xff54}, {"Prior", 0xff55},
	{"Page_Up", 0xff55}, {"Next", 0xff56}, {"Page_Down", 0xff56},
	{"End", 0xff57}, {"Begin", 0xff58}, {"Select", 0xff60},
	{"Print", 0xff61}, {"Execute", 0xff62}, {"Insert", 0xff63},
	{"Undo", 0xff65}, {"Redo", 0xff66}, {"Menu", 0xff67}, {"Find", 0xff68},
	{"Cancel", 0xff69}, {"Help", 0xff6a}, {"Break", 0xff6b},
	{"Mode_switch", 0xff7e}, {"Num_Lock", 0xff7f},
	{"KP_Space", 0xff80}, {"KP_Tab", 0xff89}, {"KP_Enter", 0xff8d},
	{"KP_Home", 0xff95}, {"KP_Left", 0xff96}, {"KP_Up", 0xff97},
	{"KP_Right", 0xff98}, {"KP_Down", 0xff99}, {"KP_Prior", 0xff9a},
	{"KP_Next", 0xff9b}, {"KP_End", 0xff9c}, {"KP_Begin", 0xff9d},
	{"KP_Insert", 0xff9e}, {"KP_Delete", 0xff9f}, {"KP_Multiply", 0xffaa},
	{"KP_Add", 0xffab}, {"KP_Separator", 0xffac}, {"KP_Subtract", 0xffad},
	{"KP_Decimal", 0xffae}, {"KP_Divide", 0xffaf}, {"KP_Equal", 0xffbd},
	{"Shift_L", 0xffe1}, {"Shift_R", 0xffe2}, {"Control_L", 0xffe3},
	{"Control_R", 0xffe4}, {"Caps_Lock", 0xffe5}, {"Shift_Lock", 0xffe6},
	{"Meta_L", 0xffe7}, {"Meta_R", 0xffe8}, {"Alt_L", 0xffe9},
	{"Alt_R", 0xffea}, {"Super_L", 0xffeb}, {"Super_R", 0xffec},
	{"Hyper_L", 0xffed}, {"Hyper_R", 0xffee}, {"ISO_Level3_Shift", 0xfe03},
	{"EuroSign", 0x20ac},
	{"XF86AudioLowerVolume", 0x1008ff11}, {"XF86AudioMute", 0x1008ff12},
	{"XF86AudioRaiseVolume", 0x1008ff13}, {"XF86AudioPlay", 0x1008ff14},
	{"XF86AudioStop", 0x1008ff15}, {"XF86AudioPrev", 0x1008ff16},
	{"XF86AudioNext", 0x1008ff17},
}

// asciiNames holds the names of printable ASCII characters from 0x20 to 0x7e.
// Letters and digits are named after themselves.
var asciiNames = map[rune]string{
	' ': "space", '!': "exclam", '"': "quotedbl", '#': "numbersign",
	'$': "dollar", '%': "percent", '&': "ampersand", '\'': "apostrophe",
	'(': "parenleft", ')': "parenright", '*': "asterisk", '+': "plus",
	',': "comma", '-': "minus", '.': "period", '/': "slash", ':': "colon",
	';': "semicolon", '<': "less", '=': "equal", '>': "greater",
	'?': "question", '@': "at", '[': "bracketleft", '\\': "backslash",
	']': "bracketright", '^': "asciicircum", '_': "underscore",
	'`': "grave", '{': "braceleft", '|': "bar", '}': "braceright",
	'~': "asciitilde",
}

// latin1Names holds the names of the keysyms from 0xa0 to 0xff.
var latin1Names = [96]string{
	"nobreakspace", "exclamdown", "cent", "sterling", "currency", "yen",
	"brokenbar", "section", "diaeresis", "copyright", "ordfeminine",
	"guillemotleft", "notsign", "hyphen", "registered", "macron", "degree",
	"plusminus", "twosuperior", "threesuperior", "acute", "mu", "paragraph",
	"periodcentered", "cedilla", "onesuperior", "masculine",
	"guillemotright", "onequarter", "onehalf", "threequarters",
	"questiondown", "Agrave", "Aacute", "Acircumflex", "Atilde",
	"Adiaeresis", "Aring", "AE", "Ccedilla", "Egrave", "Eacute",
	"Ecircumflex", "Ediaeresis", "Igrave", "Iacute", "Icircumflex",
	"Idiaeresis", "ETH", "Ntilde", "Ograve", "Oacute", "Ocircumflex",
	"Otilde", "Odiaeresis", "multiply", "Oslash", "Ugrave", "Uacute",
	"Ucircumflex", "Udiaeresis", "Yacute", "THORN", "ssharp", "agrave",
	"aacute", "acircumflex", "atilde", "adiaeresis", "aring", "ae",
	"ccedilla", "egrave", "eacute", "ecircumflex", "ediaeresis", "igrave",
	"iacute", "icircumflex", "idiaeresis", "eth", "ntilde", "ograve",
	"oacute", "ocircumflex", "otilde", "odiaeresis", "division", "oslash",
	"ugrave", "uacute", "ucircumflex", "udiaeresis", "yacute", "thorn",
	"ydiaeresis",
}

// legacyKeysyms maps characters outside of Latin-1 to the pre-Unicode keysyms
// layouts commonly use for them.
var legacyKeysyms = map[rune]xproto.Keysym{
	'€': 0x20ac,
}

var (
	keysymsByName  = make(map[string]xproto.Keysym)
	keysymsByLower = make(map[string]xproto.Keysym)
	namesByKeysym  = make(map[xproto.Keysym]string)
)

func init() {
	add := func(name string, sym xproto.Keysym) {
		keysymsByName[name] = sym
		if _, ok := namesByKeysym[sym]; !ok {
			namesByKeysym[sym] = name
		}
	}
	for r, name := range asciiNames {
		add(name, xproto.Keysym(r))
	}
	for i, name := range latin1Names {
		add(name, xproto.Keysym(0xa0+i))
	}
	for _, k := range functionKeys {
		add(k.name, k.sym)
	}
	for i := 0; i < 35; i++ {
		add(fmt.Sprintf("F%d", i+1), xproto.Keysym(0xffbe+i))
	}
	for i := 0; i < 10; i++ {
		add(fmt.Sprintf("KP_%d", i), xproto.Keysym(0xffb0+i))
	}

	// Only names which stay unambiguous when lowercased can be looked up
	// case-insensitively.
	seen := make(map[string]int)
	for name := range keysymsByName {
		seen[strings.ToLower(name)]++
	}
	for name, sym := range keysymsByName {
		if lower := strings.ToLower(name); seen[lower] == 1 {
			keysymsByLower[lower] = sym
		}
	}
}

// RuneKeysym returns the keysym which types the given character, or NoSymbol
// if there is none. Latin-1 characters map directly onto keysyms; everything
// else uses the Unicode keysym range.
func RuneKeysym(r rune) xproto.Keysym {
	switch r {
	case '\n', '\r':
		return XKReturn
	case '\t':
		return XKTab
	case '\b':
		return XKBackSpace
	case 0x1b:
		return XKEscape
	case 0x7f:
		return XKDelete
	}
	switch {
	case r < 0x20, r >= 0x80 && r < 0xa0:
		return NoSymbol
	case r <= 0xff:
		return xproto.Keysym(r)
	case r > utf8.MaxRune || (r >= 0xd800 && r <= 0xdfff):
		return NoSymbol
	}
	return unicodeKeysyms | xproto.Keysym(r)
}

// runeKeysyms returns every keysym which could type the given character, in
// order of preference.
func runeKeysyms(r rune) []xproto.Keysym {
	sym := RuneKeysym(r)
	if sym == NoSymbol {
		return nil
	}
	if legacy, ok := legacyKeysyms[r]; ok {
		return []xproto.Keysym{legacy, sym}
	}
	return []xproto.Keysym{sym}
}

// KeysymByName resolves an X keysym name. Single characters, "U+XXXX"
// code points and "0x" keysym values are accepted as well.
func KeysymByName(name string) (xproto.Keysym, bool) {
	if sym, ok := keysymsByName[name]; ok {
		return sym, true
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		sym := RuneKeysym(r)
		return sym, sym != NoSymbol
	}
	if sym, ok := keysymsByLower[strings.ToLower(name)]; ok {
		return sym, true
	}
	switch {
	case strings.HasPrefix(name, "U+"), strings.HasPrefix(name, "U") && len(name) >= 5:
		cp, err := strconv.ParseUint(strings.TrimPrefix(name[1:], "+"), 16, 32)
		if err != nil {
			return NoSymbol, false
		}
		sym := RuneKeysym(rune(cp))
		return sym, sym != NoSymbol
	case strings.HasPrefix(name, "0x"):
		v, err := strconv.ParseUint(name[2:], 16, 32)
		if err != nil || v == 0 {
			return NoSymbol, false
		}
		return xproto.Keysym(v), true
	}
	return NoSymbol, false
}

// KeysymName returns a printable name for the keysym.
func KeysymName(sym xproto.Keysym) string {
	if name, ok := namesByKeysym[sym]; ok {
		return name
	}
	switch {
	case sym >= '0' && sym <= '9', sym >= 'A' && sym <= 'Z', sym >= 'a' && sym <= 'z':
		return string(rune(sym))
	case sym&0xff000000 == unicodeKeysyms:
		return fmt.Sprintf("U%04X", uint32(sym&^unicodeKeysyms))
	}
	return fmt.Sprintf("0x%x", uint32(sym))
}
