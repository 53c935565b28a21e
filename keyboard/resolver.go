package keyboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/internal/log"
	"github.com/tesselslate/imitator/x11"
)

// Display is the part of the X connection used for keyboard input.
type Display interface {
	KeyboardMapping() (x11.KeyboardMapping, error)
	ChangeKeyboardMapping(code xproto.Keycode, syms []xproto.Keysym) error
	FakeKey(code xproto.Keycode, down bool) error
	Sync() error
}

// keystroke describes how to produce a keysym.
type keystroke struct {
	code      xproto.Keycode
	shift     bool // The keysym is in the shifted column
	transient bool // The keycode was rebound for this call
}

// slot is a keycode with no keysyms which can be rebound temporarily.
type slot struct {
	code  xproto.Keycode
	sym   xproto.Keysym // NoSymbol while unbound
	touch uint64
}

// resolver maps keysyms onto keycodes for the duration of one call. Keysyms
// missing from the keyboard mapping are bound to slots from an arena of spare
// keycodes; every binding is undone by release.
type resolver struct {
	d       Display
	log     *log.Logger
	delay   time.Duration
	mapping x11.KeyboardMapping
	index   map[xproto.Keysym]keystroke
	arena   []slot
	bound   map[xproto.Keysym]int
	clock   uint64
}

func newResolver(d Display, delay time.Duration, logger *log.Logger) (*resolver, error) {
	mapping, err := d.KeyboardMapping()
	if err != nil {
		return nil, err
	}
	r := &resolver{
		d:       d,
		log:     logger,
		delay:   delay,
		mapping: mapping,
		index:   make(map[xproto.Keysym]keystroke),
		bound:   make(map[xproto.Keysym]int),
	}

	// Keycodes are visited in ascending order so that the lowest keycode and
	// column wins when a keysym appears more than once.
	cols := mapping.PerKeycode
	if cols > 2 {
		cols = 2
	}
	for code := int(mapping.MinKeycode); code <= int(mapping.MaxKeycode()); code++ {
		kc := xproto.Keycode(code)
		empty := true
		for col := 0; col < mapping.PerKeycode; col++ {
			if mapping.Keysym(kc, col) != NoSymbol {
				empty = false
				break
			}
		}
		if empty {
			r.arena = append(r.arena, slot{code: kc})
			continue
		}
		for col := 0; col < cols; col++ {
			sym := mapping.Keysym(kc, col)
			if sym == NoSymbol {
				continue
			}
			if _, ok := r.index[sym]; !ok {
				r.index[sym] = keystroke{code: kc, shift: col == 1}
			}
		}
	}
	return r, nil
}

// lookup returns the keystroke for a keysym without changing the mapping.
func (r *resolver) lookup(sym xproto.Keysym) (keystroke, bool) {
	if ks, ok := r.index[sym]; ok {
		return ks, true
	}
	if i, ok := r.bound[sym]; ok {
		r.clock++
		r.arena[i].touch = r.clock
		return keystroke{code: r.arena[i].code, transient: true}, true
	}
	return keystroke{}, false
}

// resolve returns the keystroke for the first keysym in syms which can be
// produced. If none can and remap is set, the last keysym is bound to a
// spare keycode. syms lists legacy keysyms before the Unicode one.
func (r *resolver) resolve(char rune, syms []xproto.Keysym, remap bool) (keystroke, error) {
	if len(syms) == 0 {
		return keystroke{}, &ResolutionError{Rune: char}
	}
	for _, sym := range syms {
		if ks, ok := r.lookup(sym); ok {
			return ks, nil
		}
	}
	primary := syms[len(syms)-1]
	if !remap {
		return keystroke{}, &ResolutionError{Rune: char, Keysym: primary}
	}
	ks, err := r.bind(primary)
	if err != nil {
		return keystroke{}, &ResolutionError{Rune: char, Keysym: primary, Err: err}
	}
	return ks, nil
}

// bind binds sym to a spare keycode. An unbound slot with the lowest keycode
// is preferred; otherwise the least recently used binding is replaced.
func (r *resolver) bind(sym xproto.Keysym) (keystroke, error) {
	if len(r.arena) == 0 {
		return keystroke{}, ErrNoFreeKeycode
	}
	victim := -1
	for i := range r.arena {
		if r.arena[i].sym == NoSymbol {
			victim = i
			break
		}
		if victim == -1 || r.arena[i].touch < r.arena[victim].touch {
			victim = i
		}
	}
	s := &r.arena[victim]
	if s.sym != NoSymbol {
		// Key events which use the old binding must be processed first.
		if err := r.d.Sync(); err != nil {
			return keystroke{}, err
		}
		delete(r.bound, s.sym)
	}

	syms := make([]xproto.Keysym, r.mapping.PerKeycode)
	for i := range syms {
		syms[i] = sym
	}
	if err := r.d.ChangeKeyboardMapping(s.code, syms); err != nil {
		return keystroke{}, err
	}
	r.log.Verbose("Bound keysym %s to spare keycode %d", KeysymName(sym), s.code)
	s.sym = sym
	r.clock++
	s.touch = r.clock
	r.bound[sym] = victim

	// Give clients time to process the MappingNotify before the key is used.
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return keystroke{code: s.code, transient: true}, nil
}

// release resets every keycode bound by this resolver to NoSymbol.
func (r *resolver) release() error {
	if len(r.bound) == 0 {
		return nil
	}
	if err := r.d.Sync(); err != nil {
		return fmt.Errorf("release keymap slots: %w", err)
	}
	var errs []error
	for i := range r.arena {
		s := &r.arena[i]
		if s.sym == NoSymbol {
			continue
		}
		syms := make([]xproto.Keysym, r.mapping.PerKeycode)
		if err := r.d.ChangeKeyboardMapping(s.code, syms); err != nil {
			errs = append(errs, err)
			continue
		}
		r.log.Verbose("Released spare keycode %d (%s)", s.code, KeysymName(s.sym))
		delete(r.bound, s.sym)
		s.sym = NoSymbol
	}
	return errors.Join(errs...)
}
