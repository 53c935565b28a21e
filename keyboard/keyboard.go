// Package keyboard simulates keyboard input. Text is parsed into actions,
// which are resolved against the live keyboard mapping and sent as XTEST
// key events.
//
// Input text may contain escape directives of the form {Name}, such as
// {Tab}, {Enter} or {F5}, and combos such as {Ctrl+a}. Characters which are not present in the keyboard
// mapping can be typed by temporarily binding them to a spare keycode. Such
// bindings last until the call which made them returns.
package keyboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/internal/log"
)

// Options configures a Keyboard.
type Options struct {
	// Charmap overrides how specific characters are typed. It may be nil.
	Charmap *Charmap
	// KeyDelay is slept after every typed character or combo.
	KeyDelay time.Duration
	// MappingDelay is slept after a keycode is rebound.
	MappingDelay time.Duration
	// Remap allows Key to bind keysyms missing from the keyboard mapping.
	Remap bool
	Logger *log.Logger
}

// SimulateOptions configures a single call to Simulate.
type SimulateOptions struct {
	// Remap allows binding characters missing from the keyboard mapping to
	// spare keycodes. Without it, such characters cause a ResolutionError.
	Remap bool
	// Raw disables escape directives.
	Raw bool
}

// Keyboard sends keyboard input. Its methods are safe for concurrent use; calls
// are serialized.
type Keyboard struct {
	d    Display
	opts Options
	log  *log.Logger

	mu   sync.Mutex
	held map[xproto.Keysym]xproto.Keycode
}

// New creates a Keyboard which sends input through d.
func New(d Display, opts Options) *Keyboard {
	return &Keyboard{
		d:    d,
		opts: opts,
		log:  opts.Logger,
		held: make(map[xproto.Keysym]xproto.Keycode),
	}
}

// Simulate types the given text. Escape directives are validated before any
// key event is sent. A ResolutionError may occur after part of the text has
// already been typed.
func (k *Keyboard) Simulate(text string, opts SimulateOptions) (err error) {
	actions, err := Parse(text, opts.Raw)
	if err != nil {
		return err
	}
	actions = k.applyCharmap(actions)

	k.mu.Lock()
	defer k.mu.Unlock()
	r, err := newResolver(k.d, k.opts.MappingDelay, k.log)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := r.release(); relErr != nil {
			k.log.Error("Failed to release keymap slots: %s", relErr)
			err = errors.Join(err, relErr)
		}
	}()

	k.log.Debug("Typing %d actions (remap=%t, raw=%t)", len(actions), opts.Remap, opts.Raw)
	for i, action := range actions {
		if err := k.emit(r, action, opts.Remap); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		if k.opts.KeyDelay > 0 {
			time.Sleep(k.opts.KeyDelay)
		}
	}
	return k.d.Sync()
}

// Key presses the given "Mod1+Mod2+...+Base" combination once and returns the
// names of the keys which were pressed.
func (k *Keyboard) Key(combo string) (keys []string, err error) {
	action, err := ParseCombo(combo)
	if err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	r, err := newResolver(k.d, k.opts.MappingDelay, k.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := r.release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()
	if err := k.emit(r, action, k.opts.Remap); err != nil {
		return nil, err
	}
	if err := k.d.Sync(); err != nil {
		return nil, err
	}
	for _, mod := range action.Mods {
		keys = append(keys, KeysymName(mod))
	}
	return append(keys, KeysymName(action.Keysym)), nil
}

// Down presses a single key without releasing it.
func (k *Keyboard) Down(key string) error {
	return k.hold(key, Press)
}

// Up releases a key previously pressed with Down.
func (k *Keyboard) Up(key string) error {
	return k.hold(key, Release)
}

// Delete presses Delete if forward is set, or BackSpace otherwise.
func (k *Keyboard) Delete(forward bool) error {
	if forward {
		_, err := k.Key("Delete")
		return err
	}
	_, err := k.Key("BackSpace")
	return err
}

// hold sends a single press or release. Held keys are never bound to spare
// keycodes, since the binding would have to outlive the call.
func (k *Keyboard) hold(key string, dir Direction) error {
	sym, err := parseKey(key)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	// Releasing a key pressed through Down needs no lookup.
	var r *resolver
	if _, ok := k.held[sym]; !ok || dir == Press {
		if r, err = newResolver(k.d, 0, k.log); err != nil {
			return err
		}
	}
	action := Action{Kind: Hold, Keysym: sym, Dir: dir, Name: key}
	if err := k.emit(r, action, false); err != nil {
		return err
	}
	return k.d.Sync()
}

// applyCharmap replaces literal characters which have a charmap entry with
// the entry's combo.
func (k *Keyboard) applyCharmap(actions []Action) []Action {
	if k.opts.Charmap.Len() == 0 {
		return actions
	}
	for i, action := range actions {
		if action.Kind != Literal {
			continue
		}
		if combo, ok := k.opts.Charmap.Lookup(action.Rune); ok {
			combo.Name = action.Name
			actions[i] = combo
		}
	}
	return actions
}

// emit sends the key events for a single action.
func (k *Keyboard) emit(r *resolver, action Action, remap bool) error {
	switch action.Kind {
	case Literal:
		ks, err := r.resolve(action.Rune, runeKeysyms(action.Rune), remap)
		if err != nil {
			return err
		}
		return k.tap(r, nil, ks)
	case Combo:
		mods := make([]xproto.Keycode, 0, len(action.Mods))
		for _, mod := range action.Mods {
			ks, err := r.resolve(0, []xproto.Keysym{mod}, false)
			if err != nil {
				return err
			}
			mods = append(mods, ks.code)
		}
		ks, err := r.resolve(0, []xproto.Keysym{action.Keysym}, remap)
		if err != nil {
			return err
		}
		return k.tap(r, mods, ks)
	case Hold:
		code, ok := k.held[action.Keysym]
		if !ok || action.Dir == Press {
			ks, err := r.resolve(0, []xproto.Keysym{action.Keysym}, false)
			if err != nil {
				return err
			}
			code = ks.code
		}
		if err := k.d.FakeKey(code, action.Dir == Press); err != nil {
			return err
		}
		if action.Dir == Press {
			k.held[action.Keysym] = code
		} else {
			delete(k.held, action.Keysym)
		}
		return nil
	}
	return fmt.Errorf("unknown action kind %d", action.Kind)
}

// tap presses the modifiers in order, presses and releases the key, then
// releases the modifiers in reverse order. Shift is added if the key is in
// the shifted column and no modifiers were requested.
func (k *Keyboard) tap(r *resolver, mods []xproto.Keycode, ks keystroke) error {
	if ks.shift && len(mods) == 0 {
		shift, err := r.resolve(0, []xproto.Keysym{XKShiftL}, false)
		if err != nil {
			return err
		}
		mods = []xproto.Keycode{shift.code}
	}
	for _, mod := range mods {
		if err := k.d.FakeKey(mod, true); err != nil {
			return err
		}
	}
	if err := k.d.FakeKey(ks.code, true); err != nil {
		return err
	}
	if err := k.d.FakeKey(ks.code, false); err != nil {
		return err
	}
	for i := len(mods) - 1; i >= 0; i-- {
		if err := k.d.FakeKey(mods[i], false); err != nil {
			return err
		}
	}
	return nil
}
