// Package window finds and controls X windows. Windows are located by title,
// class, ID, or through the window manager's notion of the active window, and
// are then manipulated through Window handles.
package window

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/internal/log"
	"github.com/tesselslate/imitator/x11"
)

// MinPollInterval is the shortest interval at which the server is polled when
// waiting for a window.
const MinPollInterval = 10 * time.Millisecond

// ErrNotFound is returned when no window matches a lookup.
var ErrNotFound = errors.New("no matching window")

// Display is the part of the X connection used to inspect and control
// windows.
type Display interface {
	Root() xproto.Window
	Atom(name string) (xproto.Atom, error)
	Supported(name string) (bool, error)

	Property(win xproto.Window, name string, typ xproto.Atom) ([]byte, error)
	PropertyUint32(win xproto.Window, name string, typ xproto.Atom) (uint32, error)
	PropertyWindows(win xproto.Window, name string) ([]xproto.Window, error)
	PropertyAtoms(win xproto.Window, name string) ([]xproto.Atom, error)
	PropertyString(win xproto.Window, name string) (string, error)

	QueryTree(win xproto.Window) (*xproto.QueryTreeReply, error)
	Attributes(win xproto.Window) (*xproto.GetWindowAttributesReply, error)
	Geometry(win xproto.Window) (*xproto.GetGeometryReply, error)
	TranslateCoordinates(src, dst xproto.Window, x, y int16) (int16, int16, error)

	Configure(win xproto.Window, mask uint16, values []uint32) error
	MapWindow(win xproto.Window) error
	UnmapWindow(win xproto.Window) error
	SetInputFocus(win xproto.Window, revert byte) error
	InputFocus() (xproto.Window, error)
	SendClientMessage(win xproto.Window, typ string, data ...uint32) error
	SendProtocolMessage(win xproto.Window, protocol string) error
	DestroyWindow(win xproto.Window) error
	KillClient(win xproto.Window) error
}

// Options configures a Directory.
type Options struct {
	// PollInterval is the interval at which the server is polled by the wait
	// operations. It is raised to MinPollInterval if lower.
	PollInterval time.Duration
	Logger       *log.Logger
}

// Directory looks up windows.
type Directory struct {
	d        Display
	log      *log.Logger
	interval time.Duration
}

// NewDirectory creates a Directory using the given display.
func NewDirectory(d Display, opts Options) *Directory {
	poll := opts.PollInterval
	if poll == 0 {
		poll = 250 * time.Millisecond
	} else if poll < MinPollInterval {
		poll = MinPollInterval
	}
	return &Directory{d, opts.Logger, poll}
}

// Handle returns a handle for the given window ID without checking that the
// window exists.
func (d *Directory) Handle(id xproto.Window) *Window {
	return &Window{dir: d, id: id}
}

// ByID returns a handle for the given window ID. It fails with
// x11.ErrStaleHandle if there is no such window.
func (d *Directory) ByID(id xproto.Window) (*Window, error) {
	w := d.Handle(id)
	if _, err := w.Title(); err != nil {
		return nil, err
	}
	return w, nil
}

// DefaultRoot returns the root window of the default screen.
func (d *Directory) DefaultRoot() *Window {
	return d.Handle(d.d.Root())
}

// ActiveWindow returns the window the window manager considers active. It
// fails with x11.ErrUnsupported if the window manager does not maintain
// _NET_ACTIVE_WINDOW.
func (d *Directory) ActiveWindow() (*Window, error) {
	wins, err := d.d.PropertyWindows(d.d.Root(), "_NET_ACTIVE_WINDOW")
	if errors.Is(err, x11.ErrNoProperty) {
		return nil, fmt.Errorf("active window: _NET_ACTIVE_WINDOW %w", x11.ErrUnsupported)
	} else if err != nil {
		return nil, err
	}
	if len(wins) == 0 || wins[0] == xproto.WindowNone {
		return nil, fmt.Errorf("active window: %w", ErrNotFound)
	}
	return d.ByID(wins[0])
}

// FocusedWindow returns the window holding the input focus. This need not be
// the active window.
func (d *Directory) FocusedWindow() (*Window, error) {
	focus, err := d.d.InputFocus()
	if err != nil {
		return nil, err
	}
	switch focus {
	case xproto.InputFocusNone:
		return nil, fmt.Errorf("focused window: %w", ErrNotFound)
	case xproto.InputFocusPointerRoot:
		return d.DefaultRoot(), nil
	}
	return d.ByID(focus)
}

// List returns every client window. _NET_CLIENT_LIST is used when the window
// manager provides it; otherwise the window tree is searched for windows with
// a WM_STATE property.
func (d *Directory) List() ([]*Window, error) {
	ids, err := d.d.PropertyWindows(d.d.Root(), "_NET_CLIENT_LIST")
	if errors.Is(err, x11.ErrNoProperty) {
		ids, err = d.walk()
	}
	if err != nil {
		return nil, err
	}
	wins := make([]*Window, 0, len(ids))
	for _, id := range ids {
		w := d.Handle(id)
		if _, err := w.Title(); errors.Is(err, x11.ErrStaleHandle) {
			// Destroyed since the list was read.
			continue
		} else if err != nil {
			return nil, err
		}
		wins = append(wins, w)
	}
	return wins, nil
}

// walk searches the window tree breadth first for client windows. If no
// window carries WM_STATE, the children of the root are returned.
func (d *Directory) walk() ([]xproto.Window, error) {
	root := d.d.Root()
	tree, err := d.d.QueryTree(root)
	if err != nil {
		return nil, err
	}
	var clients []xproto.Window
	queue := append([]xproto.Window(nil), tree.Children...)
	for len(queue) > 0 {
		win := queue[0]
		queue = queue[1:]
		_, err := d.d.Property(win, "WM_STATE", xproto.GetPropertyTypeAny)
		switch {
		case err == nil:
			clients = append(clients, win)
			continue
		case errors.Is(err, x11.ErrStaleHandle):
			continue
		case !errors.Is(err, x11.ErrNoProperty):
			return nil, err
		}
		sub, err := d.d.QueryTree(win)
		if errors.Is(err, x11.ErrStaleHandle) {
			continue
		} else if err != nil {
			return nil, err
		}
		queue = append(queue, sub.Children...)
	}
	if len(clients) == 0 {
		return tree.Children, nil
	}
	return clients, nil
}

// FindAll returns every client window whose title matches the pattern.
func (d *Directory) FindAll(re *regexp.Regexp) ([]*Window, error) {
	wins, err := d.List()
	if err != nil {
		return nil, err
	}
	var matches []*Window
	for _, w := range wins {
		if re.MatchString(w.title) {
			matches = append(matches, w)
		}
	}
	return matches, nil
}

// FindAllByClass returns every client window whose WM_CLASS instance or class
// name matches the pattern.
func (d *Directory) FindAllByClass(re *regexp.Regexp) ([]*Window, error) {
	wins, err := d.List()
	if err != nil {
		return nil, err
	}
	var matches []*Window
	for _, w := range wins {
		instance, class, err := w.Class()
		if err != nil {
			continue
		}
		if re.MatchString(instance) || re.MatchString(class) {
			matches = append(matches, w)
		}
	}
	return matches, nil
}

// FindByTitle returns the first client window whose title matches the
// regular expression.
func (d *Directory) FindByTitle(pattern string) (*Window, error) {
	loc, err := Title(pattern)
	if err != nil {
		return nil, err
	}
	return d.Find(loc)
}

// FindByClass returns the first client window whose WM_CLASS instance or
// class name matches the regular expression.
func (d *Directory) FindByClass(pattern string) (*Window, error) {
	loc, err := Class(pattern)
	if err != nil {
		return nil, err
	}
	return d.Find(loc)
}

// Find resolves a Locator to a window.
func (d *Directory) Find(loc Locator) (*Window, error) {
	switch loc.Kind {
	case ByID:
		return d.ByID(loc.ID)
	case Active:
		return d.ActiveWindow()
	case Focused:
		return d.FocusedWindow()
	case Root:
		return d.DefaultRoot(), nil
	case ByTitle:
		matches, err := d.FindAll(loc.Pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", loc, ErrNotFound)
		}
		return matches[0], nil
	case ByClass:
		matches, err := d.FindAllByClass(loc.Pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", loc, ErrNotFound)
		}
		return matches[0], nil
	}
	return nil, fmt.Errorf("invalid locator kind %d", loc.Kind)
}

// WaitForWindow waits for a window whose title matches the regular
// expression to appear. It fails with x11.ErrTimeout once timeout has
// elapsed.
func (d *Directory) WaitForWindow(ctx context.Context, pattern string, timeout time.Duration) (*Window, error) {
	loc, err := Title(pattern)
	if err != nil {
		return nil, err
	}
	return d.Wait(ctx, loc, timeout)
}

// Wait waits for the locator to resolve to a window. It fails with
// x11.ErrTimeout once timeout has elapsed.
func (d *Directory) Wait(ctx context.Context, loc Locator, timeout time.Duration) (*Window, error) {
	var found *Window
	err := d.poll(ctx, timeout, func() (bool, error) {
		w, err := d.Find(loc)
		if errors.Is(err, ErrNotFound) || errors.Is(err, x11.ErrStaleHandle) {
			return false, nil
		} else if err != nil {
			return false, err
		}
		found = w
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	d.log.Debug("Found %s", found)
	return found, nil
}

// poll calls check immediately and then once per poll interval until it
// reports completion, fails, or the timeout expires.
func (d *Directory) poll(ctx context.Context, timeout time.Duration, check func() (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("after %s: %w", timeout, x11.ErrTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
