// Package selection implements an X selection owner. Text written to a
// selection is served to other clients from a background responder until the
// selection is cleared or another client takes it over.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/internal/log"
	"github.com/tesselslate/imitator/x11"
)

// Name is the name of a selection.
type Name string

const (
	Clipboard Name = "CLIPBOARD"
	Primary   Name = "PRIMARY"
	Secondary Name = "SECONDARY"
)

// Names lists every selection the service manages.
var Names = []Name{Clipboard, Primary, Secondary}

// ErrOwnershipLost is returned when another client took over a selection
// owned by this process.
var ErrOwnershipLost = errors.New("selection ownership lost to another client")

// ErrNotOwner is returned by operations which require owning the selection.
var ErrNotOwner = errors.New("selection is not owned by this process")

// ParseName converts a selection name such as "clipboard" or "p" into a
// Name.
func ParseName(s string) (Name, error) {
	switch strings.ToUpper(s) {
	case "CLIPBOARD", "C", "":
		return Clipboard, nil
	case "PRIMARY", "P":
		return Primary, nil
	case "SECONDARY", "S":
		return Secondary, nil
	}
	return "", fmt.Errorf("unknown selection %q", s)
}

// Display is the part of the X connection used for selections.
type Display interface {
	Atom(name string) (xproto.Atom, error)
	AtomName(atom xproto.Atom) (string, error)
	CreateWindow() (xproto.Window, error)
	DestroyWindow(win xproto.Window) error
	Listen(win xproto.Window) (<-chan xgb.Event, func())
	SetSelectionOwner(owner xproto.Window, sel xproto.Atom, t xproto.Timestamp) error
	SelectionOwner(sel xproto.Atom) (xproto.Window, error)
	ConvertSelection(requestor xproto.Window, sel, target, prop xproto.Atom, t xproto.Timestamp) error
	ChangeProperty(win xproto.Window, mode byte, prop, typ xproto.Atom, format byte, data []byte) error
	GetProperty(win xproto.Window, prop xproto.Atom, del bool) (*xproto.GetPropertyReply, error)
	DeleteProperty(win xproto.Window, prop xproto.Atom) error
	SendSelectionNotify(evt xproto.SelectionNotifyEvent) error
	MaxPropertySize() int
}

// State is the ownership state of a selection.
type State int

const (
	Unowned State = iota
	Owned
	Lost
)

func (s State) String() string {
	switch s {
	case Owned:
		return "owned"
	case Lost:
		return "lost"
	default:
		return "unowned"
	}
}

// Status describes the ownership of a selection by this process.
type Status struct {
	State   State
	Session uuid.UUID // Zero unless the selection is or was owned
	Since   time.Time
	Size    int
}

// Options configures a Service.
type Options struct {
	// Timeout bounds every wait for a reply from another client.
	Timeout time.Duration
	Logger  *log.Logger
}

// Service owns and reads selections. Each selection is independent: calls for
// different selections do not wait for each other.
type Service struct {
	d       Display
	log     *log.Logger
	timeout time.Duration

	mu    sync.Mutex
	locks map[Name]*sync.Mutex
	owned map[Name]*ownership
	wg    sync.WaitGroup
}

// New creates a Service using the given display.
func New(d Display, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	s := &Service{
		d:       d,
		log:     opts.Logger,
		timeout: opts.Timeout,
		locks:   make(map[Name]*sync.Mutex),
		owned:   make(map[Name]*ownership),
	}
	for _, name := range Names {
		s.locks[name] = &sync.Mutex{}
	}
	return s
}

func (s *Service) lock(name Name) (func(), error) {
	l, ok := s.locks[name]
	if !ok {
		return nil, fmt.Errorf("unknown selection %q", name)
	}
	l.Lock()
	return l.Unlock, nil
}

func (s *Service) current(name Name) *ownership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned[name]
}

// Write claims the selection and serves text to other clients until the
// selection is cleared or taken over. Writing to a selection which is
// already owned replaces the served text.
func (s *Service) Write(name Name, text string) error {
	unlock, err := s.lock(name)
	if err != nil {
		return err
	}
	defer unlock()

	data := []byte(text)
	if limit := s.d.MaxPropertySize(); len(data) > limit {
		return fmt.Errorf("selection text is %d bytes, larger than the %d byte limit", len(data), limit)
	}

	if o := s.current(name); o != nil && o.update(data) {
		owner, err := s.d.SelectionOwner(o.atom)
		if err != nil {
			return err
		}
		if owner == o.win {
			s.log.Debug("Replaced %s contents (session %s, %d bytes)", name, o.session, len(data))
			return nil
		}
		// Ownership changed hands before the responder noticed.
		o.release()
	}

	o, err := s.claim(name, data)
	if err != nil {
		return fmt.Errorf("claim %s: %w", name, err)
	}
	s.mu.Lock()
	s.owned[name] = o
	s.mu.Unlock()
	return nil
}

// Read returns the contents of the selection, whichever client owns it. An
// unowned selection reads as the empty string.
func (s *Service) Read(name Name) (string, error) {
	atom, err := s.d.Atom(string(name))
	if err != nil {
		return "", err
	}
	owner, err := s.d.SelectionOwner(atom)
	if err != nil {
		return "", err
	}
	if owner == xproto.WindowNone {
		return "", nil
	}

	r, err := s.newRequestor()
	if err != nil {
		return "", err
	}
	defer r.close()
	for _, target := range []string{targetUTF8, targetString} {
		data, typ, err := r.convert(atom, target)
		if errors.Is(err, errRefused) {
			continue
		} else if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		if typ == xproto.AtomString {
			return decodeLatin1(data), nil
		}
		return string(data), nil
	}
	return "", fmt.Errorf("read %s: %w: owner refused text conversion", name, x11.ErrUnsupported)
}

// Clear releases the selection. If another client owns it, its ownership is
// cleared as well.
func (s *Service) Clear(name Name) error {
	unlock, err := s.lock(name)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	o := s.owned[name]
	delete(s.owned, name)
	s.mu.Unlock()
	if o != nil {
		o.release()
	}

	atom, err := s.d.Atom(string(name))
	if err != nil {
		return err
	}
	if err := s.d.SetSelectionOwner(xproto.WindowNone, atom, xproto.TimeCurrentTime); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	s.log.Info("Cleared %s", name)
	return nil
}

// Status returns the ownership state of the selection.
func (s *Service) Status(name Name) Status {
	o := s.current(name)
	if o == nil {
		return Status{State: Unowned}
	}
	st := Status{Session: o.session, Since: o.since, Size: o.size()}
	select {
	case <-o.done:
		if o.wasLost() {
			st.State = Lost
		}
	default:
		st.State = Owned
	}
	return st
}

// Wait blocks until this process stops owning the selection. It returns
// ErrOwnershipLost if another client took the selection over, and nil if it
// was cleared or was not owned.
func (s *Service) Wait(ctx context.Context, name Name) error {
	o := s.current(name)
	if o == nil {
		return nil
	}
	select {
	case <-o.done:
		if o.wasLost() {
			return ErrOwnershipLost
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops serving every selection and waits for all responders to exit.
// Selections owned by this process become unowned.
func (s *Service) Close() {
	s.mu.Lock()
	owned := s.owned
	s.owned = make(map[Name]*ownership)
	s.mu.Unlock()
	for _, o := range owned {
		o.release()
	}
	s.wg.Wait()
}

// claim takes ownership of the selection and starts its responder.
func (s *Service) claim(name Name, data []byte) (*ownership, error) {
	atom, err := s.d.Atom(string(name))
	if err != nil {
		return nil, err
	}
	win, err := s.d.CreateWindow()
	if err != nil {
		return nil, err
	}
	events, cancel := s.d.Listen(win)
	fail := func(err error) (*ownership, error) {
		cancel()
		if derr := s.d.DestroyWindow(win); derr != nil {
			s.log.Warn("Failed to destroy selection window: %s", derr)
		}
		return nil, err
	}

	ts, err := s.timestamp(win, events)
	if err != nil {
		return fail(err)
	}
	if err := s.d.SetSelectionOwner(win, atom, ts); err != nil {
		return fail(err)
	}
	owner, err := s.d.SelectionOwner(atom)
	if err != nil {
		return fail(err)
	}
	if owner != win {
		return fail(fmt.Errorf("ownership was not granted (owner is 0x%x)", owner))
	}

	o := &ownership{
		name:    name,
		atom:    atom,
		win:     win,
		time:    ts,
		session: uuid.New(),
		since:   time.Now(),
		mailbox: make(chan []byte),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		events:  events,
		cancel:  cancel,
	}
	o.setSize(len(data))
	s.log.Info("Claimed %s (session %s, %d bytes)", name, o.session, len(data))
	s.wg.Add(1)
	go s.serve(o, data)
	return o, nil
}

// timestamp obtains a server timestamp by appending nothing to a property of
// win and waiting for the resulting PropertyNotify.
func (s *Service) timestamp(win xproto.Window, events <-chan xgb.Event) (xproto.Timestamp, error) {
	prop, err := s.d.Atom(propTimestamp)
	if err != nil {
		return 0, err
	}
	if err := s.d.ChangeProperty(win, xproto.PropModeAppend, prop, xproto.AtomString, 8, nil); err != nil {
		return 0, err
	}
	evt, err := waitFor(events, s.timeout, func(evt xgb.Event) bool {
		notify, ok := evt.(xproto.PropertyNotifyEvent)
		return ok && notify.Atom == prop
	})
	if err != nil {
		return 0, fmt.Errorf("get server time: %w", err)
	}
	return evt.(xproto.PropertyNotifyEvent).Time, nil
}

// waitFor returns the first event accepted by match.
func waitFor(events <-chan xgb.Event, timeout time.Duration, match func(xgb.Event) bool) (xgb.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil, x11.ErrConnectionDied
			}
			if match(evt) {
				return evt, nil
			}
		case <-timer.C:
			return nil, x11.ErrTimeout
		}
	}
}
