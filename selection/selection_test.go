package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/internal/log"
	"github.com/tesselslate/imitator/x11"
)

type propKey struct {
	win  xproto.Window
	prop xproto.Atom
}

// fakeServer implements enough of the X selection protocol to let several
// Services, standing in for separate clients, exchange selections.
type fakeServer struct {
	mu        sync.Mutex
	atoms     map[string]xproto.Atom
	names     map[xproto.Atom]string
	nextAtom  xproto.Atom
	nextWin   xproto.Window
	listeners map[xproto.Window][]chan xgb.Event
	owners    map[xproto.Atom]xproto.Window
	props     map[propKey]*xproto.GetPropertyReply
	time      xproto.Timestamp
}

func newFakeServer() *fakeServer {
	f := &fakeServer{
		atoms:     make(map[string]xproto.Atom),
		names:     make(map[xproto.Atom]string),
		nextAtom:  100,
		nextWin:   0x400000,
		listeners: make(map[xproto.Window][]chan xgb.Event),
		owners:    make(map[xproto.Atom]xproto.Window),
		props:     make(map[propKey]*xproto.GetPropertyReply),
		time:      1000,
	}
	predefined := map[string]xproto.Atom{
		"PRIMARY":   xproto.AtomPrimary,
		"SECONDARY": xproto.AtomSecondary,
		"ATOM":      xproto.AtomAtom,
		"INTEGER":   xproto.AtomInteger,
		"STRING":    xproto.AtomString,
	}
	for name, atom := range predefined {
		f.atoms[name] = atom
		f.names[atom] = name
	}
	return f
}

func (f *fakeServer) lock()   { f.mu.Lock() }
func (f *fakeServer) unlock() { f.mu.Unlock() }

// deliver sends evt to every listener of win. It must be called without the
// lock held, since listeners call back into the server.
func (f *fakeServer) deliver(win xproto.Window, evt xgb.Event) {
	f.lock()
	chans := append([]chan xgb.Event(nil), f.listeners[win]...)
	f.unlock()
	for _, ch := range chans {
		ch <- evt
	}
}

func (f *fakeServer) Atom(name string) (xproto.Atom, error) {
	f.lock()
	defer f.unlock()
	if atom, ok := f.atoms[name]; ok {
		return atom, nil
	}
	f.nextAtom++
	f.atoms[name] = f.nextAtom
	f.names[f.nextAtom] = name
	return f.nextAtom, nil
}

func (f *fakeServer) AtomName(atom xproto.Atom) (string, error) {
	f.lock()
	defer f.unlock()
	name, ok := f.names[atom]
	if !ok {
		return "", errors.New("bad atom")
	}
	return name, nil
}

func (f *fakeServer) CreateWindow() (xproto.Window, error) {
	f.lock()
	defer f.unlock()
	f.nextWin++
	return f.nextWin, nil
}

func (f *fakeServer) DestroyWindow(win xproto.Window) error {
	f.lock()
	defer f.unlock()
	for sel, owner := range f.owners {
		if owner == win {
			delete(f.owners, sel)
		}
	}
	for key := range f.props {
		if key.win == win {
			delete(f.props, key)
		}
	}
	return nil
}

func (f *fakeServer) Listen(win xproto.Window) (<-chan xgb.Event, func()) {
	ch := make(chan xgb.Event, 64)
	f.lock()
	f.listeners[win] = append(f.listeners[win], ch)
	f.unlock()
	return ch, func() {
		f.lock()
		defer f.unlock()
		list := f.listeners[win]
		for i, c := range list {
			if c == ch {
				f.listeners[win] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

func (f *fakeServer) SetSelectionOwner(owner xproto.Window, sel xproto.Atom, t xproto.Timestamp) error {
	f.lock()
	old := f.owners[sel]
	if owner == xproto.WindowNone {
		delete(f.owners, sel)
	} else {
		f.owners[sel] = owner
	}
	f.unlock()
	if old != xproto.WindowNone && old != owner {
		f.deliver(old, xproto.SelectionClearEvent{Time: t, Owner: old, Selection: sel})
	}
	return nil
}

func (f *fakeServer) SelectionOwner(sel xproto.Atom) (xproto.Window, error) {
	f.lock()
	defer f.unlock()
	return f.owners[sel], nil
}

func (f *fakeServer) ConvertSelection(requestor xproto.Window, sel, target, prop xproto.Atom, t xproto.Timestamp) error {
	f.lock()
	owner := f.owners[sel]
	f.unlock()
	if owner == xproto.WindowNone {
		f.deliver(requestor, xproto.SelectionNotifyEvent{
			Time:      t,
			Requestor: requestor,
			Selection: sel,
			Target:    target,
			Property:  xproto.AtomNone,
		})
		return nil
	}
	f.deliver(owner, xproto.SelectionRequestEvent{
		Time:      t,
		Owner:     owner,
		Requestor: requestor,
		Selection: sel,
		Target:    target,
		Property:  prop,
	})
	return nil
}

func (f *fakeServer) ChangeProperty(win xproto.Window, mode byte, prop, typ xproto.Atom, format byte, data []byte) error {
	f.lock()
	key := propKey{win, prop}
	reply, ok := f.props[key]
	if !ok || mode == xproto.PropModeReplace {
		reply = &xproto.GetPropertyReply{Format: format, Type: typ}
		f.props[key] = reply
	}
	reply.Value = append(reply.Value, data...)
	reply.ValueLen = uint32(len(reply.Value)) / uint32(format/8)
	f.time++
	t := f.time
	f.unlock()
	f.deliver(win, xproto.PropertyNotifyEvent{Window: win, Atom: prop, Time: t, State: xproto.PropertyNewValue})
	return nil
}

func (f *fakeServer) GetProperty(win xproto.Window, prop xproto.Atom, del bool) (*xproto.GetPropertyReply, error) {
	f.lock()
	key := propKey{win, prop}
	reply, ok := f.props[key]
	if !ok {
		f.unlock()
		return &xproto.GetPropertyReply{}, nil
	}
	out := *reply
	out.Value = append([]byte(nil), reply.Value...)
	if del {
		delete(f.props, key)
	}
	f.time++
	t := f.time
	f.unlock()
	if del {
		f.deliver(win, xproto.PropertyNotifyEvent{Window: win, Atom: prop, Time: t, State: xproto.PropertyDelete})
	}
	return &out, nil
}

func (f *fakeServer) DeleteProperty(win xproto.Window, prop xproto.Atom) error {
	f.lock()
	defer f.unlock()
	delete(f.props, propKey{win, prop})
	return nil
}

func (f *fakeServer) SendSelectionNotify(evt xproto.SelectionNotifyEvent) error {
	f.deliver(evt.Requestor, evt)
	return nil
}

func (f *fakeServer) MaxPropertySize() int {
	return 1 << 16
}

func newService(f *fakeServer) *Service {
	return New(f, Options{Timeout: time.Second, Logger: log.Discard()})
}

func mustRead(t *testing.T, s *Service, name Name) string {
	t.Helper()
	text, err := s.Read(name)
	if err != nil {
		t.Fatalf("read %s: %s", name, err)
	}
	return text
}

func TestWriteRead(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()

	if err := s.Write(Clipboard, "hello, wörld"); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, s, Clipboard); got != "hello, wörld" {
		t.Fatalf("got %q", got)
	}
	st := s.Status(Clipboard)
	if st.State != Owned || st.Size != len("hello, wörld") {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRewriteKeepsSession(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()

	if err := s.Write(Clipboard, "one"); err != nil {
		t.Fatal(err)
	}
	session := s.Status(Clipboard).Session
	if err := s.Write(Clipboard, "two"); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, s, Clipboard); got != "two" {
		t.Fatalf("got %q, want two", got)
	}
	if s.Status(Clipboard).Session != session {
		t.Fatal("rewriting an owned selection started a new session")
	}
}

func TestReadUnowned(t *testing.T) {
	s := newService(newFakeServer())
	defer s.Close()
	if got := mustRead(t, s, Primary); got != "" {
		t.Fatalf("got %q from unowned selection", got)
	}
}

func TestClear(t *testing.T) {
	s := newService(newFakeServer())
	defer s.Close()

	if err := s.Write(Clipboard, "x"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(Clipboard); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, s, Clipboard); got != "" {
		t.Fatalf("got %q after clear", got)
	}
	if st := s.Status(Clipboard); st.State != Unowned {
		t.Fatalf("got state %s after clear", st.State)
	}
	if err := s.Wait(context.Background(), Clipboard); err != nil {
		t.Fatalf("wait after clear: %s", err)
	}
}

func TestForeignClaim(t *testing.T) {
	f := newFakeServer()
	local, foreign := newService(f), newService(f)
	defer local.Close()
	defer foreign.Close()

	if err := local.Write(Clipboard, "local"); err != nil {
		t.Fatal(err)
	}
	if err := foreign.Write(Clipboard, "foreign"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := local.Wait(ctx, Clipboard); !errors.Is(err, ErrOwnershipLost) {
		t.Fatalf("got %v, want ErrOwnershipLost", err)
	}
	if st := local.Status(Clipboard); st.State != Lost {
		t.Fatalf("got state %s, want lost", st.State)
	}
	if got := mustRead(t, local, Clipboard); got != "foreign" {
		t.Fatalf("got %q, want foreign", got)
	}

	// Writing again takes the selection back.
	if err := local.Write(Clipboard, "again"); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, foreign, Clipboard); got != "again" {
		t.Fatalf("got %q, want again", got)
	}
}

func TestClearForeign(t *testing.T) {
	f := newFakeServer()
	local, foreign := newService(f), newService(f)
	defer local.Close()
	defer foreign.Close()

	if err := foreign.Write(Primary, "theirs"); err != nil {
		t.Fatal(err)
	}
	if err := local.Clear(Primary); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, local, Primary); got != "" {
		t.Fatalf("got %q after clearing foreign owner", got)
	}
}

func TestIndependentSelections(t *testing.T) {
	s := newService(newFakeServer())
	defer s.Close()

	if err := s.Write(Clipboard, "clip"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(Primary, "prim"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(Primary); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, s, Clipboard); got != "clip" {
		t.Fatalf("got %q, want clip", got)
	}
	if got := mustRead(t, s, Primary); got != "" {
		t.Fatalf("got %q, want empty primary", got)
	}
}

// convertRaw requests a target from the selection owner the way a foreign
// client would and returns the reply.
func convertRaw(t *testing.T, f *fakeServer, sel xproto.Atom, target string) *xproto.GetPropertyReply {
	t.Helper()
	win, _ := f.CreateWindow()
	events, cancel := f.Listen(win)
	defer cancel()
	targetAtom, _ := f.Atom(target)
	prop, _ := f.Atom("RAW")
	if err := f.ConvertSelection(win, sel, targetAtom, prop, xproto.TimeCurrentTime); err != nil {
		t.Fatal(err)
	}
	evt, err := waitFor(events, time.Second, func(evt xgb.Event) bool {
		_, ok := evt.(xproto.SelectionNotifyEvent)
		return ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if evt.(xproto.SelectionNotifyEvent).Property == xproto.AtomNone {
		return nil
	}
	reply, _ := f.GetProperty(win, prop, true)
	return reply
}

func TestTargets(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()

	if err := s.Write(Clipboard, "é€"); err != nil {
		t.Fatal(err)
	}
	clip, _ := f.Atom("CLIPBOARD")

	reply := convertRaw(t, f, clip, targetTargets)
	if reply == nil || reply.Type != xproto.AtomAtom || reply.Format != 32 {
		t.Fatalf("unexpected TARGETS reply %+v", reply)
	}
	utf8, _ := f.Atom(targetUTF8)
	found := false
	for _, atom := range decodeWords(reply.Value) {
		if xproto.Atom(atom) == utf8 {
			found = true
		}
	}
	if !found {
		t.Fatal("TARGETS does not list UTF8_STRING")
	}

	reply = convertRaw(t, f, clip, targetString)
	if reply == nil || string(reply.Value) != "\xe9?" {
		t.Fatalf("unexpected STRING reply %+v", reply)
	}

	if reply = convertRaw(t, f, clip, "image/png"); reply != nil {
		t.Fatalf("unsupported target was converted: %+v", reply)
	}
}

func TestTooLarge(t *testing.T) {
	s := newService(newFakeServer())
	defer s.Close()
	if err := s.Write(Clipboard, string(make([]byte, 1<<17))); err == nil {
		t.Fatal("expected error for oversized buffer")
	}
	if st := s.Status(Clipboard); st.State != Unowned {
		t.Fatalf("got state %s after failed write", st.State)
	}
}

func TestPersistWithoutManager(t *testing.T) {
	s := newService(newFakeServer())
	defer s.Close()
	if err := s.Persist(Clipboard); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
	if err := s.Write(Clipboard, "x"); err != nil {
		t.Fatal(err)
	}
	if err := s.Persist(Clipboard); !errors.Is(err, x11.ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
}

type saved struct {
	targets []string
	text    string
	err     error
}

// runManager claims CLIPBOARD_MANAGER and answers SAVE_TARGETS requests by
// reading the clipboard the way a clipboard manager would.
func runManager(t *testing.T, f *fakeServer) <-chan saved {
	t.Helper()
	out := make(chan saved, 1)
	win, _ := f.CreateWindow()
	events, cancel := f.Listen(win)
	mgr, _ := f.Atom(clipboardManager)
	if err := f.SetSelectionOwner(win, mgr, xproto.TimeCurrentTime); err != nil {
		t.Fatal(err)
	}
	clip, _ := f.Atom("CLIPBOARD")
	utf8, _ := f.Atom(targetUTF8)
	prop, _ := f.Atom("SAVED")

	go func() {
		defer cancel()
		evt, err := waitFor(events, 2*time.Second, func(evt xgb.Event) bool {
			_, ok := evt.(xproto.SelectionRequestEvent)
			return ok
		})
		if err != nil {
			out <- saved{err: err}
			return
		}
		req := evt.(xproto.SelectionRequestEvent)
		var res saved
		reply, _ := f.GetProperty(req.Requestor, req.Property, false)
		if reply.Type == xproto.AtomAtom && reply.Format == 32 {
			for _, atom := range decodeWords(reply.Value) {
				name, _ := f.AtomName(xproto.Atom(atom))
				res.targets = append(res.targets, name)
			}
		}

		f.ConvertSelection(win, clip, utf8, prop, xproto.TimeCurrentTime)
		if _, err := waitFor(events, time.Second, func(evt xgb.Event) bool {
			notify, ok := evt.(xproto.SelectionNotifyEvent)
			return ok && notify.Selection == clip
		}); err != nil {
			out <- saved{err: err}
			return
		}
		data, _ := f.GetProperty(win, prop, true)
		res.text = string(data.Value)

		f.SendSelectionNotify(xproto.SelectionNotifyEvent{
			Requestor: req.Requestor,
			Selection: req.Selection,
			Target:    req.Target,
			Property:  req.Property,
		})
		out <- res
	}()
	return out
}

func TestPersist(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()
	result := runManager(t, f)

	if err := s.Write(Clipboard, "keep me"); err != nil {
		t.Fatal(err)
	}
	if err := s.Persist(Clipboard); err != nil {
		t.Fatal(err)
	}
	res := <-result
	if res.err != nil {
		t.Fatal(res.err)
	}
	if len(res.targets) != 2 || res.targets[0] != targetUTF8 || res.targets[1] != targetString {
		t.Fatalf("manager was offered targets %v", res.targets)
	}
	if res.text != "keep me" {
		t.Fatalf("manager saved %q", res.text)
	}
}

func TestPersistOnlyClipboard(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()
	result := runManager(t, f)

	if err := s.Write(Primary, "x"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []Name{Primary, Secondary} {
		if err := s.Persist(name); !errors.Is(err, x11.ErrUnsupported) {
			t.Fatalf("%s: got %v, want ErrUnsupported", name, err)
		}
	}
	select {
	case res := <-result:
		t.Fatalf("manager received a request: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

// serveIncr owns sel from a foreign window and sends UTF8_STRING requests in
// chunks using the INCR protocol.
func serveIncr(t *testing.T, f *fakeServer, sel xproto.Atom, chunks []string) {
	t.Helper()
	win, _ := f.CreateWindow()
	events, cancel := f.Listen(win)
	if err := f.SetSelectionOwner(win, sel, xproto.TimeCurrentTime); err != nil {
		t.Fatal(err)
	}
	incr, _ := f.Atom(typeIncr)
	utf8, _ := f.Atom(targetUTF8)

	go func() {
		defer cancel()
		evt, err := waitFor(events, 2*time.Second, func(evt xgb.Event) bool {
			req, ok := evt.(xproto.SelectionRequestEvent)
			return ok && req.Target == utf8
		})
		if err != nil {
			return
		}
		req := evt.(xproto.SelectionRequestEvent)
		reqEvents, reqCancel := f.Listen(req.Requestor)
		defer reqCancel()

		total := 0
		for _, chunk := range chunks {
			total += len(chunk)
		}
		f.ChangeProperty(req.Requestor, xproto.PropModeReplace, req.Property, incr, 32, encodeWords([]uint32{uint32(total)}))
		f.SendSelectionNotify(xproto.SelectionNotifyEvent{
			Requestor: req.Requestor,
			Selection: req.Selection,
			Target:    req.Target,
			Property:  req.Property,
		})
		for _, chunk := range append(chunks, "") {
			if _, err := waitFor(reqEvents, time.Second, func(evt xgb.Event) bool {
				notify, ok := evt.(xproto.PropertyNotifyEvent)
				return ok && notify.Atom == req.Property && notify.State == xproto.PropertyDelete
			}); err != nil {
				return
			}
			f.ChangeProperty(req.Requestor, xproto.PropModeReplace, req.Property, utf8, 8, []byte(chunk))
		}
	}()
}

func TestReadIncremental(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()

	clip, _ := f.Atom("CLIPBOARD")
	serveIncr(t, f, clip, []string{"hello", "wörld", "!"})
	if got := mustRead(t, s, Clipboard); got != "hellowörld!" {
		t.Fatalf("got %q", got)
	}
}

func TestMultiple(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	defer s.Close()
	if err := s.Write(Clipboard, "both"); err != nil {
		t.Fatal(err)
	}

	clip, _ := f.Atom("CLIPBOARD")
	multiple, _ := f.Atom(targetMultiple)
	pairType, _ := f.Atom(typeAtomPair)
	utf8, _ := f.Atom(targetUTF8)
	png, _ := f.Atom("image/png")
	p1, _ := f.Atom("P1")
	p2, _ := f.Atom("P2")
	p3, _ := f.Atom("P3")
	prop, _ := f.Atom("PAIRS")

	win, _ := f.CreateWindow()
	events, cancel := f.Listen(win)
	defer cancel()
	pairs := []uint32{
		uint32(utf8), uint32(p1),
		uint32(png), uint32(p2),
		uint32(xproto.AtomString), uint32(p3),
	}
	f.ChangeProperty(win, xproto.PropModeReplace, prop, pairType, 32, encodeWords(pairs))
	if err := f.ConvertSelection(win, clip, multiple, prop, xproto.TimeCurrentTime); err != nil {
		t.Fatal(err)
	}
	evt, err := waitFor(events, time.Second, func(evt xgb.Event) bool {
		_, ok := evt.(xproto.SelectionNotifyEvent)
		return ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if evt.(xproto.SelectionNotifyEvent).Property != prop {
		t.Fatalf("MULTIPLE was refused: %+v", evt)
	}

	reply, _ := f.GetProperty(win, prop, true)
	got := decodeWords(reply.Value)
	want := []uint32{
		uint32(utf8), uint32(p1),
		uint32(png), uint32(xproto.AtomNone),
		uint32(xproto.AtomString), uint32(p3),
	}
	if reply.Type != pairType || len(got) != len(want) {
		t.Fatalf("unexpected MULTIPLE reply %+v", reply)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got pairs %v, want %v", got, want)
		}
	}
	for _, p := range []xproto.Atom{p1, p3} {
		if v, _ := f.GetProperty(win, p, true); string(v.Value) != "both" {
			t.Fatalf("property %d holds %q", p, v.Value)
		}
	}
	if v, _ := f.GetProperty(win, p2, true); len(v.Value) != 0 {
		t.Fatalf("refused target wrote %q", v.Value)
	}
}

func TestCloseReleases(t *testing.T) {
	f := newFakeServer()
	s := newService(f)
	if err := s.Write(Clipboard, "x"); err != nil {
		t.Fatal(err)
	}
	s.Close()
	clip, _ := f.Atom("CLIPBOARD")
	if owner, _ := f.SelectionOwner(clip); owner != xproto.WindowNone {
		t.Fatalf("selection still owned by 0x%x after close", owner)
	}
}

func TestParseName(t *testing.T) {
	for in, want := range map[string]Name{
		"clipboard": Clipboard,
		"":          Clipboard,
		"PRIMARY":   Primary,
		"s":         Secondary,
	} {
		got, err := ParseName(in)
		if err != nil || got != want {
			t.Errorf("%q: got (%s, %v), want %s", in, got, err, want)
		}
	}
	if _, err := ParseName("bogus"); err == nil {
		t.Error("expected error for unknown selection")
	}
}
