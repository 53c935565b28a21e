package x11

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/internal/log"
)

func TestEventWindow(t *testing.T) {
	tests := []struct {
		name string
		evt  xgb.Event
		win  xproto.Window
		ok   bool
	}{
		{"request", xproto.SelectionRequestEvent{Owner: 5, Requestor: 9}, 5, true},
		{"clear", xproto.SelectionClearEvent{Owner: 6}, 6, true},
		{"notify", xproto.SelectionNotifyEvent{Requestor: 7}, 7, true},
		{"property", xproto.PropertyNotifyEvent{Window: 8}, 8, true},
		{"mapping", xproto.MappingNotifyEvent{}, AnyWindow, true},
		{"key", xproto.KeyPressEvent{Event: 3}, 0, false},
	}
	for _, tt := range tests {
		win, ok := eventWindow(tt.evt)
		if win != tt.win || ok != tt.ok {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", tt.name, win, ok, tt.win, tt.ok)
		}
	}
}

func TestKeyboardMapping(t *testing.T) {
	m := KeyboardMapping{
		MinKeycode: 8,
		PerKeycode: 2,
		Keysyms:    []xproto.Keysym{0x61, 0x41, 0x62, 0x42, 0, 0},
	}
	if got := m.MaxKeycode(); got != 10 {
		t.Fatalf("got max keycode %d, want 10", got)
	}
	if got := m.Keysym(9, 1); got != 0x42 {
		t.Fatalf("got keysym 0x%x, want 0x42", got)
	}
	if got := m.Keysym(7, 0); got != 0 {
		t.Fatalf("got keysym 0x%x for out of range keycode", got)
	}
	if got := m.Keysym(8, 2); got != 0 {
		t.Fatalf("got keysym 0x%x for out of range column", got)
	}
}

func TestTranslate(t *testing.T) {
	err := translate(xproto.WindowError{BadValue: 0x1234})
	if !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("window error not translated: %v", err)
	}
	other := errors.New("other")
	if translate(other) != other {
		t.Fatal("unrelated error was modified")
	}
	if translate(nil) != nil {
		t.Fatal("nil error was modified")
	}
}

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{Err: errors.New("refused")}
	if !strings.Contains(err.Error(), "$DISPLAY") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var target *ConnectionError
	if !errors.As(error(err), &target) {
		t.Fatal("errors.As failed")
	}
}

func TestDecodeAtoms(t *testing.T) {
	got := decodeAtoms([]byte{1, 0, 0, 0, 0x10, 0x20, 0, 0, 7})
	if len(got) != 2 || got[0] != 1 || got[1] != 0x2010 {
		t.Fatalf("got %v", got)
	}
}

// TestLive exercises a real X server. Set IMITATOR_TEST_X11 to run it.
func TestLive(t *testing.T) {
	if os.Getenv("IMITATOR_TEST_X11") == "" {
		t.Skip("IMITATOR_TEST_X11 not set")
	}
	c, err := Shared("", log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer CloseShared()
	if again, _ := Shared("", nil); again != c {
		t.Fatal("Shared opened a second connection")
	}
	if err := c.Sync(); err != nil {
		t.Fatal(err)
	}
	m, err := c.KeyboardMapping()
	if err != nil {
		t.Fatal(err)
	}
	if m.PerKeycode == 0 || len(m.Keysyms) == 0 {
		t.Fatal("empty keyboard mapping")
	}
	win, err := c.CreateWindow()
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DestroyWindow(win); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Attributes(win); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected stale handle error, got %v", err)
	}
}
