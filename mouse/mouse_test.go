package mouse

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/tesselslate/imitator/internal/log"
)

type fakeDisplay struct {
	x, y   int16
	events []string
}

func (f *fakeDisplay) FakeButton(button byte, down bool) error {
	if down {
		f.events = append(f.events, fmt.Sprintf("down %d", button))
	} else {
		f.events = append(f.events, fmt.Sprintf("up %d", button))
	}
	return nil
}

func (f *fakeDisplay) FakeMotion(x, y int16) error {
	f.x, f.y = x, y
	f.events = append(f.events, fmt.Sprintf("move %d,%d", x, y))
	return nil
}

func (f *fakeDisplay) QueryPointer() (int16, int16, error) {
	return f.x, f.y, nil
}

func (f *fakeDisplay) Sync() error {
	return nil
}

func TestMove(t *testing.T) {
	f := &fakeDisplay{}
	m := New(f, log.Discard())
	if err := m.Move(100, 50, 0); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f.events, []string{"move 100,50"}) {
		t.Fatalf("got events %v", f.events)
	}
	x, y, err := m.Position()
	if err != nil || x != 100 || y != 50 {
		t.Fatalf("got position %d,%d (%v)", x, y, err)
	}
}

func TestMoveStepped(t *testing.T) {
	f := &fakeDisplay{x: 10, y: 10}
	m := New(f, log.Discard())
	if err := m.Move(25, 0, 5); err != nil {
		t.Fatal(err)
	}
	want := []string{"move 10,5", "move 15,5", "move 20,5", "move 25,0"}
	if !reflect.DeepEqual(f.events, want) {
		t.Fatalf("got events %v, want %v", f.events, want)
	}
	if err := m.Move(0, 0, -1); err == nil {
		t.Fatal("expected error for negative step")
	}
}

func TestButtons(t *testing.T) {
	f := &fakeDisplay{}
	m := New(f, log.Discard())
	if err := m.Click(Left); err != nil {
		t.Fatal(err)
	}
	if err := m.Wheel(false, 2); err != nil {
		t.Fatal(err)
	}
	if err := m.Drag(0, 0, 7, 7, Right, 0); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"down 1", "up 1",
		"down 5", "up 5", "down 5", "up 5",
		"move 0,0", "down 3", "move 7,7", "up 3",
	}
	if !reflect.DeepEqual(f.events, want) {
		t.Fatalf("got events %v, want %v", f.events, want)
	}
}

func TestParseButton(t *testing.T) {
	for in, want := range map[string]Button{"left": Left, "Right": Right, "up": WheelUp, "8": 8} {
		got, err := ParseButton(in)
		if err != nil || got != want {
			t.Errorf("%q: got (%d, %v), want %d", in, got, err, want)
		}
	}
	if _, err := ParseButton("thumb"); err == nil {
		t.Error("expected error for unknown button")
	}
}
