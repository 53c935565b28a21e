// Package mouse moves the pointer and simulates button presses through XTEST.
package mouse

import (
	"fmt"
	"strings"

	"github.com/tesselslate/imitator/internal/log"
)

// Button is a pointer button. The wheel is driven through buttons 4 and 5.
type Button byte

const (
	Left Button = iota + 1
	Middle
	Right
	WheelUp
	WheelDown
)

var buttonNames = map[string]Button{
	"left":   Left,
	"middle": Middle,
	"right":  Right,
	"up":     WheelUp,
	"down":   WheelDown,
}

// ParseButton converts a button name (left, middle, right, up, down) or
// number into a Button.
func ParseButton(name string) (Button, error) {
	if b, ok := buttonNames[strings.ToLower(name)]; ok {
		return b, nil
	}
	var n int
	if _, err := fmt.Sscanf(name, "%d", &n); err == nil && n >= 1 && n <= 255 {
		return Button(n), nil
	}
	return 0, fmt.Errorf("unknown mouse button %q", name)
}

// Display is the part of the X connection used for pointer input.
type Display interface {
	FakeButton(button byte, down bool) error
	FakeMotion(x, y int16) error
	QueryPointer() (int16, int16, error)
	Sync() error
}

// Mouse controls the pointer.
type Mouse struct {
	d   Display
	log *log.Logger
}

// New creates a Mouse which sends input through d.
func New(d Display, logger *log.Logger) *Mouse {
	return &Mouse{d, logger}
}

// Position returns the pointer position in root window coordinates.
func (m *Mouse) Position() (x, y int, err error) {
	px, py, err := m.d.QueryPointer()
	return int(px), int(py), err
}

// Move moves the pointer to the given position. A step of 0 warps the
// pointer directly; otherwise it travels vertically and then horizontally in
// increments of step pixels before being placed exactly.
func (m *Mouse) Move(x, y, step int) error {
	if step < 0 {
		return fmt.Errorf("invalid step %d", step)
	}
	if step > 0 {
		cx, cy, err := m.Position()
		if err != nil {
			return err
		}
		for cy < y-step || cy > y+step {
			cy += sign(y-cy) * step
			if err := m.d.FakeMotion(int16(cx), int16(cy)); err != nil {
				return err
			}
		}
		for cx < x-step || cx > x+step {
			cx += sign(x-cx) * step
			if err := m.d.FakeMotion(int16(cx), int16(cy)); err != nil {
				return err
			}
		}
	}
	if err := m.d.FakeMotion(int16(x), int16(y)); err != nil {
		return err
	}
	return m.d.Sync()
}

// Click presses and releases a button.
func (m *Mouse) Click(b Button) error {
	if err := m.d.FakeButton(byte(b), true); err != nil {
		return err
	}
	if err := m.d.FakeButton(byte(b), false); err != nil {
		return err
	}
	return m.d.Sync()
}

// Down presses a button without releasing it.
func (m *Mouse) Down(b Button) error {
	if err := m.d.FakeButton(byte(b), true); err != nil {
		return err
	}
	return m.d.Sync()
}

// Up releases a button.
func (m *Mouse) Up(b Button) error {
	if err := m.d.FakeButton(byte(b), false); err != nil {
		return err
	}
	return m.d.Sync()
}

// Wheel scrolls the wheel n notches up or down.
func (m *Mouse) Wheel(up bool, n int) error {
	b := WheelDown
	if up {
		b = WheelUp
	}
	for i := 0; i < n; i++ {
		if err := m.Click(b); err != nil {
			return err
		}
	}
	return nil
}

// Drag presses a button at (x1, y1), moves to (x2, y2) and releases it there.
func (m *Mouse) Drag(x1, y1, x2, y2 int, b Button, step int) error {
	if err := m.Move(x1, y1, step); err != nil {
		return err
	}
	if err := m.Down(b); err != nil {
		return err
	}
	if err := m.Move(x2, y2, step); err != nil {
		// Do not leave the button stuck.
		if upErr := m.Up(b); upErr != nil {
			m.log.Warn("Failed to release button %d: %s", b, upErr)
		}
		return err
	}
	return m.Up(b)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
