package x11

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
)

// KeyboardMapping is a snapshot of the server's keycode to keysym table.
type KeyboardMapping struct {
	MinKeycode xproto.Keycode
	PerKeycode int
	Keysyms    []xproto.Keysym
}

// MaxKeycode returns the highest keycode in the mapping.
func (m KeyboardMapping) MaxKeycode() xproto.Keycode {
	if m.PerKeycode == 0 {
		return m.MinKeycode
	}
	return m.MinKeycode + xproto.Keycode(len(m.Keysyms)/m.PerKeycode) - 1
}

// Keysym returns the keysym at the given keycode and column, or 0 (NoSymbol)
// if it is out of range.
func (m KeyboardMapping) Keysym(code xproto.Keycode, col int) xproto.Keysym {
	if code < m.MinKeycode || col < 0 || col >= m.PerKeycode {
		return 0
	}
	i := int(code-m.MinKeycode)*m.PerKeycode + col
	if i >= len(m.Keysyms) {
		return 0
	}
	return m.Keysyms[i]
}

// KeyboardMapping fetches the current keyboard mapping.
func (c *Client) KeyboardMapping() (KeyboardMapping, error) {
	setup := xproto.Setup(c.conn)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(c.conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return KeyboardMapping{}, fmt.Errorf("get keyboard mapping: %w", err)
	}
	return KeyboardMapping{
		MinKeycode: setup.MinKeycode,
		PerKeycode: int(reply.KeysymsPerKeycode),
		Keysyms:    reply.Keysyms,
	}, nil
}

// ChangeKeyboardMapping rebinds a single keycode to the given keysyms, one
// per column.
func (c *Client) ChangeKeyboardMapping(code xproto.Keycode, syms []xproto.Keysym) error {
	err := xproto.ChangeKeyboardMappingChecked(
		c.conn,
		1,
		code,
		byte(len(syms)),
		syms,
	).Check()
	if err != nil {
		return fmt.Errorf("change mapping of keycode %d: %w", code, err)
	}
	return nil
}

// FakeKey synthesizes a key press or release through XTEST.
func (c *Client) FakeKey(code xproto.Keycode, down bool) error {
	typ := byte(xproto.KeyRelease)
	if down {
		typ = xproto.KeyPress
	}
	return c.fakeInput(typ, byte(code), 0, 0)
}

// FakeButton synthesizes a pointer button press or release through XTEST.
func (c *Client) FakeButton(button byte, down bool) error {
	typ := byte(xproto.ButtonRelease)
	if down {
		typ = xproto.ButtonPress
	}
	return c.fakeInput(typ, button, 0, 0)
}

// FakeMotion moves the pointer to the given root coordinates through XTEST.
func (c *Client) FakeMotion(x, y int16) error {
	return c.fakeInput(xproto.MotionNotify, 0, x, y)
}

func (c *Client) fakeInput(typ, detail byte, x, y int16) error {
	if err := c.initTest(); err != nil {
		return err
	}
	err := xtest.FakeInputChecked(
		c.conn,
		typ,
		detail,
		uint32(xproto.TimeCurrentTime),
		c.root,
		x,
		y,
		0,
	).Check()
	if err != nil {
		return fmt.Errorf("fake input (type %d, detail %d): %w", typ, detail, err)
	}
	return nil
}

// QueryPointer returns the pointer position relative to the root window.
func (c *Client) QueryPointer() (int16, int16, error) {
	reply, err := xproto.QueryPointer(c.conn, c.root).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("query pointer: %w", err)
	}
	return reply.RootX, reply.RootY, nil
}
