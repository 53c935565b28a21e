package x11

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
)

// QueryTree returns the root, parent and children of the given window.
func (c *Client) QueryTree(win xproto.Window) (*xproto.QueryTreeReply, error) {
	reply, err := xproto.QueryTree(c.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree of 0x%x: %w", win, translate(err))
	}
	return reply, nil
}

// Attributes returns the attributes of the given window.
func (c *Client) Attributes(win xproto.Window) (*xproto.GetWindowAttributesReply, error) {
	reply, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("get attributes of 0x%x: %w", win, translate(err))
	}
	return reply, nil
}

// Geometry returns the geometry of the given window, relative to its parent.
func (c *Client) Geometry(win xproto.Window) (*xproto.GetGeometryReply, error) {
	reply, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("get geometry of 0x%x: %w", win, translate(err))
	}
	return reply, nil
}

// TranslateCoordinates converts coordinates relative to src into coordinates
// relative to dst.
func (c *Client) TranslateCoordinates(src, dst xproto.Window, x, y int16) (int16, int16, error) {
	reply, err := xproto.TranslateCoordinates(c.conn, src, dst, x, y).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("translate coordinates: %w", translate(err))
	}
	return reply.DstX, reply.DstY, nil
}

// Configure changes the configuration (position, size, stacking) of a window.
func (c *Client) Configure(win xproto.Window, mask uint16, values []uint32) error {
	err := xproto.ConfigureWindowChecked(c.conn, win, mask, values).Check()
	if err != nil {
		return fmt.Errorf("configure 0x%x: %w", win, translate(err))
	}
	return nil
}

// MapWindow maps the given window.
func (c *Client) MapWindow(win xproto.Window) error {
	if err := xproto.MapWindowChecked(c.conn, win).Check(); err != nil {
		return fmt.Errorf("map 0x%x: %w", win, translate(err))
	}
	return nil
}

// UnmapWindow unmaps the given window.
func (c *Client) UnmapWindow(win xproto.Window) error {
	if err := xproto.UnmapWindowChecked(c.conn, win).Check(); err != nil {
		return fmt.Errorf("unmap 0x%x: %w", win, translate(err))
	}
	return nil
}

// SetInputFocus gives the input focus to the given window.
func (c *Client) SetInputFocus(win xproto.Window, revert byte) error {
	err := xproto.SetInputFocusChecked(c.conn, revert, win, xproto.TimeCurrentTime).Check()
	if err != nil {
		return fmt.Errorf("set input focus to 0x%x: %w", win, translate(err))
	}
	return nil
}

// InputFocus returns the window which currently holds the input focus.
func (c *Client) InputFocus() (xproto.Window, error) {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0, fmt.Errorf("get input focus: %w", err)
	}
	return reply.Focus, nil
}

// SendClientMessage sends a 32-bit format client message about win to the
// root window, where the window manager listens for it.
func (c *Client) SendClientMessage(win xproto.Window, typ string, data ...uint32) error {
	atom, err := c.Atom(typ)
	if err != nil {
		return err
	}
	buf := make([]uint32, 5)
	copy(buf, data)
	evt := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(buf),
	}
	err = xproto.SendEventChecked(
		c.conn,
		false,
		c.root,
		maskSubstructure,
		string(evt.Bytes()),
	).Check()
	if err != nil {
		return fmt.Errorf("send %s: %w", typ, translate(err))
	}
	return nil
}

// SendProtocolMessage sends a WM_PROTOCOLS client message directly to win.
func (c *Client) SendProtocolMessage(win xproto.Window, protocol string) error {
	protocols, err := c.Atom("WM_PROTOCOLS")
	if err != nil {
		return err
	}
	atom, err := c.Atom(protocol)
	if err != nil {
		return err
	}
	evt := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocols,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(atom), uint32(xproto.TimeCurrentTime), 0, 0, 0,
		}),
	}
	err = xproto.SendEventChecked(c.conn, false, win, xproto.EventMaskNoEvent, string(evt.Bytes())).Check()
	if err != nil {
		return fmt.Errorf("send %s: %w", protocol, translate(err))
	}
	return nil
}

// DestroyWindow destroys the given window.
func (c *Client) DestroyWindow(win xproto.Window) error {
	if err := xproto.DestroyWindowChecked(c.conn, win).Check(); err != nil {
		return fmt.Errorf("destroy 0x%x: %w", win, translate(err))
	}
	return nil
}

// KillClient forces the connection of the client owning win to close.
func (c *Client) KillClient(win xproto.Window) error {
	if err := xproto.KillClientChecked(c.conn, uint32(win)).Check(); err != nil {
		return fmt.Errorf("kill client of 0x%x: %w", win, translate(err))
	}
	return nil
}

// CreateWindow creates an unmapped InputOnly window which receives property
// and structure events. It is used as a selection owner or requestor.
func (c *Client) CreateWindow() (xproto.Window, error) {
	win, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate window id: %w", err)
	}
	err = xproto.CreateWindowChecked(
		c.conn,
		0,
		win,
		c.root,
		-10, -10, 1, 1, 0,
		xproto.WindowClassInputOnly,
		0,
		xproto.CwEventMask,
		[]uint32{maskHidden},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("create window: %w", err)
	}
	return win, nil
}
