package x11

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
)

// SetSelectionOwner makes owner the owner of the selection. An owner of 0
// releases the selection.
func (c *Client) SetSelectionOwner(owner xproto.Window, sel xproto.Atom, t xproto.Timestamp) error {
	if err := xproto.SetSelectionOwnerChecked(c.conn, owner, sel, t).Check(); err != nil {
		return fmt.Errorf("set selection owner: %w", err)
	}
	return nil
}

// SelectionOwner returns the current owner of the selection, or 0 if it is
// not owned.
func (c *Client) SelectionOwner(sel xproto.Atom) (xproto.Window, error) {
	reply, err := xproto.GetSelectionOwner(c.conn, sel).Reply()
	if err != nil {
		return 0, fmt.Errorf("get selection owner: %w", err)
	}
	return reply.Owner, nil
}

// ConvertSelection asks the selection owner to store the selection converted
// to target in the given property of requestor.
func (c *Client) ConvertSelection(requestor xproto.Window, sel, target, prop xproto.Atom, t xproto.Timestamp) error {
	err := xproto.ConvertSelectionChecked(c.conn, requestor, sel, target, prop, t).Check()
	if err != nil {
		return fmt.Errorf("convert selection: %w", err)
	}
	return nil
}

// ChangeProperty replaces or appends to a property of win.
func (c *Client) ChangeProperty(win xproto.Window, mode byte, prop, typ xproto.Atom, format byte, data []byte) error {
	units := uint32(len(data))
	if format > 8 {
		units /= uint32(format / 8)
	}
	err := xproto.ChangePropertyChecked(c.conn, mode, win, prop, typ, format, units, data).Check()
	if err != nil {
		return fmt.Errorf("change property: %w", translate(err))
	}
	return nil
}

// GetProperty reads a whole property of any type, optionally deleting it.
func (c *Client) GetProperty(win xproto.Window, prop xproto.Atom, del bool) (*xproto.GetPropertyReply, error) {
	reply, err := xproto.GetProperty(
		c.conn,
		del,
		win,
		prop,
		xproto.GetPropertyTypeAny,
		0,
		maxPropertyWords*16,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("get property: %w", translate(err))
	}
	return reply, nil
}

// DeleteProperty removes a property from win.
func (c *Client) DeleteProperty(win xproto.Window, prop xproto.Atom) error {
	if err := xproto.DeletePropertyChecked(c.conn, win, prop).Check(); err != nil {
		return fmt.Errorf("delete property: %w", translate(err))
	}
	return nil
}

// SendSelectionNotify delivers a SelectionNotify event to its requestor.
func (c *Client) SendSelectionNotify(evt xproto.SelectionNotifyEvent) error {
	err := xproto.SendEventChecked(
		c.conn,
		false,
		evt.Requestor,
		xproto.EventMaskNoEvent,
		string(evt.Bytes()),
	).Check()
	if err != nil {
		return fmt.Errorf("send selection notify: %w", translate(err))
	}
	return nil
}

// MaxPropertySize returns the largest amount of data which fits into a single
// ChangeProperty request.
func (c *Client) MaxPropertySize() int {
	// Leave room for the request header.
	return int(xproto.Setup(c.conn).MaximumRequestLength)*4 - 64
}
