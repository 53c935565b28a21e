package x11

import (
	"encoding/binary"
	"fmt"

	"github.com/jezek/xgb/xproto"
)

// maxPropertyWords is the amount of 32-bit units requested when reading a
// window property.
const maxPropertyWords = 1 << 16

// Property retrieves a raw window property. ErrNoProperty is returned if the
// window does not have it.
func (c *Client) Property(win xproto.Window, name string, typ xproto.Atom) ([]byte, error) {
	atom, err := c.Atom(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(
		c.conn,
		false,
		win,
		atom,
		typ,
		0,
		maxPropertyWords,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, translate(err))
	}
	if reply.Format == 0 {
		return nil, ErrNoProperty
	}
	return reply.Value, nil
}

// PropertyUint32 retrieves a 32-bit window property.
func (c *Client) PropertyUint32(win xproto.Window, name string, typ xproto.Atom) (uint32, error) {
	data, err := c.Property(win, name, typ)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, errInvalidLength
	}
	return binary.LittleEndian.Uint32(data), nil
}

// PropertyWindows retrieves a window property containing a list of windows.
func (c *Client) PropertyWindows(win xproto.Window, name string) ([]xproto.Window, error) {
	data, err := c.Property(win, name, xproto.AtomWindow)
	if err != nil {
		return nil, err
	}
	list := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		list = append(list, xproto.Window(binary.LittleEndian.Uint32(data[i:])))
	}
	return list, nil
}

// PropertyAtoms retrieves a window property containing a list of atoms.
func (c *Client) PropertyAtoms(win xproto.Window, name string) ([]xproto.Atom, error) {
	data, err := c.Property(win, name, xproto.AtomAtom)
	if err != nil {
		return nil, err
	}
	return decodeAtoms(data), nil
}

// PropertyString retrieves a textual window property. UTF8_STRING is
// preferred; STRING is used when the window does not provide it.
func (c *Client) PropertyString(win xproto.Window, name string) (string, error) {
	utf8, err := c.Atom(utf8String)
	if err != nil {
		return "", err
	}
	data, err := c.Property(win, name, utf8)
	if err == nil && len(data) > 0 {
		return string(data), nil
	} else if err != nil && err != ErrNoProperty {
		return "", err
	}
	data, err = c.Property(win, name, xproto.AtomString)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeAtoms converts a 32-bit format property value into atoms.
func decodeAtoms(data []byte) []xproto.Atom {
	list := make([]xproto.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		list = append(list, xproto.Atom(binary.LittleEndian.Uint32(data[i:])))
	}
	return list
}
