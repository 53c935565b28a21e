package x11

import (
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// atomCache maintains a mapping of strings to X11 atoms to avoid re-requesting
// atoms from the X server repeatedly. Lookups by atom are cached as well.
type atomCache struct {
	conn  *xgb.Conn
	data  map[string]xproto.Atom
	names map[xproto.Atom]string
	mx    sync.RWMutex
}

// Get returns the atom with the associated name.
func (c *atomCache) Get(name string) (xproto.Atom, error) {
	c.mx.RLock()
	if atom, ok := c.data[name]; ok {
		c.mx.RUnlock()
		return atom, nil
	}
	c.mx.RUnlock()

	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	c.store(name, reply.Atom)
	return reply.Atom, nil
}

// Name returns the name of the given atom.
func (c *atomCache) Name(atom xproto.Atom) (string, error) {
	c.mx.RLock()
	if name, ok := c.names[atom]; ok {
		c.mx.RUnlock()
		return name, nil
	}
	c.mx.RUnlock()

	reply, err := xproto.GetAtomName(c.conn, atom).Reply()
	if err != nil {
		return "", err
	}
	c.store(reply.Name, atom)
	return reply.Name, nil
}

func (c *atomCache) store(name string, atom xproto.Atom) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.data == nil {
		c.data = make(map[string]xproto.Atom)
	}
	if c.names == nil {
		c.names = make(map[xproto.Atom]string)
	}
	c.data[name] = atom
	c.names[atom] = name
}
