// Package x11 provides the connection to the X server which every other part
// of imitator borrows. It wraps the raw protocol requests needed for input
// simulation, window inspection and selection ownership.
//
// A Client is not safe for unsynchronized concurrent use at the level of
// higher-level operations: requests are thread-safe individually, but callers
// issuing keyboard, mouse or window operations from several goroutines must
// serialize them so that their effects do not interleave.
package x11

import (
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
	"github.com/tesselslate/imitator/internal/log"
)

// Atom names
const (
	netActiveWindow = "_NET_ACTIVE_WINDOW"
	netSupported    = "_NET_SUPPORTED"
	utf8String      = "UTF8_STRING"
)

// Event masks
const (
	maskSubstructure uint32 = xproto.EventMaskSubstructureNotify |
		xproto.EventMaskSubstructureRedirect

	maskHidden uint32 = xproto.EventMaskPropertyChange |
		xproto.EventMaskStructureNotify
)

// Client maintains the connection with the X server.
type Client struct {
	atoms   atomCache     // Atom cache
	conn    *xgb.Conn     // The X server connection
	display string        // Display the connection was opened against
	root    xproto.Window // Root window
	log     *log.Logger

	testOnce sync.Once
	testErr  error

	mu     sync.Mutex
	subs   map[xproto.Window][]*subscription
	closed bool
	done   chan struct{}
}

// open attempts to connect to the given display. An empty display uses
// $DISPLAY.
func open(display string, logger *log.Logger) (*Client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, &ConnectionError{Display: display, Err: err}
	}
	c := &Client{
		atoms: atomCache{
			conn: conn,
			data: make(map[string]xproto.Atom),
		},
		conn:    conn,
		display: display,
		root:    xproto.Setup(conn).DefaultScreen(conn).Root,
		log:     logger,
		subs:    make(map[xproto.Window][]*subscription),
		done:    make(chan struct{}),
	}
	go c.dispatch()
	logger.Debug("Connected to X display %q (root 0x%x)", display, c.root)
	return c, nil
}

// Close closes the connection and waits for the event dispatcher to exit.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.conn.Close()
	<-c.done
}

// Conn returns the underlying connection.
func (c *Client) Conn() *xgb.Conn {
	return c.conn
}

// Root returns the ID of the root window of the default screen.
func (c *Client) Root() xproto.Window {
	return c.root
}

// Atom returns the atom with the given name, interning it if needed.
func (c *Client) Atom(name string) (xproto.Atom, error) {
	atom, err := c.atoms.Get(name)
	if err != nil {
		return 0, fmt.Errorf("get %s atom: %w", name, err)
	}
	return atom, nil
}

// AtomName returns the name of the given atom.
func (c *Client) AtomName(atom xproto.Atom) (string, error) {
	return c.atoms.Name(atom)
}

// Sync performs a round trip to the X server, so that every request sent
// before it has been processed once it returns.
func (c *Client) Sync() error {
	if _, err := xproto.GetInputFocus(c.conn).Reply(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// Supported reports whether the window manager advertises the given atom in
// _NET_SUPPORTED.
func (c *Client) Supported(name string) (bool, error) {
	atom, err := c.Atom(name)
	if err != nil {
		return false, err
	}
	supported, err := c.PropertyAtoms(c.root, netSupported)
	if err == ErrNoProperty {
		return false, nil
	} else if err != nil {
		return false, err
	}
	for _, v := range supported {
		if v == atom {
			return true, nil
		}
	}
	return false, nil
}

// initTest initializes the XTEST extension on first use.
func (c *Client) initTest() error {
	c.testOnce.Do(func() {
		if err := xtest.Init(c.conn); err != nil {
			c.testErr = fmt.Errorf("%w: XTEST extension: %s", ErrUnsupported, err)
		}
	})
	return c.testErr
}
