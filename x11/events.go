package x11

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/exp/slices"
)

// AnyWindow can be passed to Listen to receive events which are not addressed
// to a particular window, such as MappingNotify.
const AnyWindow xproto.Window = 0

// subscription is a single listener registered with Listen.
type subscription struct {
	win  xproto.Window
	ch   chan xgb.Event
	done chan struct{}
}

// Listen registers interest in events addressed to the given window. The
// returned channel is closed if the connection dies. The returned function
// must be called once the caller is no longer interested; until then the
// caller must keep draining the channel.
func (c *Client) Listen(win xproto.Window) (<-chan xgb.Event, func()) {
	sub := &subscription{
		win:  win,
		ch:   make(chan xgb.Event, 64),
		done: make(chan struct{}),
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	c.subs[win] = append(c.subs[win], sub)
	c.mu.Unlock()

	cancelled := false
	return sub.ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cancelled {
			return
		}
		cancelled = true
		close(sub.done)
		list := c.subs[win]
		if i := slices.Index(list, sub); i >= 0 {
			c.subs[win] = slices.Delete(list, i, i+1)
		}
		if len(c.subs[win]) == 0 {
			delete(c.subs, win)
		}
	}
}

// dispatch reads events from the connection and routes them to listeners.
func (c *Client) dispatch() {
	defer close(c.done)
	defer c.closeSubscriptions()
	for {
		evt, err := c.conn.WaitForEvent()
		if evt == nil && err == nil {
			c.log.Debug("X connection closed, stopping event dispatch")
			return
		}
		if err != nil {
			// Errors from unchecked requests end up here.
			c.log.Debug("Asynchronous X error: %s", err)
			continue
		}
		win, ok := eventWindow(evt)
		if !ok {
			continue
		}
		c.mu.Lock()
		subs := slices.Clone(c.subs[win])
		c.mu.Unlock()
		for _, sub := range subs {
			select {
			case sub.ch <- evt:
			case <-sub.done:
			}
		}
	}
}

func (c *Client) closeSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for win, list := range c.subs {
		for _, sub := range list {
			close(sub.ch)
		}
		delete(c.subs, win)
	}
}

// eventWindow returns the window an event should be routed to.
func eventWindow(evt xgb.Event) (xproto.Window, bool) {
	switch evt := evt.(type) {
	case xproto.SelectionRequestEvent:
		return evt.Owner, true
	case xproto.SelectionClearEvent:
		return evt.Owner, true
	case xproto.SelectionNotifyEvent:
		return evt.Requestor, true
	case xproto.PropertyNotifyEvent:
		return evt.Window, true
	case xproto.DestroyNotifyEvent:
		return evt.Window, true
	case xproto.MapNotifyEvent:
		return evt.Window, true
	case xproto.UnmapNotifyEvent:
		return evt.Window, true
	case xproto.MappingNotifyEvent:
		return AnyWindow, true
	}
	return 0, false
}
