package window

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/x11"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"
)

// IconicState from the ICCCM WM_STATE property
const wmStateIconic = 3

// Window is a handle to a single X window. Handles are compared by window ID
// only; the cached title and pid never take part in equality.
//
// A handle outlives the window it refers to. Once the window has been
// destroyed, operations on the handle fail with x11.ErrStaleHandle.
//
// A handle is not safe for concurrent use, since Title and Pid update its
// cached values. Goroutines which share a window should each obtain their
// own handle from the Directory.
type Window struct {
	dir   *Directory
	id    xproto.Window
	title string
	pid   int
}

// ID returns the native window ID.
func (w *Window) ID() xproto.Window {
	return w.id
}

// Equal reports whether both handles refer to the same window.
func (w *Window) Equal(o *Window) bool {
	if w == nil || o == nil {
		return w == o
	}
	return w.id == o.id
}

func (w *Window) String() string {
	return fmt.Sprintf("<Window '%s' (0x%x)>", w.title, w.id)
}

// CachedTitle returns the title as of the last query, without contacting the
// server.
func (w *Window) CachedTitle() string {
	return w.title
}

// Title queries the current window title. _NET_WM_NAME is preferred over
// WM_NAME. A window without a title has an empty one.
func (w *Window) Title() (string, error) {
	d := w.dir.d
	title, err := d.PropertyString(w.id, "_NET_WM_NAME")
	if errors.Is(err, x11.ErrNoProperty) {
		title, err = d.PropertyString(w.id, "WM_NAME")
	}
	if errors.Is(err, x11.ErrNoProperty) {
		title, err = "", nil
	}
	if err != nil {
		return "", err
	}
	w.title = title
	return title, nil
}

// Class returns the instance and class names from WM_CLASS.
func (w *Window) Class() (instance, class string, err error) {
	data, err := w.dir.d.Property(w.id, "WM_CLASS", xproto.AtomString)
	if errors.Is(err, x11.ErrNoProperty) {
		return "", "", nil
	} else if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	instance = parts[0]
	if len(parts) > 1 {
		class = parts[1]
	}
	return instance, class, nil
}

// Pid returns the process ID of the window's owner from _NET_WM_PID. If the
// application does not set it, x11.ErrUnsupported is returned.
func (w *Window) Pid() (int, error) {
	if w.pid != 0 {
		return w.pid, nil
	}
	pid, err := w.dir.d.PropertyUint32(w.id, "_NET_WM_PID", xproto.AtomCardinal)
	if errors.Is(err, x11.ErrNoProperty) {
		return 0, fmt.Errorf("pid of 0x%x: _NET_WM_PID %w", w.id, x11.ErrUnsupported)
	} else if err != nil {
		return 0, err
	}
	w.pid = int(pid)
	return w.pid, nil
}

// Exists reports whether the window still exists on the server.
func (w *Window) Exists() (bool, error) {
	_, err := w.dir.d.Attributes(w.id)
	if errors.Is(err, x11.ErrStaleHandle) {
		return false, nil
	}
	return err == nil, err
}

// IsRoot reports whether this is the root window.
func (w *Window) IsRoot() bool {
	return w.id == w.dir.d.Root()
}

// Mapped reports whether the window is mapped. A mapped window may still be
// invisible, for example when an ancestor is unmapped.
func (w *Window) Mapped() (bool, error) {
	attrs, err := w.dir.d.Attributes(w.id)
	if err != nil {
		return false, err
	}
	return attrs.MapState != xproto.MapStateUnmapped, nil
}

// Visible reports whether the window is viewable and not iconified or hidden
// by the window manager.
func (w *Window) Visible() (bool, error) {
	d := w.dir.d
	attrs, err := d.Attributes(w.id)
	if err != nil {
		return false, err
	}
	if attrs.Class == xproto.WindowClassInputOnly || attrs.MapState != xproto.MapStateViewable {
		return false, nil
	}

	state, err := d.Property(w.id, "WM_STATE", xproto.GetPropertyTypeAny)
	if err == nil && len(state) >= 4 && xgb.Get32(state) == wmStateIconic {
		return false, nil
	} else if err != nil && !errors.Is(err, x11.ErrNoProperty) {
		return false, err
	}

	netState, err := d.PropertyAtoms(w.id, "_NET_WM_STATE")
	if errors.Is(err, x11.ErrNoProperty) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	hidden, err := d.Atom("_NET_WM_STATE_HIDDEN")
	if err != nil {
		return false, err
	}
	return !slices.Contains(netState, hidden), nil
}

// Map maps the window.
func (w *Window) Map() error {
	return w.dir.d.MapWindow(w.id)
}

// Unmap unmaps the window. Unmapping an unmapped window does nothing.
func (w *Window) Unmap() error {
	return w.dir.d.UnmapWindow(w.id)
}

// Raise moves the window to the top of the stacking order.
func (w *Window) Raise() error {
	return w.dir.d.Configure(w.id, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

// Focus gives the window the input focus directly, bypassing the window
// manager.
func (w *Window) Focus() error {
	return w.dir.d.SetInputFocus(w.id, xproto.InputFocusParent)
}

// Unfocus moves the input focus to the root window.
func (w *Window) Unfocus() error {
	return w.dir.d.SetInputFocus(w.dir.d.Root(), xproto.InputFocusPointerRoot)
}

// Activate raises and focuses the window. If the window manager supports
// _NET_ACTIVE_WINDOW, it is asked to do so; otherwise the window is raised
// and focused directly.
func (w *Window) Activate() error {
	d := w.dir.d
	ok, err := d.Supported("_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}
	if ok {
		// Source indication 2 marks the request as coming from a pager.
		return d.SendClientMessage(w.id, "_NET_ACTIVE_WINDOW", 2, uint32(xproto.TimeCurrentTime))
	}
	if err := w.Raise(); err != nil {
		return err
	}
	return w.Focus()
}

// Size returns the width and height of the window.
func (w *Window) Size() (width, height int, err error) {
	geom, err := w.dir.d.Geometry(w.id)
	if err != nil {
		return 0, 0, err
	}
	return int(geom.Width), int(geom.Height), nil
}

// Resize changes the size of the window.
func (w *Window) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	return w.dir.d.Configure(
		w.id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)},
	)
}

// Position returns the position of the window's top left corner in root
// window coordinates.
func (w *Window) Position() (x, y int, err error) {
	rx, ry, err := w.dir.d.TranslateCoordinates(w.id, w.dir.d.Root(), 0, 0)
	if err != nil {
		return 0, 0, err
	}
	return int(rx), int(ry), nil
}

// Move moves the window relative to its parent.
func (w *Window) Move(x, y int) error {
	return w.dir.d.Configure(
		w.id,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(x)), uint32(int32(y))},
	)
}

// Parent returns the parent of the window. The root window has no parent and
// returns nil.
func (w *Window) Parent() (*Window, error) {
	tree, err := w.dir.d.QueryTree(w.id)
	if err != nil {
		return nil, err
	}
	if tree.Parent == xproto.WindowNone {
		return nil, nil
	}
	return w.dir.Handle(tree.Parent), nil
}

// RootWindow returns the root window of the screen the window is on.
func (w *Window) RootWindow() (*Window, error) {
	tree, err := w.dir.d.QueryTree(w.id)
	if err != nil {
		return nil, err
	}
	return w.dir.Handle(tree.Root), nil
}

// TopLevel follows the parent chain up to the ancestor which is a direct
// child of the root window. This is usually the window manager's frame.
func (w *Window) TopLevel() (*Window, error) {
	cur := w.id
	for {
		tree, err := w.dir.d.QueryTree(cur)
		if err != nil {
			return nil, err
		}
		if tree.Parent == xproto.WindowNone || tree.Parent == tree.Root {
			return w.dir.Handle(cur), nil
		}
		cur = tree.Parent
	}
}

// Children returns the children of the window in stacking order, bottom
// first.
func (w *Window) Children() ([]*Window, error) {
	tree, err := w.dir.d.QueryTree(w.id)
	if err != nil {
		return nil, err
	}
	children := make([]*Window, 0, len(tree.Children))
	for _, child := range tree.Children {
		children = append(children, w.dir.Handle(child))
	}
	return children, nil
}

// Close asks the window to close. _NET_CLOSE_WINDOW is used if the window
// manager supports it, otherwise the window is sent WM_DELETE_WINDOW.
func (w *Window) Close() error {
	d := w.dir.d
	ok, err := d.Supported("_NET_CLOSE_WINDOW")
	if err != nil {
		return err
	}
	if ok {
		return d.SendClientMessage(w.id, "_NET_CLOSE_WINDOW", uint32(xproto.TimeCurrentTime), 2)
	}
	protocols, err := d.PropertyAtoms(w.id, "WM_PROTOCOLS")
	if err != nil && !errors.Is(err, x11.ErrNoProperty) {
		return err
	}
	del, err := d.Atom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	if !slices.Contains(protocols, del) {
		return fmt.Errorf("close 0x%x: WM_DELETE_WINDOW %w", w.id, x11.ErrUnsupported)
	}
	return d.SendProtocolMessage(w.id, "WM_DELETE_WINDOW")
}

// Destroy destroys the window.
func (w *Window) Destroy() error {
	return w.dir.d.DestroyWindow(w.id)
}

// KillClient closes the X connection of the client which created the window.
func (w *Window) KillClient() error {
	return w.dir.d.KillClient(w.id)
}

// KillProcess sends a signal to the process owning the window.
func (w *Window) KillProcess(sig syscall.Signal) error {
	pid, err := w.Pid()
	if err != nil {
		return err
	}
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("kill process %d: %w", pid, err)
	}
	return nil
}

// WaitForClose blocks until the window no longer exists. It fails with
// x11.ErrTimeout once timeout has elapsed.
func (w *Window) WaitForClose(ctx context.Context, timeout time.Duration) error {
	return w.dir.poll(ctx, timeout, func() (bool, error) {
		exists, err := w.Exists()
		return !exists, err
	})
}
