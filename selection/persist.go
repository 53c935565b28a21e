package selection

import (
	"fmt"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/tesselslate/imitator/x11"
)

const clipboardManager = "CLIPBOARD_MANAGER"

// The targets the clipboard manager is asked to save.
var savedTargets = []string{targetUTF8, targetString}

// Persist asks the running clipboard manager to take a copy of the clipboard,
// so its contents survive this process exiting. The clipboard must be owned
// by this process. Clipboard managers only save CLIPBOARD; for other
// selections, and when no clipboard manager is running, x11.ErrUnsupported is
// returned.
func (s *Service) Persist(name Name) error {
	if name != Clipboard {
		return fmt.Errorf("persist %s: only the clipboard can be saved: %w", name, x11.ErrUnsupported)
	}
	unlock, err := s.lock(name)
	if err != nil {
		return err
	}
	defer unlock()

	if s.Status(name).State != Owned {
		return fmt.Errorf("persist %s: %w", name, ErrNotOwner)
	}
	mgr, err := s.d.Atom(clipboardManager)
	if err != nil {
		return err
	}
	owner, err := s.d.SelectionOwner(mgr)
	if err != nil {
		return err
	}
	if owner == xproto.WindowNone {
		return fmt.Errorf("persist %s: no clipboard manager: %w", name, x11.ErrUnsupported)
	}

	r, err := s.newRequestor()
	if err != nil {
		return err
	}
	defer r.close()
	save, err := s.d.Atom(targetSave)
	if err != nil {
		return err
	}
	targets := make([]uint32, 0, len(savedTargets))
	for _, t := range savedTargets {
		atom, err := s.d.Atom(t)
		if err != nil {
			return err
		}
		targets = append(targets, uint32(atom))
	}
	if err := s.d.ChangeProperty(r.win, xproto.PropModeReplace, r.prop, xproto.AtomAtom, 32, encodeWords(targets)); err != nil {
		return err
	}
	if err := s.d.ConvertSelection(r.win, mgr, save, r.prop, xproto.TimeCurrentTime); err != nil {
		return err
	}

	// The manager converts the selection from our responder before replying,
	// which can take a while for large buffers.
	evt, err := waitFor(r.events, 5*s.timeout+time.Second, func(evt xgb.Event) bool {
		notify, ok := evt.(xproto.SelectionNotifyEvent)
		return ok && notify.Selection == mgr
	})
	if err != nil {
		return fmt.Errorf("persist %s: %w", name, err)
	}
	if evt.(xproto.SelectionNotifyEvent).Property == xproto.AtomNone {
		return fmt.Errorf("persist %s: clipboard manager refused the request", name)
	}
	s.log.Info("Handed %s to the clipboard manager", name)
	return nil
}
