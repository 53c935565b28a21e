package selection

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"golang.org/x/text/encoding/charmap"
)

const (
	targetTargets   = "TARGETS"
	targetTimestamp = "TIMESTAMP"
	targetMultiple  = "MULTIPLE"
	targetUTF8      = "UTF8_STRING"
	targetMime      = "text/plain;charset=utf-8"
	targetString    = "STRING"
	targetText      = "TEXT"
	targetSave      = "SAVE_TARGETS"

	typeAtomPair = "ATOM_PAIR"
	typeIncr     = "INCR"

	propTimestamp = "_IMITATOR_TIMESTAMP"
	propTransfer  = "_IMITATOR_SELECTION"
)

// The targets offered to requestors, in order of preference.
var offeredTargets = []string{
	targetTargets,
	targetTimestamp,
	targetMultiple,
	targetUTF8,
	targetMime,
	targetString,
	targetText,
}

// ownership is a single claim on a selection. Its responder goroutine is the
// only reader of events and the only user of the served buffer.
type ownership struct {
	name    Name
	atom    xproto.Atom
	win     xproto.Window
	time    xproto.Timestamp
	session uuid.UUID
	since   time.Time

	mailbox chan []byte
	stop    chan struct{}
	done    chan struct{}
	events  <-chan xgb.Event
	cancel  func()

	stopOnce sync.Once
	lost     atomic.Bool
	bytes    atomic.Int64
}

// update hands a new buffer to the responder. It returns false if the
// responder has already exited.
func (o *ownership) update(data []byte) bool {
	select {
	case o.mailbox <- data:
		o.setSize(len(data))
		return true
	case <-o.done:
		return false
	}
}

// release stops the responder and waits for it to exit.
func (o *ownership) release() {
	o.stopOnce.Do(func() { close(o.stop) })
	<-o.done
}

func (o *ownership) wasLost() bool {
	return o.lost.Load()
}

func (o *ownership) size() int {
	return int(o.bytes.Load())
}

func (o *ownership) setSize(n int) {
	o.bytes.Store(int64(n))
}

// serve answers selection requests until the ownership is released or lost.
func (s *Service) serve(o *ownership, buf []byte) {
	defer s.wg.Done()
	defer close(o.done)
	defer func() {
		o.cancel()
		if err := s.d.DestroyWindow(o.win); err != nil {
			s.log.Debug("Failed to destroy selection window 0x%x: %s", o.win, err)
		}
	}()

	for {
		select {
		case data := <-o.mailbox:
			buf = data
		case <-o.stop:
			s.log.Debug("Released %s (session %s)", o.name, o.session)
			return
		case evt, ok := <-o.events:
			if !ok {
				s.log.Warn("Connection closed while owning %s", o.name)
				return
			}
			switch evt := evt.(type) {
			case xproto.SelectionRequestEvent:
				s.answer(o, evt, buf)
			case xproto.SelectionClearEvent:
				if evt.Selection == o.atom {
					s.log.Warn("Lost ownership of %s (session %s)", o.name, o.session)
					o.lost.Store(true)
					return
				}
			}
		}
	}
}

// answer replies to a single SelectionRequest.
func (s *Service) answer(o *ownership, req xproto.SelectionRequestEvent, buf []byte) {
	notify := xproto.SelectionNotifyEvent{
		Time:      req.Time,
		Requestor: req.Requestor,
		Selection: req.Selection,
		Target:    req.Target,
		Property:  req.Property,
	}
	// Obsolete requestors leave the property unset.
	if notify.Property == xproto.AtomNone {
		notify.Property = req.Target
	}

	switch {
	case req.Selection != o.atom:
		notify.Property = xproto.AtomNone
	case req.Time != xproto.TimeCurrentTime && req.Time < o.time:
		s.log.Debug("Refused %s request from before ownership", o.name)
		notify.Property = xproto.AtomNone
	default:
		if err := s.convert(o, req.Requestor, req.Target, notify.Property, buf); err != nil {
			s.log.Debug("Refused %s request for 0x%x: %s", o.name, req.Target, err)
			notify.Property = xproto.AtomNone
		}
	}
	if err := s.d.SendSelectionNotify(notify); err != nil {
		s.log.Warn("Failed to notify requestor 0x%x: %s", req.Requestor, err)
	}
}

// convert writes buf in the requested target format to prop on requestor.
func (s *Service) convert(o *ownership, requestor xproto.Window, target, prop xproto.Atom, buf []byte) error {
	name, err := s.d.AtomName(target)
	if err != nil {
		return err
	}
	switch name {
	case targetTargets:
		atoms := make([]uint32, 0, len(offeredTargets))
		for _, t := range offeredTargets {
			atom, err := s.d.Atom(t)
			if err != nil {
				return err
			}
			atoms = append(atoms, uint32(atom))
		}
		return s.d.ChangeProperty(requestor, xproto.PropModeReplace, prop, xproto.AtomAtom, 32, encodeWords(atoms))
	case targetTimestamp:
		return s.d.ChangeProperty(requestor, xproto.PropModeReplace, prop, xproto.AtomInteger, 32, encodeWords([]uint32{uint32(o.time)}))
	case targetUTF8, targetText:
		utf8, err := s.d.Atom(targetUTF8)
		if err != nil {
			return err
		}
		return s.d.ChangeProperty(requestor, xproto.PropModeReplace, prop, utf8, 8, buf)
	case targetMime:
		return s.d.ChangeProperty(requestor, xproto.PropModeReplace, prop, target, 8, buf)
	case targetString:
		return s.d.ChangeProperty(requestor, xproto.PropModeReplace, prop, xproto.AtomString, 8, encodeLatin1(string(buf)))
	case targetMultiple:
		return s.convertMultiple(o, requestor, prop, buf)
	}
	return fmt.Errorf("unsupported target %s", name)
}

// convertMultiple handles a MULTIPLE request. Pairs which cannot be converted
// have their property replaced with None.
func (s *Service) convertMultiple(o *ownership, requestor xproto.Window, prop xproto.Atom, buf []byte) error {
	reply, err := s.d.GetProperty(requestor, prop, false)
	if err != nil {
		return err
	}
	if reply.Format != 32 {
		return errors.New("MULTIPLE property is not a list of atom pairs")
	}
	pairs := decodeWords(reply.Value)
	if len(pairs)%2 != 0 {
		return errors.New("MULTIPLE property has an odd number of atoms")
	}
	for i := 0; i < len(pairs); i += 2 {
		target, dst := xproto.Atom(pairs[i]), xproto.Atom(pairs[i+1])
		if name, _ := s.d.AtomName(target); name == targetMultiple {
			pairs[i+1] = uint32(xproto.AtomNone)
			continue
		}
		if err := s.convert(o, requestor, target, dst, buf); err != nil {
			pairs[i+1] = uint32(xproto.AtomNone)
		}
	}
	pairType, err := s.d.Atom(typeAtomPair)
	if err != nil {
		return err
	}
	return s.d.ChangeProperty(requestor, xproto.PropModeReplace, prop, pairType, 32, encodeWords(pairs))
}

var errRefused = errors.New("conversion refused")

// requestor is a temporary window used to receive selection contents.
type requestor struct {
	s      *Service
	win    xproto.Window
	prop   xproto.Atom
	events <-chan xgb.Event
	cancel func()
}

func (s *Service) newRequestor() (*requestor, error) {
	prop, err := s.d.Atom(propTransfer)
	if err != nil {
		return nil, err
	}
	win, err := s.d.CreateWindow()
	if err != nil {
		return nil, err
	}
	events, cancel := s.d.Listen(win)
	return &requestor{s, win, prop, events, cancel}, nil
}

func (r *requestor) close() {
	r.cancel()
	if err := r.s.d.DestroyWindow(r.win); err != nil {
		r.s.log.Debug("Failed to destroy requestor window: %s", err)
	}
}

// convert asks the selection owner for the given target and returns the
// resulting data and its type.
func (r *requestor) convert(sel xproto.Atom, target string) ([]byte, xproto.Atom, error) {
	targetAtom, err := r.s.d.Atom(target)
	if err != nil {
		return nil, 0, err
	}
	if err := r.s.d.ConvertSelection(r.win, sel, targetAtom, r.prop, xproto.TimeCurrentTime); err != nil {
		return nil, 0, err
	}
	evt, err := waitFor(r.events, r.s.timeout, func(evt xgb.Event) bool {
		notify, ok := evt.(xproto.SelectionNotifyEvent)
		return ok && notify.Selection == sel
	})
	if err != nil {
		return nil, 0, err
	}
	if evt.(xproto.SelectionNotifyEvent).Property == xproto.AtomNone {
		return nil, 0, errRefused
	}

	reply, err := r.s.d.GetProperty(r.win, r.prop, true)
	if err != nil {
		return nil, 0, err
	}
	incr, err := r.s.d.Atom(typeIncr)
	if err != nil {
		return nil, 0, err
	}
	if reply.Type == incr {
		return r.readIncr()
	}
	return reply.Value, reply.Type, nil
}

// readIncr receives an incremental transfer. Deleting the INCR property has
// already signalled the owner to begin sending chunks; a zero-length chunk
// ends the transfer.
func (r *requestor) readIncr() ([]byte, xproto.Atom, error) {
	var (
		data []byte
		typ  xproto.Atom
	)
	for {
		_, err := waitFor(r.events, r.s.timeout, func(evt xgb.Event) bool {
			notify, ok := evt.(xproto.PropertyNotifyEvent)
			return ok && notify.Atom == r.prop && notify.State == xproto.PropertyNewValue
		})
		if err != nil {
			return nil, 0, fmt.Errorf("incremental transfer: %w", err)
		}
		reply, err := r.s.d.GetProperty(r.win, r.prop, true)
		if err != nil {
			return nil, 0, err
		}
		if len(reply.Value) == 0 {
			return data, typ, nil
		}
		typ = reply.Type
		data = append(data, reply.Value...)
	}
}

// encodeLatin1 converts text for the STRING target. Characters outside of
// Latin-1 become '?'.
func encodeLatin1(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = charmap.ISO8859_1.DecodeByte(b)
	}
	return string(runes)
}

func encodeWords(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		xgb.Put32(buf[i*4:], w)
	}
	return buf
}

func decodeWords(buf []byte) []uint32 {
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = xgb.Get32(buf[i*4:])
	}
	return words
}
