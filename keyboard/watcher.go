package keyboard

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/tesselslate/imitator/internal/log"
)

// WatchError represents an error encountered by a charmap watcher.
type WatchError struct {
	Err   error
	Fatal bool
}

// Watcher reloads a Charmap whenever its file is written.
type Watcher struct {
	Errors  chan WatchError
	Reloads chan int // Entry count after each successful reload

	charmap *Charmap
	log     *log.Logger
	stopch  chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// Watch spawns a goroutine which reloads the charmap whenever its file is
// created or written. The containing directory is watched so that editors
// which replace the file are handled.
func Watch(charmap *Charmap, logger *log.Logger) (*Watcher, error) {
	if charmap.Path() == "" {
		return nil, fmt.Errorf("charmap has no backing file")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(charmap.Path())); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{
		Errors:  make(chan WatchError, 32),
		Reloads: make(chan int, 32),
		charmap: charmap,
		log:     logger,
		stopch:  make(chan struct{}),
		done:    make(chan struct{}),
		watcher: fsw,
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	defer w.watcher.Close()
	target := filepath.Clean(w.charmap.Path())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.report(WatchError{Err: fmt.Errorf("watcher closed"), Fatal: true})
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.charmap.Reload(); err != nil {
				w.log.Warn("Failed to reload charmap: %s", err)
				w.report(WatchError{Err: err})
				continue
			}
			w.log.Info("Reloaded charmap (%d entries)", w.charmap.Len())
			select {
			case w.Reloads <- w.charmap.Len():
			default:
			}
		case err, ok := <-w.watcher.Errors:
			w.report(WatchError{Err: err, Fatal: !ok})
			if !ok {
				return
			}
		case <-w.stopch:
			return
		}
	}
}

func (w *Watcher) report(err WatchError) {
	select {
	case w.Errors <- err:
	default:
		w.log.Error("Dropped charmap watcher error: %s", err.Err)
	}
}

// Stop stops the watcher and waits for it to exit.
func (w *Watcher) Stop() {
	close(w.stopch)
	<-w.done
}
