package x11

import (
	"sync"

	"github.com/tesselslate/imitator/internal/log"
)

var (
	shared   *Client
	sharedMu sync.Mutex
)

// Shared returns the process-wide connection, opening it against display on
// first use. Once a connection is open, display is ignored and the existing
// connection is returned.
func Shared(display string, logger *log.Logger) (*Client, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		return shared, nil
	}
	c, err := open(display, logger)
	if err != nil {
		return nil, err
	}
	shared = c
	return c, nil
}

// CloseShared closes the process-wide connection, if one is open.
func CloseShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		return
	}
	shared.Close()
	shared = nil
}
