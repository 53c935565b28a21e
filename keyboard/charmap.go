package keyboard

import (
	"fmt"
	"os"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v2"
)

// Charmap maps characters onto the key combinations which type them on the
// user's layout, such as "@" to "AltGr+q". It is loaded from a YAML file
// containing a single mapping of characters to combos.
type Charmap struct {
	path    string
	entries map[rune]Action
	mu      sync.RWMutex
}

// ParseCharmap parses the contents of a charmap file.
func ParseCharmap(data []byte) (map[rune]Action, error) {
	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse charmap: %w", err)
	}
	entries := make(map[rune]Action, len(raw))
	for char, combo := range raw {
		if utf8.RuneCountInString(char) != 1 {
			return nil, fmt.Errorf("charmap key %q is not a single character", char)
		}
		r, _ := utf8.DecodeRuneInString(char)
		action, err := ParseCombo(combo)
		if err != nil {
			return nil, fmt.Errorf("charmap entry for %q: %w", char, err)
		}
		entries[r] = action
	}
	return entries, nil
}

// NewCharmap creates a charmap from already parsed entries. It has no
// backing file and cannot be reloaded.
func NewCharmap(entries map[rune]Action) *Charmap {
	return &Charmap{entries: entries}
}

// LoadCharmap reads the charmap at path. If the file does not exist, fallback
// is parsed instead and the charmap remains bound to path so that creating
// the file later can be picked up by Reload.
func LoadCharmap(path string, fallback []byte) (*Charmap, error) {
	c := &Charmap{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data = fallback
	} else if err != nil {
		return nil, fmt.Errorf("read charmap: %w", err)
	}
	if c.entries, err = ParseCharmap(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the charmap file. The previous entries are kept if the
// file is invalid.
func (c *Charmap) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read charmap: %w", err)
	}
	entries, err := ParseCharmap(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Lookup returns the combo for the given character.
func (c *Charmap) Lookup(r rune) (Action, bool) {
	if c == nil {
		return Action{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	action, ok := c.entries[r]
	return action, ok
}

// Len returns the number of entries in the charmap.
func (c *Charmap) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Path returns the file the charmap was loaded from.
func (c *Charmap) Path() string {
	return c.path
}
