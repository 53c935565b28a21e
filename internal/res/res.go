// Package res contains the resources embedded within imitator: the default
// configuration profile and the default charmap.
package res

import (
	"crypto/sha1"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	DefaultConfigName  = "default.toml"
	DefaultCharmapName = "charmap.yml"
)

// DefaultConfig contains the default configuration profile.
//
//go:embed default.toml
var DefaultConfig []byte

// DefaultCharmap contains the default charmap.
//
//go:embed charmap.yml
var DefaultCharmap []byte

// dataDir contains the directory in which resources are stored. It is assigned
// by WriteResources on startup.
var dataDir string

// This variable is intended for packagers. It can be modified using LDFLAGS
// to move the data directory somewhere else. Resources are not written to an
// overridden data directory.
var overrideDataDir string

// getDataDirectory returns the path to the data directory for imitator. If an
// override was specified at build time, it will be used. Otherwise,
// $XDG_DATA_HOME/imitator or $HOME/.local/share/imitator will be used.
func getDataDirectory() (string, error) {
	if overrideDataDir != "" {
		return overrideDataDir, nil
	}
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "imitator"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "imitator"), nil
}

// GetDataDirectory returns the data directory chosen by WriteResources.
func GetDataDirectory() string {
	return dataDir
}

// CharmapPath returns the path of the charmap in the data directory.
func CharmapPath() string {
	return filepath.Join(dataDir, DefaultCharmapName)
}

// WriteResources writes the embedded resources to the data directory if they
// are missing or out of date.
func WriteResources() error {
	dir, err := getDataDirectory()
	if err != nil {
		return errors.Wrap(err, "get data dir")
	}
	dataDir = dir
	if overrideDataDir != "" {
		return nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	if err := unix.Access(dataDir, unix.W_OK); err != nil {
		return errors.Wrap(err, "access data dir")
	}

	resources := map[string][]byte{
		DefaultConfigName: DefaultConfig,
	}
	for name, contents := range resources {
		path := filepath.Join(dataDir, name)
		// Only overwrite if changed.
		if file, err := os.ReadFile(path); err == nil {
			if sha1.Sum(contents) == sha1.Sum(file) {
				continue
			}
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "read %s", name)
		}
		if err := os.WriteFile(path, contents, 0644); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
	}

	// The charmap is meant to be edited, so it is only written once.
	path := CharmapPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, DefaultCharmap, 0644); err != nil {
			return errors.Wrapf(err, "write %s", DefaultCharmapName)
		}
	}
	return nil
}
