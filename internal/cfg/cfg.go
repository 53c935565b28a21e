// Package cfg allows for reading the user's configuration.
package cfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tesselslate/imitator/internal/log"
	"github.com/tesselslate/imitator/internal/res"
)

// DefaultProfile is the profile used when $IMITATOR_PROFILE is not set.
const DefaultProfile = "default"

// minPollInterval mirrors the lower bound enforced by the window package.
const minPollInterval = 10 * time.Millisecond

// Log contains the logging settings.
type Log struct {
	Level   string `toml:"level"`   // Minimum level to log
	Path    string `toml:"path"`    // Log file path
	Console bool   `toml:"console"` // Whether to also log to stderr
}

// Keyboard contains the keyboard simulation settings.
type Keyboard struct {
	Remap        bool         `toml:"remap"`         // Bind missing characters to spare keycodes
	Raw          bool         `toml:"raw"`           // Disable {Name} directives
	Charmap      string       `toml:"charmap"`       // Charmap path
	WatchCharmap bool         `toml:"watch_charmap"` // Reload the charmap on change
	KeyDelay     Milliseconds `toml:"key_delay"`     // Delay after each character
	MappingDelay Milliseconds `toml:"mapping_delay"` // Delay after rebinding a keycode
}

// Window contains the window lookup settings.
type Window struct {
	PollInterval Milliseconds `toml:"poll_interval"`
	WaitTimeout  Milliseconds `toml:"wait_timeout"`
}

// Selection contains the selection settings.
type Selection struct {
	ReadTimeout Milliseconds `toml:"read_timeout"`
	Default     string       `toml:"default"` // clipboard, primary or secondary
}

// Drive contains the optical drive settings.
type Drive struct {
	Command string `toml:"command"`
	Device  string `toml:"device"`
}

// Profile contains an entire configuration profile.
type Profile struct {
	Display string `toml:"display"` // X display, $DISPLAY if empty

	Log       Log       `toml:"log"`
	Keyboard  Keyboard  `toml:"keyboard"`
	Window    Window    `toml:"window"`
	Selection Selection `toml:"selection"`
	Drive     Drive     `toml:"drive"`
}

// Milliseconds is a duration given in the configuration as a number of
// milliseconds, or as a Go duration string such as "1.5s".
type Milliseconds time.Duration

// Duration returns m as a time.Duration.
func (m Milliseconds) Duration() time.Duration {
	return time.Duration(m)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (m *Milliseconds) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("negative duration %d", v)
		}
		*m = Milliseconds(time.Duration(v) * time.Millisecond)
		return nil
	case string:
		return m.UnmarshalText([]byte(v))
	}
	return errors.New("duration was not a number or string")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Milliseconds) UnmarshalText(text []byte) error {
	d, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("negative duration %s", d)
	}
	*m = Milliseconds(d)
	return nil
}

// Default returns the built-in settings. They match the embedded default
// profile.
func Default() Profile {
	return Profile{
		Log: Log{
			Level: "info",
		},
		Keyboard: Keyboard{
			Remap:        true,
			MappingDelay: Milliseconds(10 * time.Millisecond),
		},
		Window: Window{
			PollInterval: Milliseconds(250 * time.Millisecond),
			WaitTimeout:  Milliseconds(10 * time.Second),
		},
		Selection: Selection{
			ReadTimeout: Milliseconds(2 * time.Second),
			Default:     "clipboard",
		},
		Drive: Drive{
			Command: "eject",
		},
	}
}

// ProfileName returns the name of the profile selected by $IMITATOR_PROFILE.
func ProfileName() string {
	if name := os.Getenv("IMITATOR_PROFILE"); name != "" {
		return name
	}
	return DefaultProfile
}

// GetDirectory returns the path to the user's configuration directory.
func GetDirectory() (string, error) {
	// UserConfigDir checks $XDG_CONFIG_HOME and falls back to $HOME/.config.
	xdgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgDir, "imitator"), nil
}

// GetProfile returns a parsed configuration profile. Settings missing from the
// profile keep their defaults, and a missing profile yields the defaults.
func GetProfile(name string) (Profile, error) {
	dir, err := GetDirectory()
	if err != nil {
		return Profile{}, fmt.Errorf("get config directory: %w", err)
	}
	profile := Default()
	file, err := os.ReadFile(filepath.Join(dir, name+".toml"))
	if err != nil && !os.IsNotExist(err) {
		return Profile{}, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		if profile, err = Parse(file); err != nil {
			return Profile{}, err
		}
	}
	if path := os.Getenv("IMITATOR_LOG_PATH"); path != "" {
		profile.Log.Path = path
	}
	return profile, nil
}

// Parse parses and validates a profile. Missing settings keep their defaults.
func Parse(data []byte) (Profile, error) {
	profile := Default()
	meta, err := toml.Decode(string(data), &profile)
	if err != nil {
		return Profile{}, fmt.Errorf("parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Profile{}, fmt.Errorf("parse config file: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, fmt.Errorf("validate config: %w", err)
	}
	return profile, nil
}

// Validate ensures that the profile does not have any illegal or invalid
// settings.
func (p *Profile) Validate() error {
	if _, err := log.ParseLevel(p.Log.Level); err != nil {
		return err
	}
	if p.Window.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll interval %s is below %s", p.Window.PollInterval.Duration(), minPollInterval)
	}
	if p.Window.WaitTimeout <= 0 {
		return errors.New("invalid window wait timeout")
	}
	if p.Selection.ReadTimeout <= 0 {
		return errors.New("invalid selection read timeout")
	}
	switch strings.ToLower(p.Selection.Default) {
	case "clipboard", "primary", "secondary":
	default:
		return fmt.Errorf("invalid default selection %q", p.Selection.Default)
	}
	if p.Drive.Command == "" {
		return errors.New("missing drive command")
	}
	return nil
}

// MakeProfile makes a new configuration profile with the given name and the
// default settings. An existing profile is not overwritten.
func MakeProfile(name string) (string, error) {
	dir, err := GetDirectory()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(dir, name+".toml")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create profile: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(res.DefaultConfig); err != nil {
		return "", fmt.Errorf("write profile: %w", err)
	}
	return path, nil
}
