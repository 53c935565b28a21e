package cfg

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tesselslate/imitator/internal/res"
)

func TestEmbeddedDefault(t *testing.T) {
	profile, err := Parse(res.DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(profile, Default()) {
		t.Fatalf("embedded profile differs from defaults:\n%+v\n%+v", profile, Default())
	}
}

func TestParse(t *testing.T) {
	profile, err := Parse([]byte(`
display = ":1"

[keyboard]
key_delay = "1.5s"
mapping_delay = 25

[window]
poll_interval = 50
`))
	if err != nil {
		t.Fatal(err)
	}
	if profile.Display != ":1" {
		t.Errorf("got display %q", profile.Display)
	}
	if profile.Keyboard.KeyDelay.Duration() != 1500*time.Millisecond {
		t.Errorf("got key delay %s", profile.Keyboard.KeyDelay.Duration())
	}
	if profile.Keyboard.MappingDelay.Duration() != 25*time.Millisecond {
		t.Errorf("got mapping delay %s", profile.Keyboard.MappingDelay.Duration())
	}
	if profile.Window.PollInterval.Duration() != 50*time.Millisecond {
		t.Errorf("got poll interval %s", profile.Window.PollInterval.Duration())
	}
	// Untouched settings keep their defaults.
	if !profile.Keyboard.Remap || profile.Selection.Default != "clipboard" {
		t.Errorf("defaults were lost: %+v", profile)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{
		"[window]\npoll_interval = 5\n",
		"[keyboard]\nkey_delay = -1\n",
		"[keyboard]\nkey_delay = true\n",
		"[log]\nlevel = \"loud\"\n",
		"[selection]\ndefault = \"nope\"\n",
		"[selection]\nread_timeout = 0\n",
		"bogus = 1\n",
		"not toml",
	} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestProfiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("IMITATOR_LOG_PATH", "")

	// A missing profile yields the defaults.
	profile, err := GetProfile("missing")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(profile, Default()) {
		t.Fatal("missing profile did not yield defaults")
	}

	path, err := MakeProfile("work")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "work.toml" {
		t.Fatalf("unexpected profile path %s", path)
	}
	if _, err := MakeProfile("work"); err == nil {
		t.Fatal("existing profile was overwritten")
	}
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IMITATOR_LOG_PATH", "/tmp/other.log")
	profile, err = GetProfile("work")
	if err != nil {
		t.Fatal(err)
	}
	if profile.Log.Level != "debug" || profile.Log.Path != "/tmp/other.log" {
		t.Fatalf("unexpected log settings %+v", profile.Log)
	}
}

func TestProfileName(t *testing.T) {
	t.Setenv("IMITATOR_PROFILE", "")
	if got := ProfileName(); got != DefaultProfile {
		t.Fatalf("got %q", got)
	}
	t.Setenv("IMITATOR_PROFILE", "games")
	if got := ProfileName(); got != "games" {
		t.Fatalf("got %q", got)
	}
}
