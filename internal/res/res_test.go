package res

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteResources(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	if err := WriteResources(); err != nil {
		t.Fatal(err)
	}
	dir := GetDataDirectory()
	if filepath.Base(dir) != "imitator" {
		t.Fatalf("unexpected data directory %s", dir)
	}
	config, err := os.ReadFile(filepath.Join(dir, DefaultConfigName))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(config, DefaultConfig) {
		t.Fatal("written config differs from embedded config")
	}

	// User edits to the charmap survive; stale configs are replaced.
	edited := []byte("\"@\": AltGr+q\n")
	if err := os.WriteFile(CharmapPath(), edited, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigName), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteResources(); err != nil {
		t.Fatal(err)
	}
	charmap, _ := os.ReadFile(CharmapPath())
	if !bytes.Equal(charmap, edited) {
		t.Fatal("charmap was overwritten")
	}
	config, _ = os.ReadFile(filepath.Join(dir, DefaultConfigName))
	if !bytes.Equal(config, DefaultConfig) {
		t.Fatal("stale config was not replaced")
	}
}
