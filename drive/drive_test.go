package drive

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tesselslate/imitator/internal/log"
)

type result struct {
	stdout, stderr string
	err            error
}

type fakeRunner struct {
	results map[string]result
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)
	r := f.results[call]
	return r.stdout, r.stderr, r.err
}

func newRunner() *fakeRunner {
	return &fakeRunner{results: map[string]result{
		"eject -d":            {stdout: "eject: default device: `/dev/sr0'"},
		"eject -n /dev/sr0":   {stdout: "eject: device is `/dev/sr0'"},
		"eject -n /dev/bogus": {err: errors.New("exit status 1")},
		"eject -t /dev/sr0":   {stderr: "eject: CD-ROM tray close command failed: Input/output error"},
	}}
}

func TestDefault(t *testing.T) {
	r := newRunner()
	dev, err := Default(context.Background(), r, "")
	if err != nil {
		t.Fatal(err)
	}
	if dev != "/dev/sr0" {
		t.Fatalf("got %q", dev)
	}

	r.results["eject -d"] = result{stdout: "garbage"}
	if _, err := Default(context.Background(), r, ""); err == nil {
		t.Fatal("expected error for unparsable output")
	}
}

func TestNew(t *testing.T) {
	r := newRunner()
	d, err := New(context.Background(), "", Options{Runner: r, Logger: log.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	if d.Device() != "/dev/sr0" {
		t.Fatalf("got device %q", d.Device())
	}
	if _, err := New(context.Background(), "/dev/bogus", Options{Runner: r}); err == nil {
		t.Fatal("expected error for missing drive")
	}
}

func TestOperations(t *testing.T) {
	r := newRunner()
	d, err := New(context.Background(), "/dev/sr0", Options{Runner: r})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := d.Eject(ctx); err != nil {
		t.Fatal(err)
	}
	if err := d.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if !d.Locked() {
		t.Fatal("drive not locked")
	}
	if err := d.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if d.Locked() {
		t.Fatal("drive still locked")
	}

	err = d.Close(ctx)
	if err == nil || !strings.Contains(err.Error(), "Input/output error") {
		t.Fatalf("got %v, want stderr text", err)
	}

	want := []string{
		"eject -n /dev/sr0",
		"eject /dev/sr0",
		"eject -i on /dev/sr0",
		"eject -i off /dev/sr0",
		"eject -t /dev/sr0",
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Fatalf("got calls %v, want %v", r.calls, want)
	}
}
