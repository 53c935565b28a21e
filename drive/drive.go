// Package drive opens, closes and locks optical drives by running the eject
// command.
package drive

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tesselslate/imitator/internal/log"
)

// DefaultCommand is the command used when none is configured.
const DefaultCommand = "eject"

// Runner runs an external command and returns its output. A non-zero exit
// status is reported as an error alongside the output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// eject -d prints the device between a backtick or quote and a closing quote.
var defaultPattern = regexp.MustCompile("[`'\"]([^`'\"]+)['\"]")

// Default returns the name of the default drive, as reported by eject -d.
func Default(ctx context.Context, r Runner, command string) (string, error) {
	if command == "" {
		command = DefaultCommand
	}
	stdout, stderr, err := r.Run(ctx, command, "-d")
	if err := check(err, stderr); err != nil {
		return "", errors.Wrap(err, "get default drive")
	}
	m := defaultPattern.FindStringSubmatch(stdout)
	if m == nil {
		return "", errors.Errorf("get default drive: unexpected output %q", stdout)
	}
	return m[1], nil
}

// Drive is a single optical drive.
type Drive struct {
	r       Runner
	command string
	device  string
	log     *log.Logger

	mu     sync.Mutex
	locked bool
}

// Options configures a Drive.
type Options struct {
	// Command is the eject command to run. DefaultCommand is used if empty.
	Command string
	// Runner runs the command. ExecRunner is used if nil.
	Runner Runner
	Logger *log.Logger
}

// New returns a Drive for the given device file or mount point. An empty
// device selects the default drive. The device is checked with eject -n.
func New(ctx context.Context, device string, opts Options) (*Drive, error) {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if device == "" {
		def, err := Default(ctx, opts.Runner, opts.Command)
		if err != nil {
			return nil, err
		}
		device = def
	}
	if _, _, err := opts.Runner.Run(ctx, opts.Command, "-n", device); err != nil {
		return nil, errors.Errorf("no such drive: %q", device)
	}
	return &Drive{
		r:       opts.Runner,
		command: opts.Command,
		device:  device,
		log:     opts.Logger,
	}, nil
}

// Device returns the device file or mount point of the drive.
func (d *Drive) Device() string {
	return d.device
}

// Eject opens the drive tray.
func (d *Drive) Eject(ctx context.Context) error {
	return d.run(ctx, "eject")
}

// Close closes the drive tray. Most laptop drives cannot do this and report
// an I/O error.
func (d *Drive) Close(ctx context.Context) error {
	return d.run(ctx, "close", "-t")
}

// Lock disables the drive's eject button.
func (d *Drive) Lock(ctx context.Context) error {
	if err := d.run(ctx, "lock", "-i", "on"); err != nil {
		return err
	}
	d.mu.Lock()
	d.locked = true
	d.mu.Unlock()
	return nil
}

// Release enables the drive's eject button again.
func (d *Drive) Release(ctx context.Context) error {
	if err := d.run(ctx, "release", "-i", "off"); err != nil {
		return err
	}
	d.mu.Lock()
	d.locked = false
	d.mu.Unlock()
	return nil
}

// Locked reports whether the drive was locked through this Drive. Locks
// placed by other processes are not detected.
func (d *Drive) Locked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked
}

func (d *Drive) run(ctx context.Context, op string, args ...string) error {
	args = append(args, d.device)
	d.log.Debug("Running %s %s", d.command, strings.Join(args, " "))
	_, stderr, err := d.r.Run(ctx, d.command, args...)
	if err := check(err, stderr); err != nil {
		return errors.Wrapf(err, "%s %s", op, d.device)
	}
	return nil
}

// check turns a failed run into an error. Output on stderr counts as failure
// even with a zero exit status.
func check(err error, stderr string) error {
	switch {
	case stderr != "":
		return errors.New(stderr)
	case err != nil:
		return errors.WithStack(err)
	}
	return nil
}
