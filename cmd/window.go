package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/window"
	"golang.org/x/sys/unix"
)

var (
	windowTimeout time.Duration
	windowAll     bool
	windowSignal  string
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Find and manipulate windows",
	Long: `Find and manipulate windows. Commands taking a WINDOW accept:

  title:REGEXP   first client window whose title matches
  class:REGEXP   first client window whose WM_CLASS matches
  id:ID          window ID, decimal or 0x-prefixed
  active         the window manager's active window
  focused        the window holding the input focus
  root           the root window

Anything else is a window ID if it parses as a number, and a title pattern
otherwise.`,
}

// windowAction builds a command which runs fn on the window named by its
// first argument.
func windowAction(use, short string, nargs int, fn func(w *window.Window, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directory()
			if err != nil {
				return err
			}
			w, err := findWindow(dir, args[0])
			if err != nil {
				return err
			}
			sess.log.Debug("%s: %s", cmd.Name(), w)
			return fn(w, args[1:])
		},
	}
}

var windowFindCmd = &cobra.Command{
	Use:   "find WINDOW",
	Short: "Print the ID and title of a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := directory()
		if err != nil {
			return err
		}
		if !windowAll {
			w, err := findWindow(dir, args[0])
			if err != nil {
				return err
			}
			printWindow(w)
			return nil
		}
		loc, err := window.ParseLocator(args[0])
		if err != nil {
			return err
		}
		if loc.Pattern == nil {
			return fmt.Errorf("--all needs a title or class pattern, not %s", loc)
		}
		var matches []*window.Window
		if loc.Kind == window.ByClass {
			matches, err = dir.FindAllByClass(loc.Pattern)
		} else {
			matches, err = dir.FindAll(loc.Pattern)
		}
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("%s: %w", loc, window.ErrNotFound)
		}
		for _, w := range matches {
			printWindow(w)
		}
		return nil
	},
}

var windowWaitCmd = &cobra.Command{
	Use:   "wait WINDOW",
	Short: "Wait until a window exists and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := directory()
		if err != nil {
			return err
		}
		loc, err := window.ParseLocator(args[0])
		if err != nil {
			return err
		}
		w, err := dir.Wait(cmd.Context(), loc, waitTimeout())
		if err != nil {
			return err
		}
		printWindow(w)
		return nil
	},
}

var windowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List client windows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := directory()
		if err != nil {
			return err
		}
		windows, err := dir.List()
		if err != nil {
			return err
		}
		for _, w := range windows {
			printWindow(w)
		}
		return nil
	},
}

var windowInfoCmd = windowAction("info WINDOW", "Show details about a window", 0, func(w *window.Window, _ []string) error {
	title, err := w.Title()
	if err != nil {
		return err
	}
	out := sess.out
	out.Header(w.String())
	out.Field("id", 9, fmt.Sprintf("0x%x", uint32(w.ID())))
	out.Field("title", 9, strconv.Quote(title))
	if instance, class, err := w.Class(); err == nil {
		out.Field("class", 9, fmt.Sprintf("%s (%s)", class, instance))
	}
	if pid, err := w.Pid(); err == nil {
		out.Field("pid", 9, pid)
	}
	if x, y, err := w.Position(); err == nil {
		out.Field("position", 9, fmt.Sprintf("%d,%d", x, y))
	}
	if width, height, err := w.Size(); err == nil {
		out.Field("size", 9, fmt.Sprintf("%dx%d", width, height))
	}
	if mapped, err := w.Mapped(); err == nil {
		out.Field("mapped", 9, mapped)
	}
	if visible, err := w.Visible(); err == nil {
		out.Field("visible", 9, visible)
	}
	return nil
})

var windowMoveCmd = windowAction("move WINDOW X Y", "Move a window", 2, func(w *window.Window, args []string) error {
	x, y, err := parsePair(args)
	if err != nil {
		return err
	}
	return w.Move(x, y)
})

var windowResizeCmd = windowAction("resize WINDOW WIDTH HEIGHT", "Resize a window", 2, func(w *window.Window, args []string) error {
	width, height, err := parsePair(args)
	if err != nil {
		return err
	}
	return w.Resize(width, height)
})

var windowKillProcessCmd = windowAction("kill-process WINDOW", "Signal the process owning a window", 0, func(w *window.Window, _ []string) error {
	sig, err := parseSignal(windowSignal)
	if err != nil {
		return err
	}
	return w.KillProcess(sig)
})

var windowWaitCloseCmd = &cobra.Command{
	Use:   "wait-close WINDOW",
	Short: "Wait until a window no longer exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := directory()
		if err != nil {
			return err
		}
		w, err := findWindow(dir, args[0])
		if err != nil {
			return err
		}
		return w.WaitForClose(cmd.Context(), waitTimeout())
	},
}

func init() {
	for _, c := range []*cobra.Command{windowWaitCmd, windowWaitCloseCmd} {
		c.Flags().DurationVarP(&windowTimeout, "timeout", "t", 0, "give up after this long (default from profile)")
	}
	windowFindCmd.Flags().BoolVarP(&windowAll, "all", "a", false, "print every matching window")
	windowKillProcessCmd.Flags().StringVar(&windowSignal, "signal", "TERM", "signal to send, by name or number")

	windowCmd.AddCommand(
		windowFindCmd,
		windowWaitCmd,
		windowListCmd,
		windowInfoCmd,
		lookupCmd("active", "Print the active window", (*window.Directory).ActiveWindow),
		lookupCmd("focused", "Print the window holding the input focus", (*window.Directory).FocusedWindow),
		lookupCmd("root", "Print the root window", func(d *window.Directory) (*window.Window, error) {
			return d.DefaultRoot(), nil
		}),
		windowAction("activate WINDOW", "Ask the window manager to activate a window", 0, simple((*window.Window).Activate)),
		windowAction("focus WINDOW", "Give a window the input focus", 0, simple((*window.Window).Focus)),
		windowAction("unfocus WINDOW", "Move the input focus to the root window", 0, simple((*window.Window).Unfocus)),
		windowAction("map WINDOW", "Map a window", 0, simple((*window.Window).Map)),
		windowAction("unmap WINDOW", "Unmap a window", 0, simple((*window.Window).Unmap)),
		windowAction("raise WINDOW", "Raise a window to the top of the stack", 0, simple((*window.Window).Raise)),
		windowMoveCmd,
		windowResizeCmd,
		windowAction("close WINDOW", "Politely ask a window to close", 0, simple((*window.Window).Close)),
		windowAction("kill WINDOW", "Destroy a window", 0, simple((*window.Window).Destroy)),
		windowAction("kill-client WINDOW", "Disconnect the client owning a window", 0, simple((*window.Window).KillClient)),
		windowKillProcessCmd,
		windowWaitCloseCmd,
	)
	rootCmd.AddCommand(windowCmd)
}

func lookupCmd(use, short string, fn func(*window.Directory) (*window.Window, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := directory()
			if err != nil {
				return err
			}
			w, err := fn(dir)
			if err != nil {
				return err
			}
			printWindow(w)
			return nil
		},
	}
}

func simple(fn func(*window.Window) error) func(*window.Window, []string) error {
	return func(w *window.Window, _ []string) error {
		return fn(w)
	}
}

func directory() (*window.Directory, error) {
	x, err := display()
	if err != nil {
		return nil, err
	}
	return window.NewDirectory(x, window.Options{
		PollInterval: sess.profile.Window.PollInterval.Duration(),
		Logger:       sess.log,
	}), nil
}

func findWindow(dir *window.Directory, s string) (*window.Window, error) {
	loc, err := window.ParseLocator(s)
	if err != nil {
		return nil, err
	}
	return dir.Find(loc)
}

func waitTimeout() time.Duration {
	if windowTimeout > 0 {
		return windowTimeout
	}
	return sess.profile.Window.WaitTimeout.Duration()
}

func printWindow(w *window.Window) {
	title, err := w.Title()
	if err != nil {
		title = w.CachedTitle()
	}
	if sess.out.Styled() {
		sess.out.Field(fmt.Sprintf("0x%08x", uint32(w.ID())), 10, title)
		return
	}
	sess.out.Plain(fmt.Sprintf("0x%08x\t%s", uint32(w.ID()), title))
}

func parsePair(args []string) (int, int, error) {
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", args[0])
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", args[1])
	}
	return a, b, nil
}

// parseSignal accepts signal numbers and names with or without the SIG
// prefix.
func parseSignal(s string) (syscall.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return syscall.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", s)
	}
	return sig, nil
}
