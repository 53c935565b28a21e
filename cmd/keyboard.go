package cmd

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/internal/res"
	"github.com/tesselslate/imitator/keyboard"
)

var typeFlags struct {
	raw   bool
	remap bool
	stdin bool
	watch bool
}

var typeCmd = &cobra.Command{
	Use:   "type [TEXT...]",
	Short: "Type text",
	Long: `Type the given text. Directives such as {Enter}, {Ctrl+a} or {F5} press the
named keys unless --raw is given. With --stdin, each line read from standard
input is typed as it arrives.`,
	Example: `  imitator type 'Hello, world{Enter}'
  tail -f script.txt | imitator type --stdin --watch`,
	RunE: runType,
}

var keyCmd = &cobra.Command{
	Use:   "key COMBO...",
	Short: "Press and release key combos",
	Example: `  imitator key Ctrl+Alt+t
  imitator key Super+Return U+20AC`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := newKeyboard(nil)
		if err != nil {
			return err
		}
		for _, combo := range args {
			keys, err := k.Key(combo)
			if err != nil {
				return err
			}
			sess.log.Debug("Pressed %s", strings.Join(keys, "+"))
		}
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down KEY",
	Short: "Hold a key down",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := newKeyboard(nil)
		if err != nil {
			return err
		}
		return k.Down(args[0])
	},
}

var upCmd = &cobra.Command{
	Use:   "up KEY",
	Short: "Release a held key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := newKeyboard(nil)
		if err != nil {
			return err
		}
		return k.Up(args[0])
	},
}

var deleteForward bool

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one character (BackSpace, or Delete with --forward)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := newKeyboard(nil)
		if err != nil {
			return err
		}
		return k.Delete(deleteForward)
	},
}

func init() {
	typeCmd.Flags().BoolVar(&typeFlags.raw, "raw", false, "type {Name} directives literally")
	typeCmd.Flags().BoolVar(&typeFlags.remap, "remap", true, "bind characters missing from the layout to spare keycodes")
	typeCmd.Flags().BoolVar(&typeFlags.stdin, "stdin", false, "type lines read from standard input")
	typeCmd.Flags().BoolVar(&typeFlags.watch, "watch", false, "reload the charmap when it changes")
	deleteCmd.Flags().BoolVar(&deleteForward, "forward", false, "delete forward")

	rootCmd.AddCommand(typeCmd, keyCmd, downCmd, upCmd, deleteCmd)
}

// loadCharmap loads the profile's charmap, or the one in the data directory.
func loadCharmap() (*keyboard.Charmap, error) {
	path := sess.profile.Keyboard.Charmap
	if path == "" && res.GetDataDirectory() != "" {
		path = res.CharmapPath()
	}
	return keyboard.LoadCharmap(path, res.DefaultCharmap)
}

// newKeyboard creates a keyboard using the profile's settings. If charmap is
// nil, it is loaded.
func newKeyboard(charmap *keyboard.Charmap) (*keyboard.Keyboard, error) {
	x, err := display()
	if err != nil {
		return nil, err
	}
	if charmap == nil {
		if charmap, err = loadCharmap(); err != nil {
			return nil, err
		}
	}
	conf := sess.profile.Keyboard
	return keyboard.New(x, keyboard.Options{
		Charmap:      charmap,
		KeyDelay:     conf.KeyDelay.Duration(),
		MappingDelay: conf.MappingDelay.Duration(),
		Remap:        conf.Remap,
		Logger:       sess.log,
	}), nil
}

func runType(cmd *cobra.Command, args []string) error {
	conf := sess.profile.Keyboard
	opts := keyboard.SimulateOptions{
		Remap: conf.Remap,
		Raw:   conf.Raw,
	}
	if cmd.Flags().Changed("remap") {
		opts.Remap = typeFlags.remap
	}
	if cmd.Flags().Changed("raw") {
		opts.Raw = typeFlags.raw
	}
	if !typeFlags.stdin && len(args) == 0 {
		return errors.New("no text given (pass TEXT or --stdin)")
	}

	charmap, err := loadCharmap()
	if err != nil {
		return err
	}
	k, err := newKeyboard(charmap)
	if err != nil {
		return err
	}
	if !typeFlags.stdin {
		return k.Simulate(strings.Join(args, " "), opts)
	}

	if typeFlags.watch || conf.WatchCharmap {
		w, err := keyboard.Watch(charmap, sess.log)
		if err != nil {
			return err
		}
		stop := make(chan struct{})
		defer func() {
			close(stop)
			w.Stop()
		}()
		go func() {
			for {
				select {
				case n := <-w.Reloads:
					sess.log.Info("Reloaded charmap (%d entries)", n)
				case werr := <-w.Errors:
					sess.log.Warn("Charmap watcher: %s", werr.Err)
				case <-stop:
					return
				}
			}
		}()
	}
	return typeLines(cmd, k, os.Stdin, opts)
}

// typeLines types every line of r, including its line break, until r ends or
// the command is interrupted.
func typeLines(cmd *cobra.Command, k *keyboard.Keyboard, r io.Reader, opts keyboard.SimulateOptions) error {
	ctx := cmd.Context()
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if err := k.Simulate(line, opts); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
