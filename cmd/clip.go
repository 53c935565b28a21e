package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/selection"
	"github.com/tesselslate/imitator/x11"
)

var (
	clipSelection string
	clipPersist   bool
)

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Read and own X selections",
	Long: `Read and own the CLIPBOARD, PRIMARY and SECONDARY selections.

An X selection lives only as long as its owner, so "clip write" keeps serving
the text until another client takes the selection over or it is interrupted.
With --persist, the text is handed to a running clipboard manager instead.`,
}

var clipReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Print the contents of a selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, name, err := selectionService()
		if err != nil {
			return err
		}
		defer svc.Close()
		text, err := svc.Read(name)
		if err != nil {
			return err
		}
		sess.out.Raw(text)
		return nil
	},
}

var clipWriteCmd = &cobra.Command{
	Use:   "write [TEXT...]",
	Short: "Own a selection with the given text (or standard input)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		svc, name, err := selectionService()
		if err != nil {
			return err
		}
		defer svc.Close()
		if clipPersist && name != selection.Clipboard {
			return fmt.Errorf("clipboard managers only save %s, not %s", selection.Clipboard, name)
		}
		if err := svc.Write(name, text); err != nil {
			return err
		}
		status := svc.Status(name)
		sess.log.Info("Owning %s (session %s, %d bytes)", name, status.Session, status.Size)

		if clipPersist {
			err := svc.Persist(name)
			if errors.Is(err, x11.ErrUnsupported) {
				return errors.New("no clipboard manager is running")
			} else if err != nil {
				return err
			}
			sess.out.Ok("Handed %s to the clipboard manager", name)
			return nil
		}
		err = svc.Wait(cmd.Context(), name)
		if errors.Is(err, selection.ErrOwnershipLost) {
			sess.log.Info("Lost ownership of %s", name)
			return nil
		} else if cmd.Context().Err() != nil {
			return nil
		}
		return err
	},
}

var clipClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear a selection, whoever owns it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, name, err := selectionService()
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.Clear(name)
	},
}

var clipStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who owns each selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := display()
		if err != nil {
			return err
		}
		for _, name := range selection.Names {
			atom, err := x.Atom(string(name))
			if err != nil {
				return err
			}
			owner, err := x.SelectionOwner(atom)
			if err != nil {
				return err
			}
			if owner == 0 {
				sess.out.Field(string(name), 10, "unowned")
			} else {
				sess.out.Field(string(name), 10, fmt.Sprintf("owned by 0x%x", owner))
			}
		}
		return nil
	},
}

var clipPersistCmd = &cobra.Command{
	Use:   "persist [TEXT...]",
	Short: "Hand text to the clipboard manager and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		clipPersist = true
		return clipWriteCmd.RunE(cmd, args)
	},
}

func init() {
	clipCmd.PersistentFlags().StringVarP(&clipSelection, "selection", "s", "", "selection to use: clipboard, primary or secondary")
	clipWriteCmd.Flags().BoolVar(&clipPersist, "persist", false, "hand the text to a clipboard manager and exit")

	clipCmd.AddCommand(clipReadCmd, clipWriteCmd, clipClearCmd, clipStatusCmd, clipPersistCmd)
	rootCmd.AddCommand(clipCmd)
}

// selectionService creates a selection service and resolves the selection
// named by --selection, falling back to the profile's default.
func selectionService() (*selection.Service, selection.Name, error) {
	raw := clipSelection
	if raw == "" {
		raw = sess.profile.Selection.Default
	}
	name, err := selection.ParseName(raw)
	if err != nil {
		return nil, "", err
	}
	x, err := display()
	if err != nil {
		return nil, "", err
	}
	svc := selection.New(x, selection.Options{
		Timeout: sess.profile.Selection.ReadTimeout.Duration(),
		Logger:  sess.log,
	})
	return svc, name, nil
}
