package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/drive"
)

var driveDevice string

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Control the optical drive tray",
}

var driveDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the default drive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := drive.Default(cmd.Context(), drive.ExecRunner{}, sess.profile.Drive.Command)
		if err != nil {
			return err
		}
		sess.out.Plain(dev)
		return nil
	},
}

var driveLockedCmd = &cobra.Command{
	Use:   "locked",
	Short: "Report whether the drive was locked by this command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDrive(cmd.Context())
		if err != nil {
			return err
		}
		sess.out.Plain(boolString(d.Locked()))
		return nil
	},
}

// driveAction builds a command which runs fn on the selected drive.
func driveAction(use, short string, fn func(*drive.Drive, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDrive(cmd.Context())
			if err != nil {
				return err
			}
			return fn(d, cmd.Context())
		},
	}
}

func init() {
	driveCmd.PersistentFlags().StringVarP(&driveDevice, "device", "d", "", "drive device (default from profile, then eject -d)")
	driveCmd.AddCommand(
		driveDefaultCmd,
		driveAction("eject", "Open the tray", (*drive.Drive).Eject),
		driveAction("close", "Close the tray", (*drive.Drive).Close),
		driveAction("lock", "Lock the eject button", (*drive.Drive).Lock),
		driveAction("release", "Unlock the eject button", (*drive.Drive).Release),
		driveLockedCmd,
	)
	rootCmd.AddCommand(driveCmd)
}

func openDrive(ctx context.Context) (*drive.Drive, error) {
	device := driveDevice
	if device == "" {
		device = sess.profile.Drive.Device
	}
	return drive.New(ctx, device, drive.Options{
		Command: sess.profile.Drive.Command,
		Logger:  sess.log,
	})
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
