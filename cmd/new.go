package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/internal/cfg"
	"github.com/tesselslate/imitator/internal/res"
)

var newCmd = &cobra.Command{
	Use:   "new PROFILE",
	Short: "Create a profile with the default configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cfg.MakeProfile(args[0])
		if err != nil {
			return err
		}
		sess.log.Info("Created profile %s", path)
		sess.out.Ok("Created profile %s", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and file locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess.out.Header("imitator " + Version)
		if dir, err := cfg.GetDirectory(); err == nil {
			sess.out.Field("config", 7, dir)
		}
		sess.out.Field("data", 7, res.GetDataDirectory())
		sess.out.Field("log", 7, sess.profile.Log.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd, versionCmd)
}
