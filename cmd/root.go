// Package cmd implements the imitator command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tesselslate/imitator/internal/cfg"
	"github.com/tesselslate/imitator/internal/log"
	"github.com/tesselslate/imitator/internal/res"
	"github.com/tesselslate/imitator/internal/terminal"
	"github.com/tesselslate/imitator/x11"
)

// Version is set during build.
var Version = "0.1.0-dev"

const defaultLogPath = "/tmp/imitator.log"

var (
	profileName string
	logLevel    string

	rootCmd = &cobra.Command{
		Use:   "imitator",
		Short: "imitator - keyboard, mouse and window automation for X11",
		Long: `imitator simulates keyboard and mouse input, owns and reads X selections,
and finds and manipulates windows on an X11 display.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) { teardown() },
	}
)

// session holds the state shared by all commands during one invocation.
type session struct {
	profile cfg.Profile
	log     *log.Logger
	out     *terminal.Printer
}

var sess session

// Execute runs the root command.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		sess.log.Error("%s", err)
		teardown()
	}
	return err
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "configuration profile (default $IMITATOR_PROFILE or \"default\")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the profile's log level")
}

// setup loads the profile, opens the log and installs resources. The X
// connection is opened lazily by the commands that need it.
func setup(cmd *cobra.Command, _ []string) error {
	if profileName == "" {
		profileName = cfg.ProfileName()
	}
	profile, err := cfg.GetProfile(profileName)
	if err != nil {
		return err
	}
	if logLevel != "" {
		profile.Log.Level = logLevel
	}
	level, err := log.ParseLevel(profile.Log.Level)
	if err != nil {
		return err
	}
	if profile.Log.Path == "" {
		profile.Log.Path = defaultLogPath
	}
	logger, err := log.DefaultLogger("imitator", level, profile.Log.Path, profile.Log.Console)
	if err != nil {
		return err
	}
	logger.Debug("Running %q with profile %s", cmd.CommandPath(), profileName)
	if err := res.WriteResources(); err != nil {
		logger.Warn("Failed to write resources: %s", err)
	}
	sess = session{
		profile: profile,
		log:     logger,
		out:     terminal.NewPrinter(cmd.OutOrStdout()),
	}
	return nil
}

func teardown() {
	x11.CloseShared()
	sess.log.Close()
}

// display returns the shared X connection for the profile's display.
func display() (*x11.Client, error) {
	return x11.Shared(sess.profile.Display, sess.log)
}
