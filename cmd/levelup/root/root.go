package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"levelup/internal/ui"
)

const Version = "0.1.0"

var (
	configPath string
	dbPath     string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "levelup",
		Short:         "Levelup: turn goals into skill trees and level up",
		Long:          "Levelup keeps goals, their generated skill trees, and your XP, streak and attributes in a local database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Version = Version
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.levelup/config.yaml)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides db_path)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")

	cmd.AddCommand(
		newGoalCmd(),
		newTreeCmd(),
		newNodeCmd(),
		newDoCmd(),
		newListCmd(),
		newStatusCmd(),
		newAchievementsCmd(),
		newBoardCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
