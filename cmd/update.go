package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledsim/internal/logging"
	"github.com/smazurov/ledsim/internal/updater"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var opts updater.Options
	var checkOnly, rollback bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace this binary with the latest release",
		Long: `Downloads the latest GitHub release for this platform and installs it over the ` +
			`running executable, keeping a backup for --rollback. Restart the service afterwards.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			logger := logging.GetLogger("updater")
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			u, err := updater.New(opts)
			if err != nil {
				logger.Error("Failed to create updater", "error", err)
				os.Exit(1)
			}

			switch {
			case rollback:
				v, err := u.Rollback()
				if err != nil {
					logger.Error("Rollback failed", "error", err)
					os.Exit(1)
				}
				fmt.Printf("Restored %s\n", v)

			case checkOnly:
				info, err := u.Check(ctx)
				if err != nil {
					logger.Error("Update check failed", "error", err)
					os.Exit(1)
				}
				if info.UpdateAvailable {
					fmt.Printf("Update available: %s -> %s\n%s\n", info.CurrentVersion, info.LatestVersion, info.ReleaseURL)
				} else {
					fmt.Printf("Up to date (%s)\n", info.CurrentVersion)
				}

			default:
				info, err := u.Apply(ctx)
				if updater.CodeOf(err) == updater.ErrCodeNoUpdate {
					fmt.Printf("Up to date (%s)\n", info.CurrentVersion)
					return
				}
				if err != nil {
					logger.Error("Update failed", "error", err)
					os.Exit(1)
				}
				fmt.Printf("Updated %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			}
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	cmd.Flags().BoolVar(&opts.Prerelease, "prerelease", false, "Consider prereleases")
	cmd.Flags().StringVar(&opts.Repository, "repository", updater.DefaultRepository, "GitHub repository (owner/name)")
	return cmd
}
