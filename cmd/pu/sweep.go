package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/config"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/db"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/sweeper"
)

func newSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep",
		Long: `Expires every pending offer whose deadline has passed and lists leads
whose cascade is stalled without a live offer. Useful when the engine was
down and timers were missed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	n, err := sweeper.SweepExpired(gormDB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Expired %d overdue offers\n", n)

	stalled, err := sweeper.OverdueLeadIDs(gormDB)
	if err != nil {
		return err
	}
	if len(stalled) == 0 {
		fmt.Fprintln(out, "No stalled leads")
		return nil
	}
	fmt.Fprintf(out, "%d leads need an advance:\n", len(stalled))
	for _, id := range stalled {
		fmt.Fprintf(out, "  %s\n", id)
	}
	fmt.Fprintln(out, "Run 'pu lead advance <id>' or let the orchestrator pick them up.")
	return nil
}
