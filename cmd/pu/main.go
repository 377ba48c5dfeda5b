package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/cascade"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/config"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "plombier.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pu",
		Short: "Plombier Urgent — lead cascade attribution engine",
		Long:  "Plombier Urgent assigns incoming plumbing leads to artisans through a timed offer cascade.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newLeadCmd())
	cmd.AddCommand(newArtisanCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pu %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// policyFromConfig maps the cascade and accept sections onto the policy
// the engine runs with.
func policyFromConfig(cfg *config.Config) cascade.Policy {
	return cascade.Policy{
		MaxRounds:     cfg.Cascade.MaxRounds,
		OfferWindow:   cfg.Cascade.OfferWindow.Std(),
		WaveWindow:    cfg.Cascade.WaveWindow.Std(),
		WaveSize:      cfg.Cascade.WaveSize,
		AcceptBaseURL: cfg.Accept.BaseURL,
		TokenSecret:   cfg.Accept.TokenSecret,
		TokenSkew:     cfg.Accept.TokenSkew.Std(),
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
