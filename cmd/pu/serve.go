package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/config"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/db"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/notify"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/server"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/sweeper"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cascade engine",
		Long:  "Starts the HTTP API and the background expiry sweep, and blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to engine config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// The sweep cron is the safety net behind the orchestrator's per-offer
	// timers: anything the timers miss gets expired here.
	c := cron.New()
	err = sweeper.Schedule(c, gormDB, cfg.Sweep.Cron,
		func(n int64) {
			if n > 0 {
				log.Printf("sweep: expired %d overdue offers", n)
			}
		},
		func(err error) {
			log.Printf("sweep: %v", err)
		},
	)
	if err != nil {
		return err
	}
	c.Start()
	defer c.Stop()
	fmt.Fprintf(out, "Expiry sweep scheduled (%s)\n", cfg.Sweep.Cron)

	return server.Start(ctx, server.StartOpts{
		DB:       gormDB,
		Port:     port,
		Out:      out,
		Policy:   policyFromConfig(cfg),
		LeadCost: cfg.Cascade.LeadCost,
		Alerter:  notify.NewAlerter(cfg.Alerts),
	})
}
