// Package server exposes the cascade engine over HTTP: lead intake, the
// orchestrator's advance trigger, the artisan acceptance endpoint, the
// sweep trigger, and the notification outbox for the dispatcher.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/cascade"
	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/notify"
)

// StartOpts holds configuration for the engine HTTP server.
type StartOpts struct {
	DB       *gorm.DB
	Port     int
	Out      io.Writer
	Policy   cascade.Policy
	LeadCost int
	Alerter  *notify.Alerter
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.LeadCost < 1 {
		opts.LeadCost = 1
	}

	router := NewRouter(opts)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Cascade engine listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin router with all engine routes registered.
func NewRouter(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
