package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yairkad/vaad-bayit-sub000/api"
	"github.com/Yairkad/vaad-bayit-sub000/invite"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var autoMaterialize bool
	var checkInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if autoMaterialize && checkInterval <= 0 {
				return fmt.Errorf("--check-interval must be positive, got %v", checkInterval)
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			// Initialize store
			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			// Initialize handler
			handler := api.NewHandler(store, invite.NewService(store, cfg.InviteTTL))
			handler.PublicURL = cfg.PublicURL
			if cfg.DevMode {
				handler.DevSecret = cfg.JWTSecret
				log.Println("[Server] Dev mode: demo scenarios enabled")
			}

			scheduler := api.NewMaterializeScheduler(store, handler.Materializer)
			scheduler.Enabled = autoMaterialize
			scheduler.CheckInterval = checkInterval
			scheduler.Start()
			defer scheduler.Stop()

			// Create router
			router := api.NewRouter(handler, api.RouterOptions{
				JWTSecret:       cfg.JWTSecret,
				CORSOrigins:     cfg.CORSOrigins,
				RedeemPerMinute: cfg.InviteRatePerMin,
				DevMode:         cfg.DevMode,
			})

			// Create server
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Start server in goroutine
			failed := make(chan error, 1)
			go func() {
				log.Printf("[Server] Starting on http://localhost:%d (driver=%s)", cfg.Port, cfg.DBDriver)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					failed <- err
				}
			}()

			// Wait for interrupt signal
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-failed:
				return fmt.Errorf("server failed: %w", err)
			case <-quit:
			}

			log.Println("[Server] Shutting down...")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			log.Println("[Server] Stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoMaterialize, "auto-materialize", false, "materialize the current month for every building in the background")
	cmd.Flags().DurationVar(&checkInterval, "check-interval", time.Hour, "how often the background materializer checks")

	return cmd
}
