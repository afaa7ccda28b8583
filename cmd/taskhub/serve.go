package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/config"
	"github.com/jonathan/taskhub/internal/server"
	"github.com/jonathan/taskhub/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the model catalog, estimates, per-user preferences and result normalization.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persistence, closePersistence, err := openPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePersistence()

	cat := catalog.Default()
	srv, err := server.New(server.Config{
		Port:        servePort,
		JWT:         jwtCfg,
		RateLimit:   ratelimit.LoadConfig(),
		Persistence: persistence,
		Catalog:     cat,
		Estimator:   newEstimator(cfg, cat),
		Normalizer:  newNormalizer(cfg, cat),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
