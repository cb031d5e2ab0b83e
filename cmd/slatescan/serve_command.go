package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramaral11/slatescan/internal/api"
	"github.com/ramaral11/slatescan/internal/config"
	"github.com/ramaral11/slatescan/internal/db"
	"github.com/ramaral11/slatescan/internal/history"
	"github.com/ramaral11/slatescan/internal/logging"
)

func newServeCommand(configFlag *string) *cobra.Command {
	var port int
	var outputDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs and slate images for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Serve.Port = port
			}
			if cmd.Flags().Changed("output") {
				cfg.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8791, "Port for the review server")
	cmd.Flags().StringVarP(&outputDir, "output", "o", config.DefaultOutputDir, "Output directory holding slate images")

	return cmd
}

func runServe(cmd *cobra.Command, cfg config.Config) error {
	logger := logging.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer database.Close()

	outputDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve output folder: %w", err)
	}

	server := api.NewServer(api.ServerConfig{
		Port:       cfg.Serve.Port,
		OutputDir:  outputDir,
		Repository: history.NewRepository(database.Conn()),
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  time.Now(),
		Version:    version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Review server listening on http://%s\n", server.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
