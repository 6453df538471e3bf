package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/schan/internal/config"
	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/router"
	"github.com/itchan-dev/schan/internal/service"
	"github.com/itchan-dev/schan/internal/setup"
)

const shutdownTimeout = 15 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:           "schan",
	Short:         "Anonymous imageboard server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

var updateBoardsCmd = &cobra.Command{
	Use:   "update-boards",
	Short: "Reset the board registry to the built-in list",
	RunE:  runUpdateBoards,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional yaml config file")
	rootCmd.AddCommand(serveCmd, updateBoardsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.JSON)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Info("server started", "component", "main", "addr", server.Addr, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down", "component", "main")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Log.Info("server stopped", "component", "main")
	return nil
}

func runUpdateBoards(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := setup.OpenStore(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	boards, err := service.NewBoard(store, domain.DefaultBoards).UpdateBoards(cmd.Context())
	if err != nil {
		return err
	}
	logger.Log.Info("boards updated", "component", "main", "count", len(boards))
	return nil
}
