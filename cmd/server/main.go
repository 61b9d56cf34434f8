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

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/config"
	"github.com/blues/tracker/internal/database"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/repository"
	"github.com/blues/tracker/internal/router"
	"github.com/blues/tracker/internal/scheduler"
	"github.com/blues/tracker/internal/seed"
	"github.com/blues/tracker/internal/store"
	"github.com/blues/tracker/internal/store/memory"
	"github.com/spf13/cobra"
)

var (
	// CLI flags
	configFlag string
	seedFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Issue tracker API server",
		Long: `tracker serves the issue tracker HTTP API.

Configuration is read from config.yaml (., ./config, /etc/issuetracker),
a .env file, and TRACKER_* environment variables.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a config file. Overrides the search paths.")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and scheduled jobs",
		RunE:  runServe,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load teams and issues from a YAML fixtures file",
		RunE:  runSeed,
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "config/fixtures.yaml", "Fixtures file to load.")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup 加载配置并初始化日志
func setup() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// openStore 按 database.driver 选择存储
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store, data will be lost on exit")
		return memory.New(), nil
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, err
	}
	return repository.New(db, time.Duration(cfg.Database.Poll)*time.Second), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	// 启动定时任务
	tasks, err := scheduler.Start(st, cfg)
	if err != nil {
		return err
	}
	defer tasks.Stop()

	// 初始化路由
	r := router.Setup(st, auth.NewHeaderProvider(), cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate requires database.driver=%s", config.DriverPostgres)
	}
	if _, err := database.Init(cfg.Database); err != nil {
		return err
	}
	logger.Info("Database migrated")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	fixtures, err := seed.LoadFile(seedFile)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	result, err := seed.NewSeeder(st).Apply(cmd.Context(), fixtures)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d teams, %d issues\n", result.Teams, result.Issues)
	return nil
}
