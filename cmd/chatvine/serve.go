package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mbaleeiro/chatvine"
	"github.com/mbaleeiro/chatvine/internal/config"
	"github.com/mbaleeiro/chatvine/internal/logging"
	"github.com/mbaleeiro/chatvine/pkg/adapters/file"
	"github.com/mbaleeiro/chatvine/pkg/adapters/httpapi"
	redisAdapter "github.com/mbaleeiro/chatvine/pkg/adapters/redis"
	"github.com/mbaleeiro/chatvine/pkg/trigger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the flow engine in server mode, exposing message ingestion, flow documents and auto-arrange over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		if err := runServe(cfgPath); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to the YAML config file")
}

func runServe(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := logging.New(parseLevel(cfg.LogLevel))

	flows, err := file.NewFlowStore(cfg.FlowDir)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []chatvine.Option{
		chatvine.WithFlowStore(flows),
		chatvine.WithLogger(logger),
		chatvine.WithMetrics(trigger.NewMetrics(reg)),
	}

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, chatvine.WithSessionStore(redisAdapter.NewFromClient(client)))
		if cfg.Redis.Lock {
			opts = append(opts, chatvine.WithLocker(redisAdapter.NewLocker(client, "chatvine:session:")))
		}
	}

	eng, err := chatvine.New(opts...)
	if err != nil {
		return err
	}

	if cfg.SweepInterval != "" {
		interval, err := time.ParseDuration(cfg.SweepInterval)
		if err != nil {
			return fmt.Errorf("invalid sweep_interval: %w", err)
		}
		sweepCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		eng.Trigger().StartSweeper(sweepCtx, interval)
	}

	handler := httpapi.NewHandler(eng.Trigger(), eng.Flows(), reg, httpapi.WithLogger(logger))

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "flows", cfg.FlowDir)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("server stopped gracefully")
		return nil
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
