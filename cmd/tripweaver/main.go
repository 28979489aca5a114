package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tripweaver/internal/api"
	"tripweaver/pkg/config"
	"tripweaver/pkg/db"
	"tripweaver/pkg/dwell"
	"tripweaver/pkg/interests"
	"tripweaver/pkg/jobs"
	"tripweaver/pkg/llm"
	"tripweaver/pkg/llm/gemini"
	"tripweaver/pkg/logging"
	"tripweaver/pkg/places"
	"tripweaver/pkg/planner"
	"tripweaver/pkg/queue"
	"tripweaver/pkg/request"
	"tripweaver/pkg/routing"
	"tripweaver/pkg/store"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/tripweaver.yaml", "Path to the config file")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Optional .env for API keys in development.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("TripWeaver started", "config", configPath)

	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	catCfg, err := config.LoadCategories(cfg.Planner.CategoriesFile)
	if err != nil {
		return fmt.Errorf("failed to load categories config: %w", err)
	}

	q, closeQueue, err := initQueue(cfg, dbConn)
	if err != nil {
		return err
	}
	defer closeQueue()

	provider, err := initLLM(cfg)
	if err != nil {
		return err
	}

	reqClient := request.New(st)

	mapper := interests.NewMapper(provider, catCfg)
	searcher := places.NewClient(reqClient, cfg.Places)
	estimator := dwell.NewEstimator(provider, catCfg, cfg.Planner)
	router := initRouter(cfg, reqClient)

	pl := planner.New(mapper, searcher, estimator, router, provider, catCfg, cfg.Planner)
	manager := jobs.NewManager(st, q, cfg.Jobs)

	// Workers
	var wg sync.WaitGroup
	workers := cfg.Jobs.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 1; i <= workers; i++ {
		w := jobs.NewWorker(i, manager, q, pl, cfg.Queue, cfg.Jobs)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	// Expiry sweeper
	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.RunSweeper(ctx)
	}()

	// HTTP server
	srv := api.NewServer(cfg.Server.Address, api.NewItineraryHandler(manager))
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	wg.Wait()
	slog.Info("TripWeaver stopped")
	return nil
}

func initQueue(cfg *config.Config, dbConn *db.DB) (queue.Queue, func(), error) {
	switch cfg.Queue.Backend {
	case "", "sqlite":
		return queue.NewSQLiteQueue(dbConn), func() {}, nil
	case "memory":
		return queue.NewMemoryQueue(), func() {}, nil
	case "redis":
		rq, err := queue.NewRedisQueue(queue.RedisOptions{
			Address:   cfg.Queue.Redis.Address,
			Password:  cfg.Queue.Redis.Password,
			DB:        cfg.Queue.Redis.DB,
			Namespace: cfg.Queue.Redis.Namespace,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect redis queue: %w", err)
		}
		return rq, func() {
			if err := rq.Close(); err != nil {
				slog.Error("Redis close failed", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

func initLLM(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "", "gemini":
		client, err := gemini.NewClient(cfg.LLM, "logs/llm.log")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
		if err := client.HealthCheck(context.Background()); err != nil {
			slog.Warn("LLM provider not configured, planning degrades to keyword and category defaults", "error", err)
		}
		return client, nil
	case "mock":
		return llm.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func initRouter(cfg *config.Config, reqClient *request.Client) routing.Router {
	fallback := routing.NewFallback(cfg.Planner.AvgSpeedKmh)
	if cfg.Routing.Endpoint == "" {
		slog.Warn("No routing endpoint configured, using straight-line estimates")
		return fallback
	}

	client := routing.NewClient(reqClient, cfg.Routing)
	if cfg.Routing.FallbackEnabled {
		return routing.NewChain(client, fallback)
	}
	return client
}
