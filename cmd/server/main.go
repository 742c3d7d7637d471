package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onlinejudge/internal/api"
	"onlinejudge/internal/appstate"
	"onlinejudge/internal/assetstore"
	"onlinejudge/internal/comparator"
	"onlinejudge/internal/config"
	"onlinejudge/internal/judge"
	"onlinejudge/internal/judgeconfig"
	"onlinejudge/internal/logging"
	"onlinejudge/internal/metrics"
	"onlinejudge/internal/queue"
	"onlinejudge/internal/store"
	"onlinejudge/internal/workspace"
)

func main() {
	var (
		serviceConfigPath = flag.String("service-config", os.Getenv("SERVICE_CONFIG"), "path to the operational service.yaml")
		judgeConfigPath   string
		flushData         bool
	)
	flag.StringVar(&judgeConfigPath, "config", "config.json", "path to the judge config document (problems, languages)")
	flag.StringVar(&judgeConfigPath, "c", "config.json", "shorthand for -config")
	flag.BoolVar(&flushData, "flush-data", false, "wipe the durable store before loading")
	flag.BoolVar(&flushData, "f", false, "shorthand for -flush-data")
	flag.Parse()

	cfg, err := config.Load(*serviceConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("onlinejudge", logging.ParseLevel(cfg.Log.Level))

	doc, err := judgeconfig.Load(judgeConfigPath)
	if err != nil {
		log.Fatal("failed to load judge config", map[string]interface{}{"error": err.Error()})
	}
	if doc.Server.BindAddress != nil {
		cfg.Server.BindAddress = *doc.Server.BindAddress
	}
	if doc.Server.BindPort != nil {
		cfg.Server.BindPort = *doc.Server.BindPort
	}
	catalog := judgeconfig.NewCatalog(doc)

	m := metrics.New()

	assets, err := assetstore.New(cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialize asset store", map[string]interface{}{"error": err.Error()})
	}

	workspaces, err := workspace.NewManager(cfg.Workspace.Root, assets)
	if err != nil {
		log.Fatal("failed to initialize workspace manager", map[string]interface{}{"error": err.Error()})
	}

	db, err := store.New(cfg.Database, cfg.CircuitBreaker, m)
	if err != nil {
		log.Fatal("failed to connect to store", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if flushData {
		if err := db.Flush(ctx); err != nil {
			log.Fatal("failed to flush store", map[string]interface{}{"error": err.Error()})
		}
	}

	state, err := appstate.New(ctx, db)
	if err != nil {
		log.Fatal("failed to initialize application state", map[string]interface{}{"error": err.Error()})
	}

	cmp := comparator.New(cfg.CircuitBreaker, m)
	pipeline := judge.NewPipeline(workspaces, cmp, m, log)

	queueClient, err := queue.NewClient(cfg.RabbitMQ)
	if err != nil {
		log.Fatal("failed to connect to queue", map[string]interface{}{"error": err.Error()})
	}
	defer queueClient.Close()

	worker := judge.NewWorker(state, catalog, pipeline, queueClient, log, m)

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting judge worker")
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			errChan <- fmt.Errorf("judge worker: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	handler := api.NewHandler(state, catalog, worker, m, log, cfg.Server.EnableTestHooks, func() {
		quit <- syscall.SIGTERM
	})
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting http server", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("service error", map[string]interface{}{"error": err.Error()})
	case <-quit:
		log.Info("shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("onlinejudge stopped")
}
