package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"playermap/internal/config"
	"playermap/internal/handler"
	"playermap/internal/hub"
	"playermap/internal/pump"
	"playermap/internal/repository/sqlite"
	"playermap/internal/scene"
	"playermap/internal/service"
	"playermap/internal/telemetry"
	"playermap/internal/watcher"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Config file path (default: search "+config.EnvConfigPath+", ./"+config.ConfigFileName+", XDG, /etc)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	scenePath := flag.String("scene", "", "Scene fixture to load, .yaml or .json (overrides config)")
	watch := flag.Bool("watch", false, "Reload the scene fixture when it changes")
	initConfig := flag.Bool("init", false, "Write a default config file and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := writeDefaultConfig(path); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Printf("Wrote default config to %s", path)
		return
	}

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *scenePath != "" {
		cfg.Scene.Path = *scenePath
	}
	if *watch {
		cfg.Scene.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Println("Starting playermap...")
	if loadedFrom != "" {
		log.Printf("Config loaded from %s", loadedFrom)
	}
	for _, line := range strings.Split(cfg.Summary(), "\n") {
		log.Printf("  %s", line)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// Host graph
	graph := scene.NewMemory()
	sceneName := "scene"
	if cfg.Scene.Path != "" {
		s, err := watcher.Load(cfg.Scene.Path, graph)
		if err != nil {
			log.Fatalf("Failed to load scene: %v", err)
		}
		sceneName = s.Name
		log.Printf("Scene %q loaded: %d nodes", s.Name, len(s.Nodes))
	} else {
		log.Println("No scene configured, starting with an empty graph")
	}

	// Scan journal, in memory only
	journal, err := sqlite.New(sqlite.MemoryDSN, sqlite.DefaultRetention)
	if err != nil {
		log.Fatalf("Failed to open scan journal: %v", err)
	}
	defer journal.Close()

	// Initialize event bus and SSE hub
	eventBus := service.NewEventBus()
	sseHub := hub.New(log.Default())
	go sseHub.Run(ctx)
	sseHub.Forward(ctx, eventBus)

	tracker, err := service.NewTrackerService(cfg.Tracker(), service.Deps{
		Graph:   graph,
		Factory: graph,
		Events:  eventBus,
		Journal: journal,
		Logger:  log.Default(),
	}, time.Now())
	if err != nil {
		log.Fatalf("Failed to create tracker: %v", err)
	}

	engine := pump.New(tracker, pump.Config{
		FrameInterval: cfg.Scan.FrameInterval.Duration(),
	}, log.Default())

	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- engine.Run(ctx)
	}()

	if cfg.Scene.Path != "" && cfg.Scene.Watch {
		w := watcher.New(cfg.Scene.Path, graph, func(reason string) {
			if err := engine.RequestRearm(reason); err != nil {
				log.Printf("Failed to queue rearm: %v", err)
			}
		}, log.Default()).WithDebounce(cfg.Scene.Debounce.Duration())
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Scene watcher stopped: %v", err)
			}
		}()
	}

	// Setup routes
	trackerHandler := handler.NewTrackerHandler(engine, graph, log.Default())
	trackerHandler.SetJournal(journal)
	trackerHandler.SetProjector(cfg.Projector())
	trackerHandler.SetSceneName(sceneName)

	mux := http.NewServeMux()
	trackerHandler.Register(mux)

	// SSE events endpoint
	mux.Handle("GET /events", sseHub)

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover(log.Default()),
		handler.CORS,
		handler.Logger(log.Default()),
	)

	// Create server. No write timeout: /events streams.
	server := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     finalHandler,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	select {
	case err := <-pumpDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Pump stopped with error: %v", err)
		}
	case <-shutdownCtx.Done():
		log.Println("Pump did not stop in time")
	}

	log.Printf("Stopped after %d frames", engine.Frames())
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return config.DefaultConfig().Save(path)
}
