package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"seasonbot/internal/api"
	"seasonbot/internal/assistant"
	"seasonbot/internal/catalog"
	"seasonbot/internal/config"
	"seasonbot/internal/geo"
	"seasonbot/internal/intent"
	"seasonbot/internal/logger"
	"seasonbot/internal/models/providers"
	"seasonbot/internal/monitoring"
	"seasonbot/internal/order"
	"seasonbot/internal/schedule"
	"seasonbot/internal/storage"
	"seasonbot/internal/widget"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Initialize context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}

	logs := logger.New(cfg.Log)
	defer logs.Close()
	gin.SetMode(gin.ReleaseMode)
	mainLog := logs.Component("main")

	// Load menu
	menu, err := loadCatalog(cfg.MenuFile)
	if err != nil {
		log.Fatalf("Failed to load menu: %v", err)
	}

	monitor := monitoring.NewMonitor()
	metrics := monitoring.NewMetricsCollector(monitor)
	router := intent.NewRouter(menu)

	// Initialize LLM
	provider, err := providers.New(cfg.LLM, router, assistant.ToolName)
	if err != nil {
		log.Fatalf("Failed to initialize LLM: %v", err)
	}
	client := assistant.NewClient(provider, menu, cfg.Rules, cfg.Assistant, logs.Component("assistant"), metrics)

	// Initialize storage
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	persistence := storage.NewPersistence(store, logs.Component("storage"), metrics)

	manager := widget.NewManager(widget.Deps{
		Catalog:     menu,
		Router:      router,
		Assistant:   client,
		Reducer:     order.NewReducer(menu, cfg.Rules),
		Persistence: persistence,
		Geocoder:    geo.NewNominatim(cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout),
		Logger:      logs.Component("widget"),
		Metrics:     metrics,
		Clock:       clockwork.NewRealClock(),
		UpdateDelay: cfg.Sessions.UpdateDelay,
	})
	persistence.WithActive(manager.Active)

	// Background jobs
	jobs, err := schedule.NewJobs(logs.Component("jobs"))
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := persistence.ScheduleSweep(jobs, cfg.Sessions.SweepInterval); err != nil {
		log.Fatalf("Failed to schedule retention sweep: %v", err)
	}
	if err := manager.ScheduleEviction(jobs, cfg.Sessions.EvictInterval, cfg.Sessions.IdleTimeout); err != nil {
		log.Fatalf("Failed to schedule session eviction: %v", err)
	}
	jobs.Start()

	tokens, err := api.NewTokenIssuer(cfg.Server.TokenSecret, cfg.Server.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize session tokens: %v", err)
	}

	// Initialize API server
	srv := api.NewServer(api.Options{
		Manager: manager,
		Catalog: menu,
		Tokens:  tokens,
		Metrics: metrics,
		Monitor: monitor,
		Logger:  logs,
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", api.TokenHeader},
	})

	// Start metrics server
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = newMetricsServer(cfg.Metrics, metrics)
		go func() {
			mainLog.Info("starting metrics server", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				mainLog.Error("metrics server error", "error", err)
			}
		}()
	}

	// Start API server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: c.Handler(srv.Router()),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		mainLog.Info("shutting down servers")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLog.Error("API server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				mainLog.Error("metrics server shutdown error", "error", err)
			}
		}

		cancel() // Cancel main context
	}()

	mainLog.Info("starting API server",
		"port", cfg.Server.Port,
		"provider", client.ProviderName(),
		"storage", cfg.Storage.Backend)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}

	<-ctx.Done()
	if err := jobs.Shutdown(); err != nil {
		mainLog.Error("scheduler shutdown error", "error", err)
	}
	manager.Close()
	if err := store.Close(); err != nil {
		mainLog.Error("storage close error", "error", err)
	}
	mainLog.Info("shutdown complete")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func newMetricsServer(cfg config.MetricsConfig, metrics *monitoring.MetricsCollector) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.GET(cfg.Path, gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: metricsRouter,
	}
}
