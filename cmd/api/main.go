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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sbomify/assessments/internal/application"
	"github.com/sbomify/assessments/internal/application/analysis"
	"github.com/sbomify/assessments/internal/application/engine"
	"github.com/sbomify/assessments/internal/application/orchestrator"
	"github.com/sbomify/assessments/internal/application/registry"
	"github.com/sbomify/assessments/internal/application/settings"
	appstatus "github.com/sbomify/assessments/internal/application/status"
	"github.com/sbomify/assessments/internal/config"
	"github.com/sbomify/assessments/internal/domain/plugins"
	aiclient "github.com/sbomify/assessments/internal/infra/ai/openai"
	"github.com/sbomify/assessments/internal/infra/billing"
	mysqlp "github.com/sbomify/assessments/internal/infra/db/mysql"
	"github.com/sbomify/assessments/internal/infra/httpserver"
	"github.com/sbomify/assessments/internal/infra/plugins/deptrack"
	"github.com/sbomify/assessments/internal/infra/plugins/license"
	"github.com/sbomify/assessments/internal/infra/plugins/ntia"
	"github.com/sbomify/assessments/internal/infra/queue"
	minioStore "github.com/sbomify/assessments/internal/infra/storage"
	"github.com/sbomify/assessments/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if d := cfg.Database.Driver; d != "" && d != "mysql" {
		// repo postgres baru mencakup run + mapping store; binary utama
		// tetap jalan di mysql
		log.Fatalf("unsupported database driver %q", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// connect MySQL
	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql connect error: %v", err)
	}
	defer db.Close()

	// init repos
	runRepo := mysqlp.NewRunRepository(db)
	settingsRepo := mysqlp.NewSettingsRepository(db)
	mappingRepo := mysqlp.NewMappingRepository(db)
	taskRepo := mysqlp.NewTaskRepository(db)
	analysisRepo := mysqlp.NewAnalysisRepository(db)
	catalogRepo := mysqlp.NewCatalogRepository(db)

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// plan feature gate dari config
	gate := billing.NewStaticGate(cfg.Features)

	// registry + builtin plugins
	servers := make(map[string]*deptrack.Client, len(cfg.ScannerServers))
	for _, s := range cfg.ScannerServers {
		if err := middleware.ValidateServerURL(s.URL); err != nil {
			log.Fatalf("scanner server %s: %v", s.Name, err)
		}
		servers[s.Name] = deptrack.NewClient(s.URL, s.APIKey)
	}
	reg := registry.New()
	mustRegister(reg, ntia.Catalog(), ntia.New())
	mustRegister(reg, license.Catalog(), license.New())
	mustRegister(reg, deptrack.Catalog(), &deptrack.Plugin{
		Servers:  deptrack.NewStaticDirectory(servers),
		Mappings: mappingRepo,
	})
	reg.RegisterResolver("deptrack_servers", func(_ context.Context, _ string) []plugins.Choice {
		out := make([]plugins.Choice, 0, len(cfg.ScannerServers))
		for _, s := range cfg.ScannerServers {
			out = append(out, plugins.Choice{Value: s.Name, Label: s.Name})
		}
		return out
	})

	// init services
	engineSvc := &engine.Service{
		Registry: reg,
		Runs:     runRepo,
		Catalog:  catalogRepo,
		Content:  store,
		Queue:    taskRepo,
		Clock:    application.SystemClock{},
	}
	orchSvc := &orchestrator.Service{
		Registry: reg,
		Settings: settingsRepo,
		Gate:     gate,
		Runs:     runRepo,
		Catalog:  catalogRepo,
		Queue:    taskRepo,
	}
	// selesai satu run, orchestrator dijalankan ulang supaya plugin yang
	// bergantung pada run lain ikut terjadwal
	engineSvc.Orchestrate = orchSvc
	settingsSvc := &settings.Service{Registry: reg, Repo: settingsRepo, Gate: gate}
	statusSvc := &appstatus.Service{Runs: runRepo, Catalog: catalogRepo}
	analysisSvc := analysis.NewService(
		aiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		runRepo,
		analysisRepo,
		application.SystemClock{},
	)

	// worker pool menarik task dari tabel antrian
	pollInterval := time.Duration(cfg.Queue.PollSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	pool := &queue.Pool{
		Store:        taskRepo,
		Exec:         engineSvc,
		Workers:      cfg.Queue.Workers,
		PollInterval: pollInterval,
	}
	go pool.Run(ctx)

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.RateLimitMiddleware(100, 10))
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"storage":  &middleware.PingChecker{Target: store},
	}))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(orchSvc, statusSvc, settingsSvc, analysisSvc, runRepo, catalogRepo))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")
	cancel()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func mustRegister(reg *registry.Registry, catalog plugins.RegisteredPlugin, impl plugins.Plugin) {
	if err := reg.Register(catalog, impl); err != nil {
		log.Fatalf("registering plugin %s: %v", catalog.Name, err)
	}
}
