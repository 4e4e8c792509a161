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

	"dataloom/internal/adapter"
	"dataloom/internal/api"
	"dataloom/internal/cache"
	"dataloom/internal/config"
	"dataloom/internal/ontology"
	"dataloom/internal/repository"
	"dataloom/internal/service"
	"dataloom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	logger.Init()
	logger.Info("Starting dataloom ingestion pipeline")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoStore, err := config.NewMongoStore(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoStore.Close(context.Background())

	graphStore, err := config.NewGraphStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j:", err)
	}
	defer graphStore.Close(context.Background())

	influxStore, err := config.NewInfluxStore(cfg)
	if err != nil {
		log.Fatal("Failed to connect to InfluxDB:", err)
	}
	defer influxStore.Close()

	// Repositories
	sources := repository.NewMongoSourceRepo(mongoStore)
	imports := repository.NewMongoImportRepo(mongoStore)
	staging := repository.NewMongoStagingRepo(mongoStore)
	mappings := repository.NewMongoMappingRepo(mongoStore)
	graph := repository.NewNeo4jGraphRepo(graphStore)
	timeseries := repository.NewInfluxTimeseriesRepo(influxStore)

	// Shared cache and ontology resolver
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	appCache := cache.New(cacheTTL)
	defer appCache.Close()
	resolver := ontology.NewCachedResolver(ontology.NewHTTPClient(cfg.OntologyURL), appCache, cacheTTL)

	// Pipeline services
	stats := &service.Stats{}
	registry := service.NewRegistry(mappings, resolver, appCache, cacheTTL)
	engine := service.NewEngine()
	persister := service.NewPersister(graph, timeseries, staging, imports)
	stager := service.NewStager(staging, imports, registry, stats)
	processor := service.NewProcessor(staging, sources, registry, engine, persister, stats,
		cfg.BatchSize, time.Duration(cfg.ProcessInterval)*time.Millisecond)

	adapters := adapter.NewSet(stager)
	scheduler := adapter.NewScheduler(adapters, sources)

	svc := service.NewService(sources, imports, staging, registry, processor, adapters, scheduler, stats,
		time.Duration(cfg.RetentionSweep)*time.Minute)
	if err := svc.Start(ctx); err != nil {
		log.Fatal("Failed to start services:", err)
	}

	router := setupRouter(svc)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info(fmt.Sprintf("Server starting on port %d", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced shutdown: %v", err)
	}

	// Stop acquisition before the processor so no import opens after the
	// last sweep.
	svc.Close()

	logger.Info("Server stopped gracefully")
}

func setupRouter(svc *service.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(api.Logger())
	r.Use(api.CORS())

	api.SetupRoutes(r, svc)

	return r
}
