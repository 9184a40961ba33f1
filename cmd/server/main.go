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
	"time"

	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/api"
	"aihealth.app/health-assistant/internal/archive"
	"aihealth.app/health-assistant/internal/config"
	"aihealth.app/health-assistant/internal/core"
	"aihealth.app/health-assistant/internal/logger"
	"aihealth.app/health-assistant/internal/metrics"
	"aihealth.app/health-assistant/internal/realtime"
	"aihealth.app/health-assistant/internal/scraper"
	"aihealth.app/health-assistant/internal/store"
	"aihealth.app/health-assistant/internal/warehouse"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Command line flag for content ingestion
	ingestFlag := flag.Bool("ingest", false, "Run the daily content ingestion once and exit")
	flag.Parse()

	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry store
	repo, err := openStore(ctx, cfg)
	if err != nil {
		zlog.Fatal("Failed to initialize store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer repo.Close()
	zlog.Info("Store ready", zap.String("driver", cfg.StoreDriver))

	if cfg.SeedDemoData {
		if err := seedIfEmpty(ctx, repo); err != nil {
			zlog.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	m := metrics.New()
	kb := core.NewKnowledgeBase()

	// Answer generation: Gemini when a key is set, the knowledge base otherwise
	var (
		primary    core.AnswerGenerator
		llmService *core.LLMService
	)
	if cfg.MockMode() {
		zlog.Info("GEMINI_API_KEY not set, answering from the knowledge base")
	} else {
		llmService, err = core.NewLLMService(ctx, core.LLMConfig{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
			Timeout:        cfg.ProviderTimeout,
		}, zlog)
		if err != nil {
			zlog.Fatal("Failed to initialize LLM service", zap.Error(err))
		}
		defer llmService.Close()
		primary = llmService
	}
	generator := core.NewFallbackGenerator(primary, kb, zlog, m)

	var (
		retriever core.Retriever
		indexer   *core.ContentRetriever
	)
	if cfg.RetrievalEnabled && llmService != nil {
		indexer = core.NewContentRetriever(llmService, zlog)
		if err := indexer.IndexAll(ctx, repo); err != nil {
			zlog.Fatal("Failed to build retrieval index", zap.Error(err))
		}
		retriever = indexer
	}

	ingestOpts := []core.IngestOption{}
	if llmService != nil {
		ingestOpts = append(ingestOpts, core.WithAnnotator(llmService))
	}
	if indexer != nil {
		ingestOpts = append(ingestOpts, core.WithIndexer(indexer))
	}
	if cfg.IngestFetchArticles {
		ingestOpts = append(ingestOpts, core.WithFetcher(scraper.NewArticleFetcher(15*time.Second, scraper.DefaultMaxChars)))
	}
	if cfg.MinIO.Enabled() {
		arch, err := archive.NewMinIOArchive(ctx, archive.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			zlog.Fatal("Failed to initialize article archive", zap.Error(err))
		}
		ingestOpts = append(ingestOpts, core.WithArchiver(arch))
		zlog.Info("Archiving articles to MinIO", zap.String("bucket", cfg.MinIO.Bucket))
	}
	ingestService := core.NewIngestService(repo, kb, m, zlog, ingestOpts...)

	// Handle content ingestion if flag is set
	if *ingestFlag {
		zlog.Info("Starting content ingestion")
		added, err := ingestService.IngestDaily(ctx)
		if err != nil {
			zlog.Fatal("Content ingestion failed", zap.Error(err))
		}
		zlog.Info("Content ingestion complete, exiting", zap.Int("added", added))
		return
	}

	var wh core.Warehouse
	if cfg.ClickHouse.Enabled() {
		ch, err := warehouse.NewClickHouse(ctx, warehouse.Config{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			User:     cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		}, zlog)
		if err != nil {
			zlog.Fatal("Failed to initialize warehouse", zap.Error(err))
		}
		defer ch.Close()
		if err := ch.InitSchema(ctx); err != nil {
			zlog.Fatal("Failed to initialize warehouse schema", zap.Error(err))
		}
		wh = ch
	}

	hub := realtime.NewHub(cfg.CORSOrigin, zlog, m)
	go hub.Run(ctx)

	assistant := core.NewAssistantService(repo, generator, retriever, hub, m, zlog)
	apiHandler := api.NewAPIHandler(
		assistant,
		core.NewExportService(repo, m),
		ingestService,
		core.NewAnalyticsService(repo, wh),
		cfg.ETLBearer,
		zlog,
	)
	router := api.NewRouter(apiHandler, api.RouterOptions{
		APIBase:    cfg.APIBase,
		CORSOrigin: cfg.CORSOrigin,
		Live:       http.HandlerFunc(hub.ServeWS),
		Metrics:    m.Handler(),
	})

	if cfg.ETLBearer == "" {
		zlog.Warn("ETL_BEARER not set, ETL routes will answer 500")
	}

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		zlog.Info("Starting server", zap.String("addr", serverAddr), zap.String("api_base", cfg.APIBase))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	zlog.Info("Server exiting gracefully")
}

func openStore(ctx context.Context, cfg config.Config) (store.Repository, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.DatabaseURL)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}

// seedIfEmpty writes the demo rows only into a store without events.
func seedIfEmpty(ctx context.Context, repo store.Repository) error {
	existing, err := repo.ListEvents(ctx, store.PageQuery{Page: 1, Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return store.SeedDemoData(ctx, repo, time.Now().UTC())
}
