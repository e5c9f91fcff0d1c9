package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tasfiat-brain/internal/api"
	"tasfiat-brain/internal/api/handlers"
	"tasfiat-brain/internal/geo"
	"tasfiat-brain/internal/memory"
	"tasfiat-brain/internal/reply"
	"tasfiat-brain/internal/repository"
	"tasfiat-brain/internal/search"
	"tasfiat-brain/internal/service"
	"tasfiat-brain/pkg/config"
	"tasfiat-brain/pkg/logger"
	"tasfiat-brain/pkg/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting tasfiat-brain")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile, err := reply.LoadProfile(cfg.Profile.Path)
	if err != nil {
		appLogger.Fatal("Failed to load business profile", zap.Error(err))
	}

	places, err := geo.LoadPlaceIndex(cfg.Geo.PlacesPath, cfg.Geo.AliasesPath, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load place index", zap.Error(err))
	}

	source, db, err := knowledgeSource(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to configure knowledge source", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize services
	knowledge := service.NewKnowledgeService(source, cfg.Knowledge.CacheTTL, appLogger)
	mem := memory.New(cfg.Memory.Capacity, cfg.Memory.TTL)
	engine := search.NewEngine(knowledge, profile.Weights)
	classifier := geo.NewClassifier(places, profile.Shipping.Fees)
	composer := reply.NewComposer(engine, classifier, mem, profile)
	queries := service.NewQueryService(knowledge, composer, cfg.Knowledge.MaxQueryRunes, appLogger)

	chatwootClient := service.NewChatwootClient(&cfg.Chatwoot)
	if !chatwootClient.Configured() {
		appLogger.Warn("Chatwoot is not configured, webhook replies will fail")
	}
	chatwoot, err := service.NewChatwootService(chatwootClient, queries, cfg.Webhook.SeenCapacity, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize chatwoot service", zap.Error(err))
	}

	if knowledge.Configured() {
		if _, err := knowledge.Refresh(ctx); err != nil {
			appLogger.Warn("Initial knowledge load failed, will retry on demand", zap.Error(err))
		}
		go knowledge.Run(ctx, cfg.Knowledge.RefreshInterval)
	} else {
		appLogger.Warn("No knowledge source configured, /search will answer 503")
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(knowledge, places, mem)
	searchHandler := handlers.NewSearchHandler(queries, appLogger)
	webhookHandler := handlers.NewWebhookHandler(chatwoot, appLogger)
	adminHandler := handlers.NewAdminHandler(knowledge, appLogger)

	// Setup router
	app := api.SetupRouter(healthHandler, searchHandler, webhookHandler, adminHandler, &cfg.Server, cfg.Webhook.Token, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// knowledgeSource prefers the HTTP feed and falls back to the Postgres
// table. Both may be absent, in which case the source is nil.
func knowledgeSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.KnowledgeSource, *pgxpool.Pool, error) {
	if cfg.Knowledge.URL != "" {
		src, err := service.NewHTTPKnowledgeSource(cfg.Knowledge.URL, cfg.Knowledge.FetchTimeout, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using HTTP knowledge source", zap.String("url", cfg.Knowledge.URL))
		return src, nil, nil
	}

	if !cfg.Database.Enabled {
		return nil, nil, nil
	}

	db, err := postgres.NewPool(ctx, &cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewKnowledgeRepository(db, log)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Using Postgres knowledge source", zap.String("table", repo.Name()))
	return repo, db, nil
}
