package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"tasfiat-brain/internal/repository"
	"tasfiat-brain/internal/service"
	"tasfiat-brain/pkg/config"
	"tasfiat-brain/pkg/logger"
	"tasfiat-brain/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeededFile records the last knowledge file written to the database.
type SeededFile struct {
	FilePath string    `json:"file_path"`
	FileHash string    `json:"file_hash"`
	BatchID  uuid.UUID `json:"batch_id"`
	Items    int       `json:"items"`
	SeededAt time.Time `json:"seeded_at"`
}

type CacheData struct {
	Last *SeededFile `json:"last,omitempty"`
}

func main() {
	file := flag.String("file", filepath.Join("data", "knowledge.json"), "knowledge JSON file ({items: [...]})")
	cacheFile := flag.String("cache", filepath.Join("cmd", "seed", ".seed_cache.json"), "seed cache file")
	force := flag.Bool("force", false, "reseed even when the file is unchanged")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if !cfg.Database.Enabled {
		appLogger.Fatal("DB_HOST is not set, nothing to seed")
	}

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := repository.NewKnowledgeRepository(db, appLogger)
	if err := repo.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("Failed to prepare knowledge table", zap.Error(err))
	}

	if err := seedKnowledge(ctx, *file, *cacheFile, *force, repo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed knowledge", zap.Error(err))
	}
}

func seedKnowledge(
	ctx context.Context,
	path string,
	cacheFile string,
	force bool,
	repo *repository.KnowledgeRepository,
	logger *zap.Logger,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read knowledge file: %w", err)
	}
	fileHash := fmt.Sprintf("%x", md5.Sum(data))

	cache, err := loadCache(cacheFile)
	if err != nil {
		logger.Warn("Failed to load cache, seeding anyway", zap.Error(err))
		cache = &CacheData{}
	}
	if !force && cache.Last != nil && cache.Last.FilePath == path && cache.Last.FileHash == fileHash {
		logger.Info("Knowledge file unchanged, skipping",
			zap.String("path", path),
			zap.Time("seeded_at", cache.Last.SeededAt),
		)
		return nil
	}

	decoder, err := service.NewKnowledgeDecoder()
	if err != nil {
		return err
	}
	decoded, err := decoder.Decode(data)
	if err != nil {
		return err
	}
	service.LogSkipped(logger, path, decoded.Skipped)
	items := decoded.Items

	batchID, err := repo.ReplaceAll(ctx, items)
	if err != nil {
		return err
	}
	logger.Info("Knowledge seeded",
		zap.String("path", path),
		zap.Int("items", len(items)),
		zap.String("batch_id", batchID.String()),
	)

	cache.Last = &SeededFile{
		FilePath: path,
		FileHash: fileHash,
		BatchID:  batchID,
		Items:    len(items),
		SeededAt: time.Now(),
	}
	if err := saveCache(cacheFile, cache); err != nil {
		logger.Warn("Failed to save cache", zap.Error(err))
	}
	return nil
}

func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{}
	data, err := os.ReadFile(cacheFile)
	if errors.Is(err, os.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return cache, nil
	}
	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return cache, nil
}

func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
