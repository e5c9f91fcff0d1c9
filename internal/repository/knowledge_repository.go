package repository

import (
	"context"
	"fmt"
	"time"

	"tasfiat-brain/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const knowledgeTable = "knowledge_items"

const knowledgeSchema = `
CREATE TABLE IF NOT EXISTS knowledge_items (
	position         INTEGER PRIMARY KEY,
	product_slug     TEXT NOT NULL DEFAULT '',
	name             TEXT NOT NULL DEFAULT '',
	keywords         TEXT NOT NULL DEFAULT '',
	brand_tags       TEXT NOT NULL DEFAULT '',
	brand_std        TEXT NOT NULL DEFAULT '',
	gender           TEXT NOT NULL DEFAULT '',
	gender_secondary TEXT NOT NULL DEFAULT '',
	age_group        TEXT NOT NULL DEFAULT '',
	sizes            TEXT NOT NULL DEFAULT '',
	price            DOUBLE PRECISION NOT NULL DEFAULT 0,
	old_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
	has_discount     BOOLEAN NOT NULL DEFAULT FALSE,
	discount_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	availability     TEXT NOT NULL DEFAULT '',
	page_url         TEXT NOT NULL DEFAULT '',
	image_url        TEXT NOT NULL DEFAULT '',
	batch_id         UUID NOT NULL,
	loaded_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var knowledgeColumns = []string{
	"product_slug", "name", "keywords", "brand_tags", "brand_std", "gender",
	"gender_secondary", "age_group", "sizes", "price", "old_price", "has_discount",
	"discount_percent", "availability", "page_url", "image_url",
}

// KnowledgeRepository stores the knowledge feed in Postgres, one row per
// item in feed order.
type KnowledgeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewKnowledgeRepository(db *pgxpool.Pool, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *KnowledgeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, knowledgeSchema); err != nil {
		return fmt.Errorf("failed to create %s: %w", knowledgeTable, err)
	}
	return nil
}

// ListItems returns every stored item in feed order.
func (r *KnowledgeRepository) ListItems(ctx context.Context) ([]models.KnowledgeItem, error) {
	query := squirrel.Select(knowledgeColumns...).
		From(knowledgeTable).
		OrderBy("position ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge items: %w", err)
	}
	defer rows.Close()

	var items []models.KnowledgeItem
	for rows.Next() {
		var (
			it                               models.KnowledgeItem
			keywords, brandTags, sizes       string
			price, oldPrice, discountPercent float64
			hasDiscount                      bool
		)
		if err := rows.Scan(
			&it.Slug, &it.Name, &keywords, &brandTags, &it.BrandStd, &it.Gender,
			&it.GenderSecondary, &it.AgeGroup, &sizes, &price, &oldPrice, &hasDiscount,
			&discountPercent, &it.Availability, &it.PageURL, &it.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge item: %w", err)
		}
		it.Keywords = models.Delimited(keywords)
		it.BrandTags = models.Delimited(brandTags)
		it.Sizes = models.Delimited(sizes)
		it.Price = models.Amount(price)
		it.OldPrice = models.Amount(oldPrice)
		it.HasDiscount = models.Flag(hasDiscount)
		it.DiscountPercent = models.Amount(discountPercent)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read knowledge items: %w", err)
	}
	return items, nil
}

// ReplaceAll swaps the stored feed for items in a single transaction and
// returns the batch id stamped on the new rows.
func (r *KnowledgeRepository) ReplaceAll(ctx context.Context, items []models.KnowledgeItem) (uuid.UUID, error) {
	batchID := uuid.New()
	loadedAt := time.Now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql, args, err := squirrel.Delete(knowledgeTable).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return uuid.Nil, fmt.Errorf("failed to clear knowledge items: %w", err)
	}

	for i, it := range items {
		sql, args, err := insertItemQuery(i, sanitizeItem(it), batchID, loadedAt).ToSql()
		if err != nil {
			return uuid.Nil, err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert knowledge item %q: %w", it.Slug, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit knowledge items: %w", err)
	}

	r.logger.Info("Knowledge items replaced",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(items)),
	)
	return batchID, nil
}

func insertItemQuery(position int, it models.KnowledgeItem, batchID uuid.UUID, loadedAt time.Time) squirrel.InsertBuilder {
	columns := append([]string{"position"}, knowledgeColumns...)
	columns = append(columns, "batch_id", "loaded_at")
	return squirrel.Insert(knowledgeTable).
		Columns(columns...).
		Values(
			position, it.Slug, it.Name, string(it.Keywords), string(it.BrandTags), it.BrandStd, it.Gender,
			it.GenderSecondary, it.AgeGroup, string(it.Sizes), float64(it.Price), float64(it.OldPrice),
			bool(it.HasDiscount), float64(it.DiscountPercent), it.Availability, it.PageURL, it.ImageURL,
			batchID, loadedAt,
		).
		PlaceholderFormat(squirrel.Dollar)
}

// Fetch lets the repository act as a knowledge source.
func (r *KnowledgeRepository) Fetch(ctx context.Context) ([]models.KnowledgeItem, error) {
	return r.ListItems(ctx)
}

func (r *KnowledgeRepository) Name() string {
	return "postgres:" + knowledgeTable
}
