package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tasfiat-brain/internal/models"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

const maxKnowledgeBytes = 32 << 20

var (
	ErrKnowledgeNotConfigured = errors.New("knowledge source not configured")
	ErrEmptyKnowledge         = errors.New("knowledge payload has no items")
	ErrInvalidKnowledge       = errors.New("invalid knowledge payload")
)

// The feed is loose about scalar types. The payload schema pins the outer
// shape; each item is then checked on its own so one bad item does not
// cost the whole feed.
const knowledgeSchema = `{
	"type": "object",
	"required": ["items"],
	"properties": {
		"count": {"type": ["integer", "string", "null"]},
		"items": {"type": "array"}
	}
}`

const knowledgeItemSchema = `{
	"type": "object",
	"properties": {
		"product_slug":     {"type": ["string", "number", "null"]},
		"name":             {"type": ["string", "number", "null"]},
		"keywords":         {"type": ["string", "array", "number", "null"]},
		"brand_tags":       {"type": ["string", "array", "number", "null"]},
		"brand_std":        {"type": ["string", "number", "null"]},
		"gender":           {"type": ["string", "array", "number", "null"]},
		"gender_secondary": {"type": ["string", "array", "number", "null"]},
		"age_group":        {"type": ["string", "array", "number", "null"]},
		"sizes":            {"type": ["string", "array", "number", "null"]},
		"price":            {"type": ["number", "string", "null"]},
		"old_price":        {"type": ["number", "string", "null"]},
		"has_discount":     {"type": ["boolean", "number", "string", "null"]},
		"discount_percent": {"type": ["number", "string", "null"]},
		"availability":     {"type": ["string", "boolean", "number", "null"]},
		"page_url":         {"type": ["string", "null"]},
		"url":              {"type": ["string", "null"]},
		"image_url":        {"type": ["string", "null"]}
	}
}`

// KnowledgeSource yields the full list of knowledge items.
type KnowledgeSource interface {
	Fetch(ctx context.Context) ([]models.KnowledgeItem, error)
	Name() string
}

type knowledgePayload struct {
	Count json.RawMessage   `json:"count"`
	Items []json.RawMessage `json:"items"`
}

// SkippedItem records a feed item left out of a decode.
type SkippedItem struct {
	Index  int
	Reason string
}

// DecodedKnowledge is the usable part of a feed document.
type DecodedKnowledge struct {
	Items   []models.KnowledgeItem
	Skipped []SkippedItem
}

// KnowledgeDecoder validates feed documents and decodes their items.
type KnowledgeDecoder struct {
	payload *gojsonschema.Schema
	item    *gojsonschema.Schema
}

func NewKnowledgeDecoder() (*KnowledgeDecoder, error) {
	payload, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(knowledgeSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile knowledge schema: %w", err)
	}
	item, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(knowledgeItemSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile knowledge item schema: %w", err)
	}
	return &KnowledgeDecoder{payload: payload, item: item}, nil
}

// Decode rejects a document whose outer shape is wrong or that has no
// items. Items that fail their schema or do not decode are skipped; the
// document is rejected only when none survive.
func (d *KnowledgeDecoder) Decode(body []byte) (DecodedKnowledge, error) {
	var out DecodedKnowledge

	if err := validate(d.payload, gojsonschema.NewBytesLoader(body)); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidKnowledge, err)
	}

	var payload knowledgePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidKnowledge, err)
	}
	if len(payload.Items) == 0 {
		return out, ErrEmptyKnowledge
	}

	out.Items = make([]models.KnowledgeItem, 0, len(payload.Items))
	for i, raw := range payload.Items {
		if err := validate(d.item, gojsonschema.NewBytesLoader(raw)); err != nil {
			out.Skipped = append(out.Skipped, SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		var item models.KnowledgeItem
		if err := json.Unmarshal(raw, &item); err != nil {
			out.Skipped = append(out.Skipped, SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		out.Items = append(out.Items, item)
	}
	if len(out.Items) == 0 {
		return out, fmt.Errorf("%w: all %d items rejected", ErrInvalidKnowledge, len(out.Skipped))
	}
	return out, nil
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) error {
	result, err := schema.Validate(doc)
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return errors.New(strings.Join(problems, "; "))
}

// HTTPKnowledgeSource downloads the knowledge feed as JSON.
type HTTPKnowledgeSource struct {
	url     string
	client  *http.Client
	decoder *KnowledgeDecoder
	logger  *zap.Logger
}

func NewHTTPKnowledgeSource(url string, timeout time.Duration, logger *zap.Logger) (*HTTPKnowledgeSource, error) {
	decoder, err := NewKnowledgeDecoder()
	if err != nil {
		return nil, err
	}
	return &HTTPKnowledgeSource{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		decoder: decoder,
		logger:  logger,
	}, nil
}

func (s *HTTPKnowledgeSource) Name() string {
	return s.url
}

func (s *HTTPKnowledgeSource) Fetch(ctx context.Context) ([]models.KnowledgeItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch knowledge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch knowledge: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKnowledgeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge: %w", err)
	}
	decoded, err := s.decoder.Decode(body)
	if err != nil {
		return nil, err
	}
	LogSkipped(s.logger, s.url, decoded.Skipped)
	return decoded.Items, nil
}

const maxLoggedSkips = 5

// LogSkipped reports skipped feed items with a warning, listing the first
// few.
func LogSkipped(logger *zap.Logger, source string, skipped []SkippedItem) {
	if len(skipped) == 0 {
		return
	}
	fields := []zap.Field{
		zap.String("source", source),
		zap.Int("skipped", len(skipped)),
	}
	for _, sk := range skipped[:min(len(skipped), maxLoggedSkips)] {
		fields = append(fields, zap.String(fmt.Sprintf("item_%d", sk.Index), sk.Reason))
	}
	logger.Warn("Skipped invalid knowledge items", fields...)
}
