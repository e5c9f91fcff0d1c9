// Package search ranks knowledge items against a customer query with an
// additive, field-weighted score and decides between a single hit, a
// clarification list and no match.
package search

import (
	"math"
	"sort"
	"strings"

	"tasfiat-brain/internal/models"
	"tasfiat-brain/internal/textnorm"
)

// Weights are the scoring constants. They are calibration points: tests pin
// the defaults, and a profile file may override them.
type Weights struct {
	ExactName     int `yaml:"exact_name"`
	NameContains  int `yaml:"name_contains"`
	SlugContained int `yaml:"slug_contained"`
	SlugExact     int `yaml:"slug_exact"`

	TokenName     int `yaml:"token_name"`
	TokenKeywords int `yaml:"token_keywords"`
	TokenTags     int `yaml:"token_tags"`
	TokenBrandStd int `yaml:"token_brand_std"`
	TokenSizes    int `yaml:"token_sizes"`
	TokenSlug     int `yaml:"token_slug"`
	TokenAny      int `yaml:"token_any"`
	SignalBoost   int `yaml:"signal_boost"`

	PolicyHint int `yaml:"policy_hint"`

	PriceNear        int     `yaml:"price_near"`
	PriceNearRange   float64 `yaml:"price_near_range"`
	PriceClose       int     `yaml:"price_close"`
	PriceCloseRange  float64 `yaml:"price_close_range"`
	Audience         int     `yaml:"audience"`
	Discount         int     `yaml:"discount"`
	DeepDiscount     int     `yaml:"deep_discount"`
	DeepDiscountFrom float64 `yaml:"deep_discount_from"`

	MinScore   int `yaml:"min_score"`
	ClarifyGap int `yaml:"clarify_gap"`
	MaxOptions int `yaml:"max_options"`
}

func DefaultWeights() Weights {
	return Weights{
		ExactName:     80,
		NameContains:  35,
		SlugContained: 60,
		SlugExact:     90,

		TokenName:     10,
		TokenKeywords: 8,
		TokenTags:     7,
		TokenBrandStd: 6,
		TokenSizes:    12,
		TokenSlug:     9,
		TokenAny:      2,
		SignalBoost:   3,

		PolicyHint: 25,

		PriceNear:        15,
		PriceNearRange:   20,
		PriceClose:       8,
		PriceCloseRange:  50,
		Audience:         12,
		Discount:         10,
		DeepDiscount:     5,
		DeepDiscountFrom: 20,

		MinScore:   25,
		ClarifyGap: 5,
		MaxOptions: 4,
	}
}

// Policy keywords, normalized, that lift policy-like items.
var policyHints = []string{
	"توصيل", "شحن", "تبديل", "استبدال", "ارجاع", "خصوصيه", "سياسه", "شروط", "فروع", "موقع",
}

type Kind int

const (
	None Kind = iota
	Hit
	Clarify
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case Clarify:
		return "clarify"
	}
	return "none"
}

// Option is one numbered choice offered to the customer.
type Option struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Outcome is the engine's decision. Item is set for Hit only, Options for
// Clarify only. AskedSize carries the size detected in the query, if any.
type Outcome struct {
	Kind      Kind
	Item      *models.KnowledgeItem
	Score     int
	Options   []Option
	AskedSize string
}

// SnapshotSource hands out the current knowledge snapshot.
type SnapshotSource interface {
	Snapshot() *Snapshot
}

type Engine struct {
	source  SnapshotSource
	weights Weights
}

func NewEngine(source SnapshotSource, weights Weights) *Engine {
	return &Engine{source: source, weights: weights}
}

func (e *Engine) Weights() Weights {
	return e.weights
}

// Snapshot returns the snapshot the next Search would use.
func (e *Engine) Snapshot() *Snapshot {
	return e.source.Snapshot()
}

// Search ranks the current snapshot against query.
func (e *Engine) Search(query string) Outcome {
	return e.SearchIn(e.Snapshot(), query)
}

type scored struct {
	entry *entry
	score int
}

type parsedQuery struct {
	lower   string
	text    string
	tokens  []string
	signals Signals
}

// SearchIn ranks snap against query. A nil or empty snapshot yields None.
func (e *Engine) SearchIn(snap *Snapshot, query string) Outcome {
	q := parseQuery(query)
	out := Outcome{Kind: None, AskedSize: q.signals.Size}
	if snap.Len() == 0 || q.text == "" {
		return out
	}

	if q.signals.URLSlug != "" {
		if en, ok := snap.bySlug[q.signals.URLSlug]; ok {
			return e.hit(out, en, 0)
		}
	}
	if en, ok := snap.lookup(q.lower, q.text); ok {
		return e.hit(out, en, 0)
	}

	var ranked []scored
	for i := range snap.entries {
		en := &snap.entries[i]
		if q.signals.Size != "" && !en.policy {
			if _, ok := en.sizeSet[q.signals.Size]; !ok {
				continue
			}
		}
		if s := e.score(en, q); s > 0 {
			ranked = append(ranked, scored{entry: en, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) == 0 || ranked[0].score < e.weights.MinScore {
		return out
	}
	top := ranked[0]
	if len(ranked) > 1 && ranked[1].score >= top.score-e.weights.ClarifyGap {
		n := min(len(ranked), e.weights.MaxOptions)
		out.Kind = Clarify
		out.Score = top.score
		out.Options = make([]Option, 0, n)
		for _, r := range ranked[:n] {
			out.Options = append(out.Options, Option{Slug: r.entry.item.Slug, Name: r.entry.item.Name})
		}
		return out
	}
	return e.hit(out, top.entry, top.score)
}

func (e *Engine) hit(out Outcome, en *entry, score int) Outcome {
	out.Kind = Hit
	out.Item = en.item
	out.Score = score
	return out
}

func parseQuery(raw string) parsedQuery {
	text := textnorm.Normalize(raw)
	return parsedQuery{
		lower:   strings.ToLower(strings.TrimSpace(raw)),
		text:    text,
		tokens:  textnorm.Tokenize(text),
		signals: DetectSignals(raw),
	}
}

func (e *Engine) score(en *entry, q parsedQuery) int {
	w := e.weights
	score := 0

	if en.name != "" {
		if en.name == q.text {
			score += w.ExactName
		}
		if strings.Contains(en.name, q.text) || strings.Contains(q.text, en.name) {
			score += w.NameContains
		}
	}
	if en.slugKey != "" {
		switch {
		case en.slugKey == q.text:
			score += w.SlugExact
		case strings.Contains(q.text, en.slugKey):
			score += w.SlugContained
		}
	}

	boost := q.signals.Any()
	for _, t := range q.tokens {
		if strings.Contains(en.name, t) {
			score += w.TokenName
		}
		if strings.Contains(en.keywords, t) {
			score += w.TokenKeywords
		}
		brandHit := false
		if strings.Contains(en.tags, t) {
			score += w.TokenTags
			brandHit = true
		}
		if strings.Contains(en.brandStd, t) {
			score += w.TokenBrandStd
			brandHit = true
		}
		if strings.Contains(en.sizes, t) {
			score += w.TokenSizes
			if boost {
				score += w.SignalBoost
			}
		}
		if brandHit && boost {
			score += w.SignalBoost
		}
		if strings.Contains(en.slugKey, t) {
			score += w.TokenSlug
		}
		if strings.Contains(en.haystack, t) {
			score += w.TokenAny
		}
	}

	if en.policy {
		for _, h := range policyHints {
			if strings.Contains(q.text, h) {
				score += w.PolicyHint
				break
			}
		}
	}

	if q.signals.Amount > 0 && en.item.Price > 0 {
		d := math.Abs(float64(en.item.Price) - q.signals.Amount)
		switch {
		case d <= w.PriceNearRange:
			score += w.PriceNear
		case d <= w.PriceCloseRange:
			score += w.PriceClose
		}
	}
	if q.signals.Audience != 0 && en.audience&q.signals.Audience != 0 {
		score += w.Audience
	}
	if q.signals.Discount && bool(en.item.HasDiscount) {
		score += w.Discount
		if float64(en.item.DiscountPercent) >= w.DeepDiscountFrom {
			score += w.DeepDiscount
		}
	}
	return score
}
