package search

import (
	"strings"
	"time"

	"tasfiat-brain/internal/models"
	"tasfiat-brain/internal/textnorm"
)

var policySlugPrefixes = []string{"policy-", "info-", "branch-"}

// Brand tags marking an item as a policy or branch document.
var policyTagHints = []string{"سياسات", "فروع"}

// entry is a knowledge item with its match fields precomputed in
// normalized form.
type entry struct {
	item *models.KnowledgeItem

	slug     string
	slugKey  string
	name     string
	keywords string
	tags     string
	brandStd string
	sizes    string
	sizeSet  map[string]struct{}
	audience Audience
	haystack string
	policy   bool
}

// Snapshot is an immutable, indexed copy of the knowledge items. A new
// snapshot replaces the old one wholesale on every refresh.
type Snapshot struct {
	entries    []entry
	bySlug     map[string]*entry
	byKey      map[string]*entry
	loadedAt   time.Time
	duplicates int
}

// NewSnapshot indexes items. Items without a slug are kept for scoring;
// a repeated slug keeps its first occurrence only.
func NewSnapshot(items []models.KnowledgeItem, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		entries:  make([]entry, 0, len(items)),
		bySlug:   make(map[string]*entry, len(items)),
		byKey:    make(map[string]*entry, len(items)),
		loadedAt: loadedAt,
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		item := items[i]
		slug := strings.ToLower(strings.TrimSpace(item.Slug))
		if slug != "" {
			if _, dup := seen[slug]; dup {
				s.duplicates++
				continue
			}
			seen[slug] = struct{}{}
		}
		s.entries = append(s.entries, newEntry(&item, slug))
	}

	for i := range s.entries {
		e := &s.entries[i]
		if e.slug == "" {
			continue
		}
		s.bySlug[e.slug] = e
		if _, taken := s.byKey[e.slugKey]; !taken && e.slugKey != "" {
			s.byKey[e.slugKey] = e
		}
	}
	return s
}

func newEntry(item *models.KnowledgeItem, slug string) entry {
	e := entry{
		item:     item,
		slug:     slug,
		slugKey:  textnorm.Normalize(slug),
		name:     textnorm.Normalize(item.Name),
		keywords: textnorm.Normalize(string(item.Keywords)),
		tags:     textnorm.Normalize(string(item.BrandTags)),
		brandStd: textnorm.Normalize(item.BrandStd),
		audience: audienceOf(textnorm.Normalize(item.Gender + " " + item.GenderSecondary + " " + item.AgeGroup)),
		sizeSet:  make(map[string]struct{}),
	}

	// Sizes are compared against query sizes, which arrive with digits
	// folded to ASCII.
	sizes := item.SizeList()
	for i, sz := range sizes {
		sizes[i] = textnorm.Simplify(sz)
		e.sizeSet[sizes[i]] = struct{}{}
	}
	e.sizes = strings.Join(sizes, ",")

	for _, p := range policySlugPrefixes {
		if strings.HasPrefix(slug, p) {
			e.policy = true
		}
	}
	for _, h := range policyTagHints {
		if strings.Contains(e.tags, h) {
			e.policy = true
		}
	}

	e.haystack = strings.Join([]string{e.name, e.keywords, e.tags, e.brandStd, e.sizes, e.slugKey}, " ")
	return e
}

// Len returns the number of indexed items.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Duplicates returns how many items were dropped for repeating a slug.
func (s *Snapshot) Duplicates() int {
	if s == nil {
		return 0
	}
	return s.duplicates
}

// Item returns the item with the given slug (case-insensitive).
func (s *Snapshot) Item(slug string) (*models.KnowledgeItem, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return nil, false
	}
	return e.item, true
}

// lookup resolves a query to an item by raw slug or by normalized slug.
func (s *Snapshot) lookup(raw, normalized string) (*entry, bool) {
	if e, ok := s.bySlug[raw]; ok {
		return e, true
	}
	e, ok := s.byKey[normalized]
	return e, ok
}

// BranchItems returns the branch documents (slug prefix "branch-" or a
// "فروع" brand tag) in feed order.
func (s *Snapshot) BranchItems() []*models.KnowledgeItem {
	if s == nil {
		return nil
	}
	var out []*models.KnowledgeItem
	for i := range s.entries {
		e := &s.entries[i]
		if strings.HasPrefix(e.slug, "branch-") || strings.Contains(e.tags, "فروع") {
			out = append(out, e.item)
		}
	}
	return out
}

// IsPolicyLike reports whether item is a policy, info or branch document.
func IsPolicyLike(item *models.KnowledgeItem) bool {
	return newEntry(item, strings.ToLower(strings.TrimSpace(item.Slug))).policy
}
