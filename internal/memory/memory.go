// Package memory keeps the numbered choices last shown in each conversation
// so that a bare digit reply can be mapped back to a product.
package memory

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"tasfiat-brain/internal/search"
)

// MaxOptions is the longest list a conversation can choose from.
const MaxOptions = 4

const (
	DefaultCapacity = 2000
	DefaultTTL      = 30 * time.Minute
)

// Choices is what was offered to a conversation and when.
type Choices struct {
	At      time.Time
	Options []search.Option
}

// Memory is safe for concurrent use. Entries leave by capacity (least
// recently used first) or by age.
type Memory struct {
	cache *expirable.LRU[string, Choices]
}

// New returns a memory bounded by capacity entries, each living for ttl.
// Non-positive values fall back to the defaults.
func New(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{cache: expirable.NewLRU[string, Choices](capacity, nil, ttl)}
}

// Remember stores the options shown to a conversation, replacing any
// earlier list. Lists are cut to MaxOptions; an empty conversation id or
// list is ignored.
func (m *Memory) Remember(conversationID string, options []search.Option) {
	if conversationID == "" || len(options) == 0 {
		return
	}
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}
	m.cache.Add(conversationID, Choices{
		At:      time.Now(),
		Options: append([]search.Option(nil), options...),
	})
}

// Resolve maps a 1-based choice to the slug shown at that position. The
// stored list is kept so the customer may pick again.
func (m *Memory) Resolve(conversationID string, choice int) (string, bool) {
	c, ok := m.Lookup(conversationID)
	if !ok || choice < 1 || choice > len(c.Options) {
		return "", false
	}
	slug := c.Options[choice-1].Slug
	return slug, slug != ""
}

// Lookup returns the stored choices of a conversation.
func (m *Memory) Lookup(conversationID string) (Choices, bool) {
	if conversationID == "" {
		return Choices{}, false
	}
	return m.cache.Get(conversationID)
}

func (m *Memory) Forget(conversationID string) {
	m.cache.Remove(conversationID)
}

func (m *Memory) Len() int {
	return m.cache.Len()
}
