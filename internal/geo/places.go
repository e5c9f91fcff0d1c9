// Package geo resolves free-text city names to shipping zones.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"tasfiat-brain/internal/textnorm"

	"go.uber.org/zap"
)

type Zone string

const (
	ZoneWestBank         Zone = "west_bank"
	ZoneInside1948       Zone = "inside_1948"
	ZoneJerusalem        Zone = "jerusalem"
	ZoneJerusalemSuburbs Zone = "jerusalem_suburbs"

	// Classification results that carry no fee.
	ZoneUnknown Zone = "unknown"
	ZoneOutside Zone = "outside"
)

// ErrInvalidPlaces is returned when a places or aliases file cannot be parsed.
var ErrInvalidPlaces = errors.New("invalid places file")

// IsPlaceZone reports whether z may appear as a value in a place index.
func (z Zone) IsPlaceZone() bool {
	switch z {
	case ZoneWestBank, ZoneInside1948, ZoneJerusalem, ZoneJerusalemSuburbs:
		return true
	}
	return false
}

type PlacesCounts struct {
	Keys int `json:"keys"`
}

type PlacesMeta struct {
	Version     string       `json:"version"`
	GeneratedBy string       `json:"generated_by,omitempty"`
	Counts      PlacesCounts `json:"counts"`
}

// PlacesFile is the serialized place index produced by the offline builder.
type PlacesFile struct {
	Meta   PlacesMeta      `json:"meta"`
	Places map[string]Zone `json:"places"`
}

type AliasesFile struct {
	Aliases map[string]Zone `json:"aliases"`
}

// PlaceIndex maps normalized place names to zones. It is not modified after
// construction, apart from ApplyAliases during loading.
type PlaceIndex struct {
	meta   PlacesMeta
	places map[string]Zone
}

// NewPlaceIndex builds an index from a key→zone mapping. Keys are passed
// through the normalizer; a key already in canonical form wins over a
// differently spelled key that normalizes to it. Entries with an unknown
// zone are skipped.
func NewPlaceIndex(places map[string]Zone, meta PlacesMeta) *PlaceIndex {
	idx := &PlaceIndex{
		meta:   meta,
		places: make(map[string]Zone, len(places)),
	}

	var pending []string
	for k, z := range places {
		if !z.IsPlaceZone() {
			continue
		}
		if textnorm.Normalize(k) == k && k != "" {
			idx.places[k] = z
			continue
		}
		pending = append(pending, k)
	}

	sort.Strings(pending)
	for _, k := range pending {
		nk := textnorm.Normalize(k)
		if nk == "" {
			continue
		}
		if _, ok := idx.places[nk]; !ok {
			idx.places[nk] = places[k]
		}
	}
	idx.meta.Counts.Keys = len(idx.places)
	return idx
}

// ApplyAliases overwrites the index with manual aliases. Every alias is
// expanded to its spelling variants before being written.
func (p *PlaceIndex) ApplyAliases(aliases map[string]Zone) int {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		zone := aliases[name]
		if !zone.IsPlaceZone() {
			continue
		}
		for _, k := range Variants(name) {
			p.places[k] = zone
			applied++
		}
	}
	p.meta.Counts.Keys = len(p.places)
	return applied
}

// Lookup returns the zone stored under an already normalized key.
func (p *PlaceIndex) Lookup(key string) (Zone, bool) {
	if p == nil || key == "" {
		return "", false
	}
	z, ok := p.places[key]
	return z, ok
}

func (p *PlaceIndex) Len() int {
	if p == nil {
		return 0
	}
	return len(p.places)
}

func (p *PlaceIndex) Meta() PlacesMeta {
	if p == nil {
		return PlacesMeta{}
	}
	return p.meta
}

// Variants returns the normalized lookup keys a place name contributes:
// the name itself and, for names carrying the definite article, the name
// without it. The ية/يه ending variants need no separate key because the
// normalizer folds ة into ه.
func Variants(name string) []string {
	k := textnorm.Normalize(name)
	if k == "" {
		return nil
	}
	out := []string{k}
	if strings.HasPrefix(k, "ال") {
		bare := strings.TrimSpace(strings.TrimPrefix(k, "ال"))
		if utf8.RuneCountInString(bare) >= 2 && bare != k {
			out = append(out, bare)
		}
	}
	return out
}

// LoadPlaceIndex reads the places file and applies the optional aliases
// file on top. A missing places file yields an empty index so that the
// classifier degrades to "unknown" instead of failing startup.
func LoadPlaceIndex(placesPath, aliasesPath string, logger *zap.Logger) (*PlaceIndex, error) {
	var file PlacesFile
	data, err := os.ReadFile(placesPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("Places file not found, shipping zones will be unknown",
			zap.String("path", placesPath),
		)
	case err != nil:
		return nil, fmt.Errorf("failed to read places file: %w", err)
	default:
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlaces, placesPath, err)
		}
	}

	idx := NewPlaceIndex(file.Places, file.Meta)

	if aliasesPath != "" {
		aliases, err := ReadAliases(aliasesPath)
		if err != nil {
			return nil, err
		}
		if n := idx.ApplyAliases(aliases); n > 0 {
			logger.Info("Place aliases applied", zap.Int("keys", n))
		}
	}

	logger.Info("Place index loaded",
		zap.String("version", idx.meta.Version),
		zap.Int("keys", idx.Len()),
	)
	return idx, nil
}

// ReadAliases reads a manual aliases file. A missing file yields no aliases.
func ReadAliases(path string) (map[string]Zone, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases file: %w", err)
	}
	var file AliasesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlaces, path, err)
	}
	return file.Aliases, nil
}
