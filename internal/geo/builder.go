package geo

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const (
	maxAlternateNames = 25
	generatedBy       = "cmd/placesbuild"
)

// Languages kept from the alternate names table; an empty language code
// is kept as well.
var alternateLanguages = toSet("ar", "he", "en")

// Builder assembles a place index from GeoNames dumps. Sources added
// earlier win over later ones; aliases applied last win over everything.
type Builder struct {
	keys map[string]Zone
	ids  map[string]Zone
}

func NewBuilder() *Builder {
	return &Builder{
		keys: make(map[string]Zone),
		ids:  make(map[string]Zone),
	}
}

// AddGeoNames reads a GeoNames country dump (tab separated) and assigns
// every populated place in it to zone. It returns the number of places read.
func (b *Builder) AddGeoNames(r io.Reader, zone Zone) (int, error) {
	places := 0
	err := scanTSV(r, func(cols []string) {
		if len(cols) < 9 || cols[6] != "P" {
			return
		}
		places++
		if _, seen := b.ids[cols[0]]; !seen {
			b.ids[cols[0]] = zone
		}

		candidates := []string{cols[1], cols[2]}
		if cols[3] != "" {
			alts := strings.Split(cols[3], ",")
			if len(alts) > maxAlternateNames {
				alts = alts[:maxAlternateNames]
			}
			candidates = append(candidates, alts...)
		}
		for _, c := range candidates {
			b.addFirst(c, zone)
		}
	})
	if err != nil {
		return places, fmt.Errorf("failed to read geonames dump: %w", err)
	}
	return places, nil
}

// AddAlternateNames reads a GeoNames alternateNamesV2 table. Only names of
// places already known from AddGeoNames are used.
func (b *Builder) AddAlternateNames(r io.Reader) (int, error) {
	names := 0
	err := scanTSV(r, func(cols []string) {
		if len(cols) < 4 {
			return
		}
		id, lang, name := cols[1], strings.TrimSpace(cols[2]), cols[3]
		if id == "" || name == "" {
			return
		}
		zone, ok := b.ids[id]
		if !ok {
			return
		}
		if _, allowed := alternateLanguages[lang]; lang != "" && !allowed {
			return
		}
		names++
		b.addFirst(name, zone)
	})
	if err != nil {
		return names, fmt.Errorf("failed to read alternate names: %w", err)
	}
	return names, nil
}

// ApplyAliases writes manual aliases over whatever the dumps produced.
func (b *Builder) ApplyAliases(aliases map[string]Zone) {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !aliases[name].IsPlaceZone() {
			continue
		}
		for _, k := range Variants(name) {
			b.keys[k] = aliases[name]
		}
	}
}

func (b *Builder) Len() int {
	return len(b.keys)
}

// Build returns the serializable index stamped with the build date.
func (b *Builder) Build(now time.Time) PlacesFile {
	places := make(map[string]Zone, len(b.keys))
	for k, z := range b.keys {
		places[k] = z
	}
	return PlacesFile{
		Meta: PlacesMeta{
			Version:     now.UTC().Format("2006-01-02"),
			GeneratedBy: generatedBy,
			Counts:      PlacesCounts{Keys: len(places)},
		},
		Places: places,
	}
}

func (b *Builder) addFirst(name string, zone Zone) {
	for _, k := range Variants(name) {
		if _, ok := b.keys[k]; !ok {
			b.keys[k] = zone
		}
	}
}

func scanTSV(r io.Reader, fn func(cols []string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fn(strings.Split(line, "\t"))
	}
	return sc.Err()
}
