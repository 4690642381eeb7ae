// Package geocode resolves postal tokens and place names to representative
// coordinates from a ZIP reference table and municipality boundaries.
package geocode

import (
	"strings"

	"github.com/sells-group/donormap/internal/postal"
)

// Coordinate is a longitude/latitude pair. Ranges are not validated.
type Coordinate struct {
	Lon float64
	Lat float64
}

// CoordinateFromPair converts a [lon, lat] slice. The boolean is false
// unless the slice has exactly two elements.
func CoordinateFromPair(pair []float64) (Coordinate, bool) {
	if len(pair) != 2 {
		return Coordinate{}, false
	}
	return Coordinate{Lon: pair[0], Lat: pair[1]}, true
}

// Flat returns the coordinate as [lon, lat].
func (c Coordinate) Flat() []float64 {
	return []float64{c.Lon, c.Lat}
}

// Source names the table that produced a resolved coordinate.
type Source string

const (
	SourceZIP4     Source = "zip+4"
	SourceZIP5     Source = "zip5"
	SourcePlace    Source = "place"
	SourceOverride Source = "override"
)

// NormalizePlace canonicalizes a municipality or city name for lookup:
// trimmed, embedded line breaks removed, lower-cased.
func NormalizePlace(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", "")
	return strings.ToLower(name)
}

// Index is an immutable lookup of postal tokens and place names. It is safe
// for concurrent readers.
type Index struct {
	byPostal   map[postal.Token]Coordinate
	byPlace    map[string]Coordinate
	overridden map[string]bool
}

// Stats summarizes the size of each table.
type Stats struct {
	PostalEntries int
	PlaceEntries  int
}

// Resolve looks a record up in priority order: the full postal token, its
// 5-digit parent, then the place name. A place pinned by a manual override
// reports SourceOverride. The boolean is false when nothing matches.
func (idx *Index) Resolve(tok postal.Token, place string) (Coordinate, Source, bool) {
	if tok != "" {
		if c, ok := idx.LookupPostal(tok); ok {
			if tok.IsPlus4() {
				return c, SourceZIP4, true
			}
			return c, SourceZIP5, true
		}
		if parent := tok.Parent(); parent != tok && parent != "" {
			if c, ok := idx.LookupPostal(parent); ok {
				return c, SourceZIP5, true
			}
		}
	}
	if place != "" {
		if c, ok := idx.byPlace[place]; ok {
			if idx.overridden[place] {
				return c, SourceOverride, true
			}
			return c, SourcePlace, true
		}
	}
	return Coordinate{}, "", false
}

// ResolvePlace looks up a normalized place name only.
func (idx *Index) ResolvePlace(place string) (Coordinate, bool) {
	c, ok := idx.byPlace[place]
	return c, ok
}

// LookupPostal returns the coordinate stored under exactly this token.
func (idx *Index) LookupPostal(tok postal.Token) (Coordinate, bool) {
	c, ok := idx.byPostal[tok]
	return c, ok
}

// Stats reports table sizes.
func (idx *Index) Stats() Stats {
	return Stats{PostalEntries: len(idx.byPostal), PlaceEntries: len(idx.byPlace)}
}

// Option configures a Builder.
type Option func(*Builder)

// WithAliases maps consolidated jurisdiction names to the short name they
// should also be indexed under, e.g. "butte-silver bow" -> "butte".
func WithAliases(aliases map[string]string) Option {
	return func(b *Builder) {
		for k, v := range aliases {
			b.aliases[NormalizePlace(k)] = NormalizePlace(v)
		}
	}
}

// WithPlaceOverrides pins place names to fixed coordinates. Overrides are
// applied last and replace whatever the boundary source produced.
func WithPlaceOverrides(overrides map[string]Coordinate) Option {
	return func(b *Builder) {
		for k, v := range overrides {
			b.overrides[NormalizePlace(k)] = v
		}
	}
}

// Builder accumulates reference data into an Index. Postal and place
// insertions are first-seen-wins; overrides win over everything.
type Builder struct {
	byPostal  map[postal.Token]Coordinate
	byPlace   map[string]Coordinate
	aliases   map[string]string
	overrides map[string]Coordinate
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		byPostal:  make(map[postal.Token]Coordinate),
		byPlace:   make(map[string]Coordinate),
		aliases:   make(map[string]string),
		overrides: make(map[string]Coordinate),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddPostal indexes a raw postal value. A ZIP+4 token also fills its 5-digit
// parent when the parent is not yet present. Returns false when the value
// holds no token.
func (b *Builder) AddPostal(raw string, c Coordinate) bool {
	tok, ok := postal.Normalize(raw)
	if !ok {
		return false
	}
	if _, exists := b.byPostal[tok]; !exists {
		b.byPostal[tok] = c
	}
	if parent := tok.Parent(); parent != "" {
		if _, exists := b.byPostal[parent]; !exists {
			b.byPostal[parent] = c
		}
	}
	return true
}

// AddPlace indexes a place name, plus its alias when one is configured.
// Returns false for an empty name.
func (b *Builder) AddPlace(name string, c Coordinate) bool {
	key := NormalizePlace(name)
	if key == "" {
		return false
	}
	b.addPlaceKey(key, c)
	if alias, ok := b.aliases[key]; ok {
		b.addPlaceKey(alias, c)
	}
	return true
}

func (b *Builder) addPlaceKey(key string, c Coordinate) {
	if _, exists := b.byPlace[key]; !exists {
		b.byPlace[key] = c
	}
}

// Build applies the place overrides and returns an Index holding copies of
// the tables. The Builder may keep accepting data afterwards without
// affecting the returned Index.
func (b *Builder) Build() *Index {
	idx := &Index{
		byPostal:   make(map[postal.Token]Coordinate, len(b.byPostal)),
		byPlace:    make(map[string]Coordinate, len(b.byPlace)+len(b.overrides)),
		overridden: make(map[string]bool, len(b.overrides)),
	}
	for k, v := range b.byPostal {
		idx.byPostal[k] = v
	}
	for k, v := range b.byPlace {
		idx.byPlace[k] = v
	}
	for k, v := range b.overrides {
		idx.byPlace[k] = v
		idx.overridden[k] = true
	}
	return idx
}
