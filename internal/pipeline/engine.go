// Package pipeline resolves donation records to coordinates and assembles
// the per-file feature collections.
package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/donormap/internal/amount"
	"github.com/sells-group/donormap/internal/config"
	"github.com/sells-group/donormap/internal/feature"
	"github.com/sells-group/donormap/internal/geocode"
	"github.com/sells-group/donormap/internal/model"
	"github.com/sells-group/donormap/internal/postal"
)

// Property names written on synthesized features.
const (
	PropCity        = "CITY"
	PropState       = "STATE"
	PropAmount      = "AMNT"
	PropContributor = "NAME OF CONTRIBUTOR"
)

// Engine routes each record either to an individual point feature or to a
// per-city aggregate bucket. It holds no per-file state and is safe to share
// across goroutines.
type Engine struct {
	index     *geocode.Index
	policy    *config.Policy
	cities    []string
	overrides map[string]geocode.Coordinate
}

// NewEngine creates an Engine over a built index and policy.
func NewEngine(idx *geocode.Index, policy *config.Policy) *Engine {
	if policy == nil {
		policy = config.DefaultPolicy()
	}
	e := &Engine{
		index:     idx,
		policy:    policy,
		overrides: make(map[string]geocode.Coordinate, len(policy.CityOverrides)),
	}
	seen := make(map[string]bool, len(policy.AggregateCities))
	for _, c := range policy.AggregateCities {
		c = geocode.NormalizePlace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		e.cities = append(e.cities, c)
	}
	sort.Strings(e.cities)
	for name, pair := range policy.CityOverrides {
		if c, ok := geocode.CoordinateFromPair(pair); ok {
			e.overrides[geocode.NormalizePlace(name)] = c
		}
	}
	return e
}

// IndexOptions converts the policy's aliases and manual place overrides
// into geocode builder options.
func IndexOptions(policy *config.Policy) []geocode.Option {
	if policy == nil {
		return nil
	}
	overrides := make(map[string]geocode.Coordinate, len(policy.ManualPlaceOverrides))
	for name, pair := range policy.ManualPlaceOverrides {
		if c, ok := geocode.CoordinateFromPair(pair); ok {
			overrides[name] = c
		}
	}
	return []geocode.Option{
		geocode.WithAliases(policy.PlaceAliases),
		geocode.WithPlaceOverrides(overrides),
	}
}

// Aggregate is the accumulated total for one aggregate city.
type Aggregate struct {
	City       string
	Sum        float64
	Count      int
	Coordinate geocode.Coordinate
	Emitted    bool
}

// CitySummary is the per-city total of individually plotted records, placed
// at the coordinate of the city's first resolved record.
type CitySummary struct {
	City       string
	State      string
	Sum        float64
	Count      int
	Coordinate geocode.Coordinate
}

// Result is the outcome of processing one donation file.
type Result struct {
	Features      []*geojson.Feature
	Aggregates    []Aggregate
	CitySummaries []CitySummary
	Matched       []string
	Unmatched     []string
	Records       int
	Unresolved    int
	Total         float64
}

// Collection returns the primary feature collection: individual features in
// record order followed by the emitted aggregate features.
func (r *Result) Collection() *geojson.FeatureCollection {
	return feature.Collection(r.Features)
}

// SummaryCollection returns one feature per matched individual city.
func (r *Result) SummaryCollection() *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(r.CitySummaries))
	for _, s := range r.CitySummaries {
		features = append(features, feature.NewPoint(s.Coordinate, map[string]interface{}{
			PropCity:   s.City,
			PropState:  s.State,
			PropAmount: amount.Format(s.Sum),
		}))
	}
	return feature.Collection(features)
}

// AggregatedCount returns how many aggregate features were emitted.
func (r *Result) AggregatedCount() int {
	n := 0
	for _, a := range r.Aggregates {
		if a.Emitted {
			n++
		}
	}
	return n
}

// Summary converts the result into the run ledger summary.
func (r *Result) Summary() *model.RunSummary {
	return &model.RunSummary{
		Records:         r.Records,
		Features:        len(r.Features),
		Aggregated:      r.AggregatedCount(),
		Unresolved:      r.Unresolved,
		MatchedCities:   r.Matched,
		UnmatchedCities: r.Unmatched,
		Total:           r.Total,
	}
}

type bucket struct {
	sum   float64
	count int
	state string
}

// fileState is the mutable state owned by a single Process call.
type fileState struct {
	buckets   map[string]*bucket
	summaries map[string]*CitySummary
	order     []string
	matched   map[string]bool
	unmatched map[string]bool
	caser     cases.Caser
	result    *Result
}

func newFileState() *fileState {
	return &fileState{
		buckets:   make(map[string]*bucket),
		summaries: make(map[string]*CitySummary),
		matched:   make(map[string]bool),
		unmatched: make(map[string]bool),
		caser:     cases.Title(language.English),
		result:    &Result{},
	}
}

// Process consumes every record from the channel and returns the file's result.
func (e *Engine) Process(ctx context.Context, records <-chan model.Record) (*Result, error) {
	st := newFileState()
	for {
		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "pipeline: process cancelled")
		case rec, ok := <-records:
			if !ok {
				return e.finish(st), nil
			}
			e.handle(st, rec)
		}
	}
}

// ProcessRecords is Process over an in-memory slice.
func (e *Engine) ProcessRecords(records []model.Record) *Result {
	st := newFileState()
	for _, rec := range records {
		e.handle(st, rec)
	}
	return e.finish(st)
}

func (e *Engine) handle(st *fileState, rec model.Record) {
	res := st.result
	res.Records++

	cityRaw := rec.City()
	city := geocode.NormalizePlace(cityRaw)
	amt := amount.FromRecord(rec)
	res.Total += amt

	if city != "" && e.policy.IsAggregate(city) {
		b, ok := st.buckets[city]
		if !ok {
			b = &bucket{state: strings.TrimSpace(rec.State())}
			st.buckets[city] = b
		}
		b.sum += amt
		b.count++
		return
	}

	tok, _ := postal.Normalize(rec.Postal())
	coord, src, ok := e.index.Resolve(tok, city)
	if !ok {
		res.Unresolved++
		if city != "" {
			st.unmatched[city] = true
		}
		zap.L().Debug("pipeline: record unresolved",
			zap.String("city", city),
			zap.String("postal", string(tok)),
		)
		return
	}

	zap.L().Debug("pipeline: record resolved",
		zap.String("city", city),
		zap.String("postal", string(tok)),
		zap.String("source", string(src)),
	)

	res.Features = append(res.Features, feature.NewPoint(coord, rec.Properties()))
	if city == "" {
		return
	}
	st.matched[city] = true

	s, ok := st.summaries[city]
	if !ok {
		s = &CitySummary{
			City:       strings.TrimSpace(cityRaw),
			State:      strings.TrimSpace(rec.State()),
			Coordinate: coord,
		}
		st.summaries[city] = s
		st.order = append(st.order, city)
	}
	s.Sum += amt
	s.Count++
}

func (e *Engine) finish(st *fileState) *Result {
	res := st.result

	for _, city := range e.cities {
		b, ok := st.buckets[city]
		if !ok || b.sum == 0 {
			continue
		}
		agg := Aggregate{City: city, Sum: b.sum, Count: b.count}

		coord, ok := e.aggregateCoordinate(city)
		if !ok {
			zap.L().Warn("pipeline: no coordinate for aggregate city; feature dropped",
				zap.String("city", city),
				zap.Float64("sum", b.sum),
			)
			res.Aggregates = append(res.Aggregates, agg)
			continue
		}
		agg.Coordinate = coord
		agg.Emitted = true
		res.Aggregates = append(res.Aggregates, agg)
		res.Features = append(res.Features, feature.NewPoint(coord, e.aggregateProperties(st, city, b)))
	}

	for _, city := range st.order {
		res.CitySummaries = append(res.CitySummaries, *st.summaries[city])
	}
	res.Matched = sortedKeys(st.matched)
	res.Unmatched = sortedKeys(st.unmatched)
	return res
}

func (e *Engine) aggregateCoordinate(city string) (geocode.Coordinate, bool) {
	if c, ok := e.overrides[city]; ok {
		return c, true
	}
	return e.index.ResolvePlace(city)
}

func (e *Engine) aggregateProperties(st *fileState, city string, b *bucket) map[string]interface{} {
	props := make(map[string]interface{}, len(e.policy.PlaceholderColumns)+4)
	for _, col := range e.policy.PlaceholderColumns {
		props[col] = ""
	}
	state := b.state
	if state == "" {
		state = e.policy.State
	}
	title := st.caser.String(city)
	props[PropCity] = title
	props[PropState] = state
	props[PropContributor] = title
	props[PropAmount] = amount.Format(b.sum)
	return props
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
