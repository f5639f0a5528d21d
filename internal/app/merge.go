package app

import (
	"slices"

	"github.com/rs/zerolog"

	"poi_reconciler/internal/domain"
	"poi_reconciler/internal/geo"
)

// DuplicateRadiusKm is the proximity under which two records are the same place.
const DuplicateRadiusKm = 0.1

// Engine merges source batches into a ReconciledSet. It holds no per-call
// state and is safe for concurrent use.
type Engine struct {
	log      zerolog.Logger
	newIndex func() geo.Index
	observe  func(tag domain.SourceTag, outcome string)
}

type EngineOption func(*Engine)

func WithLogger(l zerolog.Logger) EngineOption { return func(e *Engine) { e.log = l } }

// WithIndex selects the spatial index used for location duplicates ("linear" or "h3").
func WithIndex(kind string) EngineOption {
	return func(e *Engine) { e.newIndex = func() geo.Index { return geo.NewIndex(kind) } }
}

// WithObserver registers a callback invoked once per input record with its
// outcome ("accepted" or a DropReason).
func WithObserver(fn func(tag domain.SourceTag, outcome string)) EngineOption {
	return func(e *Engine) { e.observe = fn }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:      zerolog.Nop(),
		newIndex: func() geo.Index { return geo.NewLinear() },
		observe:  func(domain.SourceTag, string) {},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Merge concatenates batches in source priority order, tags every record with
// its batch's source and keeps the first record of every name or location
// identity. A record that already carries a source keeps it.
func (e *Engine) Merge(batches []domain.SourceBatch) domain.ReconciledSet {
	ordered := slices.Clone(batches)
	slices.SortStableFunc(ordered, func(a, b domain.SourceBatch) int { return a.Tag.Rank() - b.Tag.Rank() })

	out := domain.ReconciledSet{
		Records: []domain.RawPOI{},
		Stats: domain.MergeStats{
			BySource: map[domain.SourceTag]int{},
			Dropped:  map[domain.DropReason]int{},
		},
	}
	seenNames := make(map[string]string) // normalized -> accepted display name
	index := e.newIndex()

	for _, b := range ordered {
		out.Stats.BySource[b.Tag] += len(b.Records)
		for _, rec := range b.Records {
			out.Stats.Input++
			if rec.Source == "" {
				rec.Source = b.Tag
			}

			c, ok := rec.Coords()
			if !ok {
				e.log.Warn().Str("name", rec.Name).Str("source", string(rec.Source)).Msg("poi missing coordinates")
				e.drop(&out, domain.Drop{Name: rec.Name, Source: rec.Source, Reason: domain.DropNoCoordinates})
				continue
			}

			key := NormalizeName(rec.Name)
			if owner, dup := seenNames[key]; dup {
				e.log.Debug().Str("name", rec.Name).Str("source", string(rec.Source)).Msg("skipping duplicate poi by name")
				e.drop(&out, domain.Drop{Name: rec.Name, Source: rec.Source, Reason: domain.DropNameDuplicate, MatchedName: owner})
				continue
			}

			p := geo.Point{Lat: c.Lat, Lon: c.Lon}
			if ord, km, near := index.FirstWithin(p, DuplicateRadiusKm); near {
				m := km * 1000
				e.log.Debug().Str("name", rec.Name).Str("source", string(rec.Source)).
					Str("matched", out.Records[ord].Name).Float64("distance_m", m).Msg("skipping duplicate poi by location")
				e.drop(&out, domain.Drop{Name: rec.Name, Source: rec.Source, Reason: domain.DropLocationDuplicate, MatchedName: out.Records[ord].Name, DistanceM: &m})
				continue
			}

			out.Records = append(out.Records, rec)
			seenNames[key] = rec.Name
			index.Insert(p)
			out.Stats.Accepted++
			e.observe(rec.Source, "accepted")
		}
	}

	e.log.Info().Int("input", out.Stats.Input).Int("accepted", out.Stats.Accepted).Msg("reconciled pois")
	return out
}

func (e *Engine) drop(out *domain.ReconciledSet, d domain.Drop) {
	out.Drops = append(out.Drops, d)
	out.Stats.Dropped[d.Reason]++
	e.observe(d.Source, string(d.Reason))
}
