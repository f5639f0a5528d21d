package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"poi_reconciler/internal/domain"
)

var ErrInvalidIntent = errors.New("invalid trip intent")

// FetchObserver is told about every source fetch, including failed ones.
type FetchObserver func(tag domain.SourceTag, records int, err error, dur time.Duration)

// ResearchService fetches every source for a trip, reconciles the results and
// records an audit of the run.
type ResearchService struct {
	sources  []domain.Source
	engine   *Engine
	repo     domain.RunRepository
	cache    domain.Cache
	cacheTTL time.Duration
	observe  FetchObserver
}

// Research is the outcome of one reconciliation. RunID is zero when no
// repository is configured.
type Research struct {
	RunID  int64                `json:"run_id,omitempty"`
	Intent domain.TripIntent    `json:"intent"`
	Set    domain.ReconciledSet `json:"set"`
}

// NewResearchService wires the sources and engine. repo and cache may be nil.
func NewResearchService(sources []domain.Source, e *Engine, repo domain.RunRepository, cache domain.Cache, ttl time.Duration) *ResearchService {
	return &ResearchService{
		sources:  sources,
		engine:   e,
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		observe:  func(domain.SourceTag, int, error, time.Duration) {},
	}
}

func (s *ResearchService) WithFetchObserver(fn FetchObserver) *ResearchService {
	s.observe = fn
	return s
}

func (s *ResearchService) Reconcile(ctx context.Context, intent domain.TripIntent) (Research, error) {
	if strings.TrimSpace(intent.City) == "" {
		return Research{}, fmt.Errorf("%w: city is required", ErrInvalidIntent)
	}

	// Sources never fail the run: each one contributes a (possibly empty) batch.
	batches := make([]domain.SourceBatch, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			batches[i] = domain.SourceBatch{Tag: src.Tag(), Records: s.fetch(gctx, src, intent)}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Research{}, err
	}

	for _, b := range batches {
		log.Info().Str("trip", intent.Ref).Str("source", string(b.Tag)).Int("records", len(b.Records)).Msg("source fetched")
	}

	out := Research{Intent: intent, Set: s.engine.Merge(batches)}
	if s.repo == nil {
		return out, nil
	}

	counts := make(map[domain.SourceTag]int, len(batches))
	for _, b := range batches {
		counts[b.Tag] += len(b.Records)
	}
	id, err := s.repo.RecordRun(ctx, domain.Run{
		TripRef:  intent.Ref,
		City:     intent.City,
		Counts:   counts,
		Accepted: out.Set.Stats.Accepted,
		Drops:    out.Set.Drops,
	})
	if err != nil {
		// the merge result is still usable; surface the audit failure
		return out, fmt.Errorf("record run for %q: %w", intent.Ref, err)
	}
	out.RunID = id
	return out, nil
}

// fetch reads one source through the cache. Failures degrade to an empty list
// and are never cached.
func (s *ResearchService) fetch(ctx context.Context, src domain.Source, intent domain.TripIntent) []domain.RawPOI {
	tag := src.Tag()
	key := sourceCacheKey(tag, intent)

	if s.cache != nil {
		var cached []domain.RawPOI
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached
		}
	}

	start := time.Now()
	payloads, err := src.Fetch(ctx, intent)
	s.observe(tag, len(payloads), err, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Str("source", string(tag)).Str("city", intent.City).Msg("source unavailable, continuing without it")
		return []domain.RawPOI{}
	}

	recs := mapPOIs(payloads)
	if s.cache != nil && len(recs) > 0 {
		if err := s.cache.Set(ctx, key, recs, int(s.cacheTTL.Seconds())); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return recs
}

// sourceCacheKey is stable under interest order and case.
func sourceCacheKey(tag domain.SourceTag, intent domain.TripIntent) string {
	interests := make([]string, 0, len(intent.Interests))
	for _, in := range intent.Interests {
		interests = append(interests, strings.ToLower(strings.TrimSpace(in)))
	}
	slices.Sort(interests)
	sum := sha1.Sum([]byte(strings.Join(interests, ",")))
	return fmt.Sprintf("pois:%s:%s:%s", tag, strings.ToLower(strings.TrimSpace(intent.City)), hex.EncodeToString(sum[:8]))
}
