package app

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"poi_reconciler/internal/domain"
)

type QueryService struct {
	repo     domain.RunRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.RunRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// GetRun returns a recorded run. Runs are immutable once written, so cached
// views never need invalidation.
func (s *QueryService) GetRun(ctx context.Context, id int64) (domain.RunView, error) {
	key := fmt.Sprintf("run:%d", id)
	var rv domain.RunView
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &rv); ok {
			return rv, nil
		}
	}
	r, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return domain.RunView{}, err
	}

	// copy to avoid aliasing the repo's backing storage
	out := deepCopyRunView(r)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

func deepCopyRunView(in domain.RunView) domain.RunView {
	out := in
	out.Counts = maps.Clone(in.Counts)
	out.Drops = slices.Clone(in.Drops)
	return out
}
