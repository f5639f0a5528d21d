package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Source is implemented by every POI source adapter. Fetch returns the
// source's records as loose JSON-like payloads. Implementations may return an
// error; callers degrade it to an empty contribution.
type Source interface {
	Tag() SourceTag
	Fetch(ctx context.Context, intent TripIntent) ([]map[string]any, error)
}

type RunRepository interface {
	// Write paths
	RecordRun(ctx context.Context, r Run) (int64, error)

	// Read paths
	GetRun(ctx context.Context, id int64) (RunView, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Run is the audit record of one reconciliation.
type Run struct {
	TripRef  string
	City     string
	Counts   map[SourceTag]int // records fetched per source
	Accepted int
	Drops    []Drop
}

// Read models
type RunView struct {
	ID        int64             `json:"id"`
	TripRef   string            `json:"trip_ref"`
	City      string            `json:"city"`
	Counts    map[SourceTag]int `json:"counts"`
	Accepted  int               `json:"accepted"`
	Drops     []Drop            `json:"drops"`
	CreatedAt time.Time         `json:"created_at"`
}
