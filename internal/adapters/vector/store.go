// Package vector is the semantic-similarity POI source backed by pgvector.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/domain"
)

const DefaultK = 15

// Embedder turns query text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier is the part of pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const matchSQL = `
SELECT
  name,
  lat,
  lon,
  tags,
  duration_min::bigint AS duration_min,
  booking_required,
  booking_url,
  notes,
  open_hours,
  similarity AS relevance_score
FROM match_poi_facts($1::vector, $2)
`

type Store struct {
	db    Querier
	embed Embedder
	k     int
}

func New(db Querier, e Embedder, k int) *Store {
	if k <= 0 {
		k = DefaultK
	}
	return &Store{db: db, embed: e, k: k}
}

// NewPool opens and pings a pgx pool sized for a batch CLI.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *Store) Tag() domain.SourceTag { return domain.SourceVector }

func (s *Store) Fetch(ctx context.Context, intent domain.TripIntent) ([]map[string]any, error) {
	if s.embed == nil {
		return nil, errors.New("vector: no embedder configured")
	}
	vec, err := s.embed.Embed(ctx, QueryText(intent))
	if err != nil {
		return nil, fmt.Errorf("vector: embed query: %w", err)
	}

	start := time.Now()
	rows, err := s.db.Query(ctx, matchSQL, Literal(vec), s.k)
	if err != nil {
		observability.ObserveExternal("pgvector", "match_poi_facts", 500, time.Since(start))
		return nil, fmt.Errorf("vector: query: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		observability.ObserveExternal("pgvector", "match_poi_facts", 500, time.Since(start))
		return nil, fmt.Errorf("vector: scan: %w", err)
	}
	observability.ObserveExternal("pgvector", "match_poi_facts", 200, time.Since(start))
	return out, nil
}

// QueryText is the free-text query embedded for similarity search.
func QueryText(intent domain.TripIntent) string {
	return strings.TrimSpace(fmt.Sprintf("%s attractions %s", intent.City, strings.Join(intent.Interests, " ")))
}

// Literal formats v in pgvector's text input form, e.g. [0.1,-2,3.5].
func Literal(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
