// Package graph is the neighborhood-clustered POI source backed by Neo4j.
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/domain"
)

const (
	DefaultLimit       = 20
	DefaultDurationMin = 60
)

// POIs are linked to neighborhoods with IN_NEIGHBORHOOD, to ticket providers
// with REQUIRES_TICKET and to each other with NEAR.
const poisByCityCypher = `
MATCH (p:POI)-[:IN_NEIGHBORHOOD]->(n:Neighborhood)
WHERE toLower(n.city) IN $cities
OPTIONAL MATCH (p)-[t:REQUIRES_TICKET]->(tp:TicketProvider)
OPTIONAL MATCH (p)-[:NEAR]->(q:POI)
WITH p, n, t, tp, collect(DISTINCT q.name) AS nearby
RETURN p.name AS name,
       p.lat AS lat,
       p.lon AS lon,
       coalesce(p.tags, CASE WHEN p.category IS NULL THEN [] ELSE [p.category] END) AS tags,
       coalesce(p.duration_min, $defaultDuration) AS duration_min,
       tp IS NOT NULL AS booking_required,
       tp.url AS booking_url,
       t.advance_days AS advance_days,
       n.name AS neighborhood,
       nearby AS nearby_pois,
       coalesce(p.popularity, 0.0) AS popularity
ORDER BY popularity DESC, name
LIMIT $limit
`

// queryFunc runs a read query and returns its records.
type queryFunc func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

type Store struct {
	run             queryFunc
	limit           int
	defaultDuration int
}

func New(driver neo4j.DriverWithContext, database string, limit int) *Store {
	return newStore(func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
		res, err := neo4j.ExecuteQuery(ctx, driver, cypher, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(database),
			neo4j.ExecuteQueryWithReadersRouting(),
		)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}, limit)
}

func newStore(run queryFunc, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{run: run, limit: limit, defaultDuration: DefaultDurationMin}
}

// NewDriver opens a driver and checks connectivity.
func NewDriver(ctx context.Context, uri, user, pass string) (neo4j.DriverWithContext, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return nil, err
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	return d, nil
}

func (s *Store) Tag() domain.SourceTag { return domain.SourceGraph }

func (s *Store) Fetch(ctx context.Context, intent domain.TripIntent) ([]map[string]any, error) {
	start := time.Now()
	recs, err := s.run(ctx, poisByCityCypher, map[string]any{
		"cities":          cityKeys(intent.City),
		"limit":           s.limit,
		"defaultDuration": s.defaultDuration,
	})
	if err != nil {
		observability.ObserveExternal("neo4j", "pois_by_city", 500, time.Since(start))
		return nil, fmt.Errorf("graph: query: %w", err)
	}
	observability.ObserveExternal("neo4j", "pois_by_city", 200, time.Since(start))

	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.AsMap())
	}
	return out, nil
}

// cityKeys matches a neighborhood's city against the full destination and
// its part before the first comma ("New York City, NY" -> "new york city").
func cityKeys(city string) []string {
	full := strings.ToLower(strings.TrimSpace(city))
	keys := []string{full}
	if head, _, ok := strings.Cut(full, ","); ok {
		if head = strings.TrimSpace(head); head != "" {
			keys = append(keys, head)
		}
	}
	return keys
}
