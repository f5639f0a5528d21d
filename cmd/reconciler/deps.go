package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"poi_reconciler/internal/adapters/gemini"
	"poi_reconciler/internal/adapters/graph"
	server "poi_reconciler/internal/adapters/http_server"
	redisad "poi_reconciler/internal/adapters/redis"
	"poi_reconciler/internal/adapters/search"
	"poi_reconciler/internal/adapters/vector"
	"poi_reconciler/internal/domain"
	"poi_reconciler/internal/shared"
	mysqlrepo "poi_reconciler/internal/storage/mysql"
)

// deps holds whatever backends the configuration enables. Unset backends stay
// nil interfaces, never typed nils.
type deps struct {
	repo    domain.RunRepository
	cache   domain.Cache
	sources []domain.Source
	checks  map[string]server.Pinger
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// openStorage connects the run audit store and the cache.
func openStorage(ctx context.Context, c shared.Config) (*deps, error) {
	d := &deps{checks: map[string]server.Pinger{}}

	if c.MySQLDSN != "" {
		db, err := sql.Open("mysql", c.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		repo := mysqlrepo.New(db)
		d.repo = repo
		d.checks["mysql"] = repo
		d.closers = append(d.closers, func() { _ = db.Close() })
	}

	if c.RedisAddr != "" {
		cache := redisad.New(c.RedisAddr, c.RedisPass, c.RedisDB)
		if err := cache.Ping(ctx); err != nil {
			// the cache is an optimization; run without it
			log.Warn().Err(err).Str("addr", c.RedisAddr).Msg("redis unavailable, caching disabled")
			_ = cache.Close()
		} else {
			d.cache = cache
			d.checks["redis"] = cache
			d.closers = append(d.closers, func() { _ = cache.Close() })
		}
	}
	return d, nil
}

// openSources builds every configured source. A source that cannot be set up
// is logged and left out.
func (d *deps) openSources(ctx context.Context, c shared.Config) {
	if c.SearchBase != "" {
		cl, err := search.New(c.SearchBase, c.SearchKey, c.SearchRPS)
		if err != nil {
			log.Warn().Err(err).Msg("search source disabled")
		} else {
			d.sources = append(d.sources, cl)
		}
	}

	if c.VectorDSN != "" && c.GeminiKey != "" {
		if err := d.openVector(ctx, c); err != nil {
			log.Warn().Err(err).Msg("vector source disabled")
		}
	}

	if c.Neo4jURI != "" {
		driver, err := graph.NewDriver(ctx, c.Neo4jURI, c.Neo4jUser, c.Neo4jPass)
		if err != nil {
			log.Warn().Err(err).Str("uri", c.Neo4jURI).Msg("graph source disabled")
		} else {
			d.sources = append(d.sources, graph.New(driver, c.Neo4jDatabase, c.GraphLimit))
			d.checks["neo4j"] = server.PingFunc(driver.VerifyConnectivity)
			d.closers = append(d.closers, func() { _ = driver.Close(context.Background()) })
		}
	}

	tags := make([]string, 0, len(d.sources))
	for _, s := range d.sources {
		tags = append(tags, string(s.Tag()))
	}
	log.Info().Strs("sources", tags).Msg("sources configured")
}

func (d *deps) openVector(ctx context.Context, c shared.Config) error {
	pool, err := vector.NewPool(ctx, c.VectorDSN)
	if err != nil {
		return err
	}
	emb, err := gemini.New(ctx, c.GeminiKey, c.EmbedModel, int32(c.EmbedDims))
	if err != nil {
		pool.Close()
		return err
	}
	d.sources = append(d.sources, vector.New(pool, emb, c.VectorK))
	d.checks["pgvector"] = pool
	d.closers = append(d.closers, pool.Close)
	return nil
}
