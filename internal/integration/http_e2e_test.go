//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	goredis "github.com/redis/go-redis/v9"

	server "poi_reconciler/internal/adapters/http_server"
	redisad "poi_reconciler/internal/adapters/redis"
	"poi_reconciler/internal/adapters/search"
	"poi_reconciler/internal/app"
	"poi_reconciler/internal/domain"
	mysqlrepo "poi_reconciler/internal/storage/mysql"
)

// graphStub stands in for the Neo4j source.
type graphStub struct{}

func (graphStub) Tag() domain.SourceTag { return domain.SourceGraph }

func (graphStub) Fetch(context.Context, domain.TripIntent) ([]map[string]any, error) {
	return []map[string]any{
		{"name": "The Drawing Center", "lat": 40.72290, "lon": -74.00340, "neighborhood": "SoHo", "duration_min": int64(60)},
		{"name": "Katz's Delicatessen", "lat": 40.7223, "lon": -73.9874},
	}, nil
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations", "mysql")
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=poi"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/poi?parseTime=true&multiStatements=true&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		if db, e = sql.Open("mysql", dsn); e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	return db
}

func TestHTTP_EndToEnd_ReconcileThenLookup(t *testing.T) {
	db := startMySQL(t)

	mr := miniredis.RunT(t)
	cache := redisad.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pois/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"name": "Drawing Center", "latitude": 40.72300, "longitude": -74.00330},
			{"name": "The High Line", "lat": 40.7480, "lng": -74.0048, "tags": []string{"park", "views"}},
		}})
	}))
	defer api.Close()
	searchClient, err := search.New(api.URL, "k", 100)
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}

	repo := mysqlrepo.New(db)
	research := app.NewResearchService(
		[]domain.Source{searchClient, graphStub{}},
		app.NewEngine(),
		repo, cache, time.Minute,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := research.Reconcile(ctx, domain.TripIntent{Ref: "e2e", City: "New York City, NY", Interests: []string{"art"}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.RunID == 0 || out.Set.Stats.Accepted != 3 {
		t.Fatalf("unexpected research: run=%d stats=%+v", out.RunID, out.Set.Stats)
	}

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Runs:   app.NewQueryService(repo, cache, time.Minute),
		Checks: map[string]server.Pinger{"mysql": repo, "redis": cache},
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	res, err := http.Get(fmt.Sprintf("%s/v1/runs/%d", ts.URL, out.RunID))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var rv domain.RunView
	if err := json.NewDecoder(res.Body).Decode(&rv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rv.TripRef != "e2e" || rv.Accepted != 3 || rv.Counts[domain.SourceAPI] != 2 || rv.Counts[domain.SourceGraph] != 2 {
		t.Fatalf("unexpected run: %+v", rv)
	}
	if len(rv.Drops) != 1 || rv.Drops[0].Reason != domain.DropNameDuplicate || rv.Drops[0].Source != domain.SourceGraph {
		t.Fatalf("unexpected drops: %+v", rv.Drops)
	}

	ready, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET readyz: %v", err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Fatalf("readyz status %d", ready.StatusCode)
	}
}
