package shared

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string
	OpsAddr  string

	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	SearchBase string
	SearchKey  string
	SearchRPS  int

	VectorDSN  string
	VectorK    int
	GeminiKey  string
	EmbedModel string
	EmbedDims  int

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPass     string
	Neo4jDatabase string
	GraphLimit    int

	Workers       int
	GeoIndex      string
	MinCandidates int
	MaxCandidates int

	// Warnings are collected while loading, before a logger is configured.
	Warnings []string
}

// Load reads the environment, after loading envFile (default ".env") when it
// exists. Variables already set in the environment win over the file.
func Load(envFile string) Config {
	if envFile == "" {
		envFile = ".env"
	}
	var warnings []string
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		warnings = append(warnings, fmt.Sprintf("could not load env file %s: %v", envFile, err))
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			warnings = append(warnings, fmt.Sprintf("ignoring non-integer %s=%q", k, v))
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		LogLevel:      env("LOG_LEVEL", "info"),
		OpsAddr:       env("OPS_ADDR", ""),
		MySQLDSN:      env("MYSQL_DSN", ""),
		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		SearchBase:    env("SEARCH_BASE_URL", ""),
		SearchKey:     env("SEARCH_API_KEY", ""),
		SearchRPS:     atoi("SEARCH_RPS", 5),
		VectorDSN:     env("VECTOR_DSN", ""),
		VectorK:       atoi("VECTOR_K", 15),
		GeminiKey:     env("GEMINI_API_KEY", ""),
		EmbedModel:    env("EMBED_MODEL", "text-embedding-004"),
		EmbedDims:     atoi("EMBED_DIMS", 768),
		Neo4jURI:      env("NEO4J_URI", ""),
		Neo4jUser:     env("NEO4J_USER", "neo4j"),
		Neo4jPass:     env("NEO4J_PASSWORD", ""),
		Neo4jDatabase: env("NEO4J_DATABASE", "neo4j"),
		GraphLimit:    atoi("GRAPH_LIMIT", 20),
		Workers:       atoi("WORKERS", 4),
		GeoIndex:      env("GEO_INDEX", "linear"),
		MinCandidates: atoi("MIN_CANDIDATES", 20),
		MaxCandidates: atoi("MAX_CANDIDATES", 30),
	}
	if c.SearchBase != "" && c.SearchKey == "" {
		warnings = append(warnings, "SEARCH_API_KEY is empty")
	}
	if c.VectorDSN != "" && c.GeminiKey == "" {
		warnings = append(warnings, "VECTOR_DSN is set but GEMINI_API_KEY is empty; vector source disabled")
	}
	c.Warnings = warnings
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
