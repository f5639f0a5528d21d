package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/app"
	"poi_reconciler/internal/domain"
)

var reconcileFlags struct {
	intents   string
	city      string
	interests []string
	workers   int
	opsAddr   string
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fetch, merge and audit POI candidates for one or more trips",
	Long: `
Reconcile reads trip intents (a JSON object or array, from --intents or stdin
with "-") or a single --city, fetches every configured source per trip and
prints the reconciled sets as a JSON array on stdout.
`,
	RunE: runReconcile,
}

func init() {
	f := reconcileCmd.Flags()
	f.StringVar(&reconcileFlags.intents, "intents", "", `trip intents JSON file ("-" for stdin)`)
	f.StringVar(&reconcileFlags.city, "city", "", "reconcile a single trip to this city")
	f.StringSliceVar(&reconcileFlags.interests, "interests", nil, "interests for --city")
	f.IntVar(&reconcileFlags.workers, "workers", 0, "trips reconciled concurrently (default WORKERS)")
	f.StringVar(&reconcileFlags.opsAddr, "ops-addr", "", "serve health and metrics on this address while running")
}

// tripResult keeps input order in the output; failed trips carry Error.
type tripResult struct {
	*app.Research
	Ref   string `json:"ref,omitempty"`
	Error string `json:"error,omitempty"`
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	intents, err := loadIntents(cmd.InOrStdin())
	if err != nil {
		return err
	}

	d, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()
	d.openSources(ctx, cfg)
	if len(d.sources) == 0 {
		log.Warn().Msg("no sources configured; every trip will reconcile to an empty set")
	}

	engine := app.NewEngine(
		app.WithLogger(log.Logger),
		app.WithIndex(cfg.GeoIndex),
		app.WithObserver(observability.ObserveMerge),
	)
	research := app.NewResearchService(d.sources, engine, d.repo, d.cache, cfg.CacheTTL).
		WithFetchObserver(observability.ObserveSource)

	addr := reconcileFlags.opsAddr
	if addr == "" {
		addr = cfg.OpsAddr
	}
	if addr != "" {
		stopOps := startOps(addr, d, nil)
		defer stopOps()
	}

	workers := reconcileFlags.workers
	if workers <= 0 {
		workers = cfg.Workers
	}
	log.Info().Int("trips", len(intents)).Int("workers", workers).Msg("reconcile starting")

	results := reconcileAll(ctx, research, intents, workers)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	log.Info().Int("trips", len(results)).Int("failed", failed).Msg("reconcile completed")
	if failed > 0 {
		return fmt.Errorf("%d of %d trips failed", failed, len(results))
	}
	return nil
}

// reconcileAll runs at most workers trips at a time.
func reconcileAll(ctx context.Context, svc *app.ResearchService, intents []domain.TripIntent, workers int) []tripResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]tripResult, len(intents))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, intent := range intents {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = tripResult{Ref: intent.Ref, Error: err.Error()}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			res, err := svc.Reconcile(ctx, intent)
			out := tripResult{Ref: intent.Ref}
			// an audit failure still yields a usable set
			if res.Intent.City != "" {
				out.Research = &res
			}
			if err != nil {
				log.Warn().Str("trip", intent.Ref).Str("city", intent.City).Err(err).Msg("reconcile failed")
				out.Error = err.Error()
			} else {
				log.Info().Str("trip", intent.Ref).Int64("run", res.RunID).Int("accepted", res.Set.Stats.Accepted).Msg("reconcile ok")
			}
			results[i] = out
		}()
	}

	wg.Wait()
	return results
}

func loadIntents(stdin io.Reader) ([]domain.TripIntent, error) {
	if reconcileFlags.city != "" {
		return []domain.TripIntent{{
			Ref:       "cli",
			City:      reconcileFlags.city,
			Interests: reconcileFlags.interests,
		}}, nil
	}
	if reconcileFlags.intents == "" {
		return nil, errors.New("one of --intents or --city is required")
	}
	data, err := readInput(reconcileFlags.intents, stdin)
	if err != nil {
		return nil, err
	}
	return parseIntents(data)
}

// parseIntents accepts a single intent object or an array of them. Intents
// without a ref get their position as ref.
func parseIntents(data []byte) ([]domain.TripIntent, error) {
	data = bytes.TrimSpace(data)
	var intents []domain.TripIntent
	if len(data) > 0 && data[0] == '{' {
		var one domain.TripIntent
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("parse intent: %w", err)
		}
		intents = append(intents, one)
	} else if err := json.Unmarshal(data, &intents); err != nil {
		return nil, fmt.Errorf("parse intents: %w", err)
	}
	for i := range intents {
		if strings.TrimSpace(intents[i].Ref) == "" {
			intents[i].Ref = fmt.Sprintf("trip-%d", i+1)
		}
	}
	return intents, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
