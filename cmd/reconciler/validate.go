package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/app"
)

var errRejected = errors.New("candidate set rejected")

type validateOptions struct {
	candidates string
	min, max   int
	all        bool
}

var validateFlags = validateOptions{candidates: "-"}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a final candidate selection against size and field rules",
	Long: `
Validate reads a JSON array of candidates (from --candidates or stdin with
"-") and prints the verdict. The exit status is 1 when the set is rejected.
`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.candidates, "candidates", "-", `candidates JSON file ("-" for stdin)`)
	f.IntVar(&validateFlags.min, "min", 0, "minimum candidates (default MIN_CANDIDATES)")
	f.IntVar(&validateFlags.max, "max", 0, "maximum candidates (default MAX_CANDIDATES)")
	f.BoolVar(&validateFlags.all, "all", false, "report every violation instead of the first")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := readInput(validateFlags.candidates, cmd.InOrStdin())
	if err != nil {
		return err
	}

	lo, hi := cfg.MinCandidates, cfg.MaxCandidates
	if validateFlags.min > 0 {
		lo = validateFlags.min
	}
	if validateFlags.max > 0 {
		hi = validateFlags.max
	}
	if lo > hi {
		return fmt.Errorf("invalid bounds: min %d > max %d", lo, hi)
	}
	opts := []app.ValidatorOption{app.WithBounds(lo, hi)}
	if validateFlags.all {
		opts = append(opts, app.WithCollectAll())
	}

	verdict, _ := app.NewValidator(opts...).ValidateJSON(data)
	observability.ObserveVerdict(verdict.Valid)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		return fmt.Errorf("write verdict: %w", err)
	}
	if !verdict.Valid {
		log.Info().Str("reason", verdict.Reason).Msg("candidate set rejected")
		return errRejected
	}
	return nil
}
