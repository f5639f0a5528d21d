package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"poi_reconciler/internal/adapters/observability"
	"poi_reconciler/internal/shared"
)

var (
	envFile string
	cfg     shared.Config
	reg     *prometheus.Registry
)

var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Reconcile and validate POI candidates for trips",
	Long: `
reconciler fetches point-of-interest records for a trip from the search API,
the vector store and the graph store, merges them into one deduplicated set
and validates final candidate selections.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = shared.Load(envFile)

		// global logger: console in dev, JSON otherwise, always on stderr
		log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
		for _, w := range cfg.Warnings {
			log.Warn().Msg(w)
		}
		reg = observability.InitRegistry()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	rootCmd.AddCommand(reconcileCmd, validateCmd, runsCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
