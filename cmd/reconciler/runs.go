package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"poi_reconciler/internal/app"
	"poi_reconciler/internal/domain"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded reconciliation runs",
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one recorded run with its drops",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid run id %q", args[0])
		}

		d, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer d.Close()
		if d.repo == nil {
			return errors.New("MYSQL_DSN is required to look up runs")
		}

		run, err := app.NewQueryService(d.repo, d.cache, cfg.CacheTTL).GetRun(cmd.Context(), id)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %d not found", id)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runsCmd.AddCommand(runsShowCmd)
}
