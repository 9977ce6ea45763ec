package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"battrack/internal/ledger"
	"battrack/internal/logging"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "stats",
		Short:        "Show production and service statistics",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store := ledger.NewStore(cfg, version, logging.Nop())
			if err := store.EnsureFiles(); err != nil {
				return err
			}

			now := time.Now()
			stats, err := store.Stats(now)
			if err != nil {
				return fmt.Errorf("compute stats: %w", err)
			}
			sav, err := store.SavStats(now)
			if err != nil {
				return fmt.Errorf("compute service stats: %w", err)
			}

			rows := [][]string{
				{"Total serials", strconv.Itoa(stats.TotalRecords)},
				{"Produced today", strconv.Itoa(stats.ProducedToday)},
				{"Shipped today", strconv.Itoa(stats.ShippedToday)},
				{"Shipped this month", strconv.Itoa(stats.ShippedMonth)},
				{"Service visits open", strconv.Itoa(sav.OpenVisits)},
				{"Service entries total", strconv.Itoa(sav.TotalEntries)},
				{"Service departures today", strconv.Itoa(sav.DeparturesToday)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
