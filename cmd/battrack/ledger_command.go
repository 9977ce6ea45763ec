package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"battrack/internal/ledger"
	"battrack/internal/logging"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Serial ledger utilities",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerSavCommand(ctx))

	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List the most recent serial records",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			records, err := store.Records()
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Ledger is empty")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.Serial,
					rec.UnitType,
					rec.CreationTS,
					orDash(rec.TestDoneTS),
					orDash(rec.ShippingTS),
					yesNo(rec.SavStatus),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Serial", "Unit", "Created", "Test Done", "Shipped", "In Service"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show (0 for all)")
	return cmd
}

func newLedgerSavCommand(ctx *commandContext) *cobra.Command {
	var openOnly bool

	cmd := &cobra.Command{
		Use:          "sav",
		Short:        "List service visits",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			records, err := store.SavRecords()
			if err != nil {
				return fmt.Errorf("read service ledger: %w", err)
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				if openOnly && !rec.Open() {
					continue
				}
				departure := rec.DepartureTS
				if rec.Open() {
					departure = "open"
				}
				rows = append(rows, []string{rec.Serial, rec.ArrivalTS, departure})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No service visits")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Serial", "Arrival", "Departure"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&openOnly, "open", false, "Show only visits without a departure")
	return cmd
}

func openStore(ctx *commandContext) (*ledger.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store := ledger.NewStore(cfg, version, logging.Nop())
	if err := store.EnsureFiles(); err != nil {
		return nil, err
	}
	return store, nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
