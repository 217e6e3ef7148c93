package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/salesetl/src/model"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the processed-file ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files already ingested with their fingerprint and row count",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		wh, err := openWarehouse(ctx)
		if err != nil {
			return err
		}
		defer wh.Close()

		entries, err := model.NewLedger(wh).List(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tROWS\tLAST PROCESSED\tFINGERPRINT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.16s\n", e.FileName, e.RowCountIngested, e.LastProcessedAt.Format(time.RFC3339), e.ContentFingerprint)
		}
		return tw.Flush()
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerListCmd)
	rootCmd.AddCommand(ledgerCmd)
}
