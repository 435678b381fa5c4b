package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	syncpkg "github.com/bidwatch/koneps-sync/internal/sync"
)

var (
	syncStartDate string
	syncEndDate   string
	syncMaxPages  int
	syncDataset   string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot synchronization for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncStartDate, "start", "", "Range start date, YYYYMMDD (required)")
	syncCmd.Flags().StringVar(&syncEndDate, "end", "", "Range end date, YYYYMMDD (required)")
	syncCmd.Flags().IntVar(&syncMaxPages, "max-pages", 0, "Cap on pages fetched, 0 for no cap")
	syncCmd.Flags().StringVar(&syncDataset, "dataset", "notices", "Dataset to sync: notices or awards")
	syncCmd.MarkFlagRequired("start")
	syncCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.pg.Close()

	if err := syncpkg.ValidateDateRange(syncStartDate, syncEndDate, a.cfg.Upstream.MaxRangeDays); err != nil {
		return err
	}

	var result *syncpkg.Result
	switch syncDataset {
	case "notices":
		result, err = a.coordinator.SyncNotices(ctx, syncStartDate, syncEndDate, syncMaxPages)
	case "awards":
		result, err = a.coordinator.SyncAwards(ctx, syncStartDate, syncEndDate, syncMaxPages)
	default:
		return fmt.Errorf("unknown dataset %q, expected notices or awards", syncDataset)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
