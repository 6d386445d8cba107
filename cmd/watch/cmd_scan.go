package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"MomentumWatch/internal/model"
	"MomentumWatch/internal/scanner"
)

var (
	scanView    string
	scanSetups  bool
	scanTimeout time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle and print it as JSON",
	Long: `Run a single fetch, enrich, derive and rank cycle and print the result.

Examples:
  watch scan
  watch scan --view gappers --setups`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanView, "view", "", "Print only one view: gappers, momentum or high_rvol")
	scanCmd.Flags().BoolVar(&scanSetups, "setups", false, "Keep only records matching the setup criteria")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "Overall timeout")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.scanOnce(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	var out any = res
	if scanView != "" {
		v := model.View(scanView)
		switch v {
		case model.ViewGappers, model.ViewMomentum, model.ViewHighRVol:
		default:
			return fmt.Errorf("unknown view %q", scanView)
		}
		records := res.View(v)
		if scanSetups {
			records = scanner.SetupsOnly(records)
		}
		out = records
	} else if scanSetups {
		res.Gappers = scanner.SetupsOnly(res.Gappers)
		res.Momentum = scanner.SetupsOnly(res.Momentum)
		res.HighRVol = scanner.SetupsOnly(res.HighRVol)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
