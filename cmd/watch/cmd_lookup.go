package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup SYMBOL",
	Short: "Fetch one symbol and print its derived record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		symbol := strings.ToUpper(args[0])

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, found, err := a.lookupSymbol(ctx, symbol, nil)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("unknown symbol %s", symbol)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
