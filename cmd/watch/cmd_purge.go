package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Remove stale fundamentals from the cache store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n := a.fund.Purge(cmd.Context())
		fmt.Printf("purged %d stale entries, %d remain\n", n, a.fund.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
