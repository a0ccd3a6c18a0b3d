package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var topCmd = &cobra.Command{
	Use:   "top-contacts",
	Short: "List contacts with the most linked documents",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 1 {
			fatalf("--limit must be at least 1 (got %d)", limit)
		}

		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()

		top, err := store.TopContacts(ctx, limit)
		if err != nil {
			fatalf("%v", err)
		}
		printTopContacts(os.Stdout, top)
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().IntP("limit", "n", 10, "Number of contacts to show")
}
