package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/kennyhq/contactlink/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show-contact <contact-id>",
	Short: "Show a contact's identities and linked document count",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()

		summary, err := store.GetContactSummary(ctx, args[0])
		if errors.Is(err, storage.ErrNotFound) {
			fatalf("contact %s not found (use search-contacts to find ids)", args[0])
		}
		if err != nil {
			fatalf("%v", err)
		}
		printContactSummary(os.Stdout, summary)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
