package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kennyhq/contactlink/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve-contacts",
	Short: "Build contacts from the address book and messaging handles",
	Long: `Load every address-book record, extract phone and handle identities from
messaging documents, attach them to matching contacts and create contacts for
confident unmatched identities. Results are upserted, so reruns do not grow
the store.

Example:
  contactlink resolve-contacts --db ~/kenny.db --contact-db ~/contact_memory.db`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()
		docs := openDocumentStore(ctx)
		defer docs.Close()

		err := withRunLock("resolve-contacts", func() error {
			start := time.Now()
			res, err := resolver.New(docs, store, cfg, resolver.WithLogger(logger)).Run(ctx)
			if err != nil {
				return err
			}
			printResolveSummary(os.Stdout, res, time.Since(start))
			return nil
		})
		if err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
