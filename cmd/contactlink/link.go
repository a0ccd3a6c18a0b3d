package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kennyhq/contactlink/internal/linker"
)

var linkTop int

var linkCmd = &cobra.Command{
	Use:   "link-documents",
	Short: "Link mail, messaging and calendar documents to contacts",
	Long: `Rebuild the document link table from the stored contact identities.

Messaging documents link to the contact owning the handle's phone, mail
documents to known sender and recipient addresses, and personal calendar
events to contacts named in them. The previous links are replaced in one
transaction.

Run resolve-contacts first so the identity table is current.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()
		docs := openDocumentStore(ctx)
		defer docs.Close()

		err := withRunLock("link-documents", func() error {
			start := time.Now()
			res, err := linker.New(docs, store, cfg, linker.WithLogger(logger)).Run(ctx)
			if err != nil {
				return err
			}
			printLinkSummary(os.Stdout, res, time.Since(start))

			if linkTop > 0 {
				top, err := store.TopContacts(ctx, linkTop)
				if err != nil {
					return err
				}
				printTopContacts(os.Stdout, top)
			}
			return nil
		})
		if err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().IntVar(&linkTop, "top", 10, "Show the N most linked contacts after the run (0 to disable)")
}
