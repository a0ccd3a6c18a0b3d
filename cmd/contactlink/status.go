package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kennyhq/contactlink/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store sizes, schema version and last run times",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()

		fmt.Printf("\n%s\n\n", bold("=== Contact Store ==="))

		contacts, identities, err := store.CountContacts(ctx)
		if err != nil {
			fatalf("failed to count contacts: %v", err)
		}
		links, err := store.ListLinks(ctx)
		if err != nil {
			fatalf("failed to count links: %v", err)
		}
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			fatalf("failed to read schema version: %v", err)
		}
		resolved, err := store.LastRun(ctx, storage.MetaLastResolvedAt)
		if err != nil {
			fatalf("%v", err)
		}
		linked, err := store.LastRun(ctx, storage.MetaLastLinkedAt)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("  Database:       %s\n", cyan(cfg.ContactDBPath))
		fmt.Printf("  Schema version: %d\n", version)
		fmt.Printf("  Contacts:       %d\n", contacts)
		fmt.Printf("  Identities:     %d\n", identities)
		fmt.Printf("  Links:          %d\n", len(links))
		fmt.Printf("  Last resolved:  %s\n", formatLastRun(resolved))
		fmt.Printf("  Last linked:    %s\n", formatLastRun(linked))
		fmt.Println()

		docs, err := storage.NewDocumentStore(ctx, storageConfig())
		if err != nil {
			fmt.Printf("%s\n  %s %v\n\n", yellow("Document Store:"), gray("unavailable:"), err)
			return
		}
		defer docs.Close()

		counts, err := docs.CountDocuments(ctx)
		if err != nil {
			fatalf("failed to count documents: %v", err)
		}
		sources := make([]string, 0, len(counts))
		for s := range counts {
			sources = append(sources, s)
		}
		sort.Strings(sources)

		fmt.Printf("%s %s\n", yellow("Document Store:"), cyan(cfg.DocumentDBPath))
		for _, s := range sources {
			fmt.Printf("  %-14s  %d\n", s+":", counts[s])
		}
		fmt.Println()

		stale, by, err := storage.LinksStale(cfg.DocumentDBPath, linked)
		switch {
		case err != nil:
			logger.Debug("freshness check failed", "error", err)
		case stale && by > 0:
			fmt.Printf("%s Documents changed %s after the last link run; rerun link-documents\n\n", yellow("⚠"), formatDuration(by))
		case stale:
			fmt.Printf("%s Documents have never been linked; run link-documents\n\n", yellow("⚠"))
		default:
			fmt.Printf("%s Links are up to date\n\n", green("✓"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
