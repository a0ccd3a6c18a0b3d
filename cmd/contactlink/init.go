package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the contact-memory database",
	Long: `Create the contact-memory database and apply pending schema migrations.

Safe to run repeatedly: existing contacts, identities and links are kept.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()

		version, err := store.SchemaVersion(ctx)
		if err != nil {
			fatalf("failed to read schema version: %v", err)
		}

		fmt.Printf("\n%s Initialized contact store\n\n", green("✓"))
		fmt.Printf("  Database:       %s\n", cyan(cfg.ContactDBPath))
		fmt.Printf("  Schema version: %d\n", version)
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("contactlink resolve-contacts"))
		fmt.Printf("  %s\n", gray("contactlink link-documents"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
