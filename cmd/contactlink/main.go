// Command contactlink resolves contacts from the address book and messaging
// handles, and links documents to the contacts they involve.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/storage"
)

var (
	configPath   string
	documentPath string
	contactPath  string
	verbose      bool
	cfg          config.Config
	logger       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contactlink",
	Short: "Contact identity resolution and document linking",
	Long: `contactlink builds one contact per real-world person from the address book
and messaging handles found in the document store, then links mail, messaging
and calendar documents to those contacts.

Settings come from defaults, then the YAML file given by --config, then
CONTACTLINK_* environment variables (a .env file in the working directory is
read first), then the --db and --contact-db flags.

Typical use:
  contactlink init
  contactlink resolve-contacts
  contactlink link-documents
  contactlink top-contacts`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// CONTACTLINK_* variables may come from a .env file
		_ = godotenv.Load()

		loaded, err := config.Load(configPath)
		if err != nil {
			fatalf("%v", err)
		}
		if documentPath != "" {
			loaded.DocumentDBPath = documentPath
		}
		if contactPath != "" {
			loaded.ContactDBPath = contactPath
		}
		cfg = loaded

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "contactlink.yaml", "Path to the YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&documentPath, "db", "", "Document store SQLite file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&contactPath, "contact-db", "", "Contact-memory SQLite file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log skipped records and progress at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fatalf prints an error to stderr and exits non-zero
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func storageConfig() *storage.Config {
	return &storage.Config{
		DocumentPath: cfg.DocumentDBPath,
		ContactPath:  cfg.ContactDBPath,
	}
}

// openContactStore opens the contact-memory store or exits
func openContactStore(ctx context.Context) storage.ContactStore {
	store, err := storage.NewContactStore(ctx, storageConfig())
	if err != nil {
		fatalf("failed to open contact store %s: %v", cfg.ContactDBPath, err)
	}
	return store
}

// openDocumentStore opens the read-only document store or exits
func openDocumentStore(ctx context.Context) storage.DocumentStore {
	docs, err := storage.NewDocumentStore(ctx, storageConfig())
	if err != nil {
		fatalf("failed to open document store %s: %v", cfg.DocumentDBPath, err)
	}
	return docs
}

// withRunLock runs fn while holding the contact store's run lock. The lock is
// released before fn's error is returned.
func withRunLock(holder string, fn func() error) error {
	lockPath, err := storage.AcquireRunLock(cfg.ContactDBPath, holder)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.ReleaseRunLock(lockPath); err != nil {
			logger.Warn("failed to release run lock", "path", lockPath, "error", err)
		}
	}()
	return fn()
}
