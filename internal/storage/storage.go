package storage

import (
	"context"
	"time"

	"github.com/kennyhq/contactlink/internal/storage/sqlite"
	"github.com/kennyhq/contactlink/internal/types"
)

// ErrNotFound is returned when a requested contact does not exist
var ErrNotFound = sqlite.ErrNotFound

// Run metadata keys
const (
	MetaLastResolvedAt = sqlite.MetaLastResolvedAt
	MetaLastLinkedAt   = sqlite.MetaLastLinkedAt
)

// DocumentStore is the read-only store of documents and address-book records
type DocumentStore interface {
	ListAddressBook(ctx context.Context) ([]*types.AddressBookRecord, error)
	ListDocuments(ctx context.Context, source string) ([]*types.Document, error)
	CountDocuments(ctx context.Context) (map[string]int, error)

	Close() error
}

// ContactStore is the contact-memory store written by the resolver and linker
type ContactStore interface {
	// Contacts and identities
	SaveContacts(ctx context.Context, contacts []*types.Contact) error
	GetContact(ctx context.Context, id string) (*types.Contact, error)
	ListContacts(ctx context.Context) ([]*types.Contact, error)
	ListReachableContacts(ctx context.Context) ([]*types.Contact, error)
	ListIdentities(ctx context.Context) ([]*types.IdentityRecord, error)
	CountContacts(ctx context.Context) (contacts, identities int, err error)

	// Document links
	ReplaceLinks(ctx context.Context, links []types.DocumentLink) error
	ListLinks(ctx context.Context) ([]types.DocumentLink, error)
	GetContactSummary(ctx context.Context, id string) (*types.ContactSummary, error)
	TopContacts(ctx context.Context, limit int) ([]*types.ContactSummary, error)

	// Run metadata
	MarkRun(ctx context.Context, key string) error
	LastRun(ctx context.Context, key string) (*time.Time, error)
	SchemaVersion(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// DocumentPath is the document store SQLite file (opened read-only)
	// Default: "kenny.db"
	DocumentPath string

	// ContactPath is the contact-memory SQLite file (created if missing)
	// Default: "contact_memory.db"
	ContactPath string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DocumentPath: "kenny.db",
		ContactPath:  "contact_memory.db",
	}
}

// NewContactStore opens (creating if needed) the contact-memory store
func NewContactStore(ctx context.Context, cfg *Config) (ContactStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ContactPath == "" {
		cfg.ContactPath = DefaultConfig().ContactPath
	}
	s, err := sqlite.New(cfg.ContactPath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewDocumentStore opens the existing document store read-only
func NewDocumentStore(ctx context.Context, cfg *Config) (DocumentStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.DocumentPath == "" {
		cfg.DocumentPath = DefaultConfig().DocumentPath
	}
	d, err := sqlite.OpenDocuments(cfg.DocumentPath)
	if err != nil {
		return nil, err
	}
	return d, nil
}
