package sqlite

import "github.com/kennyhq/contactlink/internal/storage/migrations"

// schema is the base contact-memory layout. Later columns are added by
// contactMigrations so databases created by older releases upgrade in place.
const schema = `
-- Contacts table
CREATE TABLE IF NOT EXISTS contacts (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    confidence_score REAL NOT NULL DEFAULT 1.0 CHECK(confidence_score >= 0 AND confidence_score <= 1),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_display_name ON contacts(display_name);

-- Identities table: (identity_type, identity_value) belongs to at most one contact
CREATE TABLE IF NOT EXISTS contact_identities (
    id TEXT PRIMARY KEY,
    contact_id TEXT NOT NULL,
    identity_type TEXT NOT NULL,
    identity_value TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 1.0 CHECK(confidence >= 0 AND confidence <= 1),
    created_at TEXT NOT NULL,
    last_seen_at TEXT NOT NULL,
    UNIQUE (identity_type, identity_value),
    FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contact_identities_contact ON contact_identities(contact_id);

-- Document links table (fully replaced on every linking run)
CREATE TABLE IF NOT EXISTS contact_document_links (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    contact_id TEXT NOT NULL,
    relationship_type TEXT NOT NULL CHECK(relationship_type IN ('sender', 'recipient', 'attendee', 'mentioned')),
    confidence REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 1),
    extraction_method TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_links_contact ON contact_document_links(contact_id);
CREATE INDEX IF NOT EXISTS idx_links_document ON contact_document_links(document_id);

-- Run metadata (last resolve/link timestamps)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

func contactMigrations() *migrations.Manager {
	m := migrations.NewManager()
	m.Register(migrations.Migration{
		Version:     1,
		Description: "Add company and role to contacts",
		Up: `
			ALTER TABLE contacts ADD COLUMN company TEXT NOT NULL DEFAULT '';
			ALTER TABLE contacts ADD COLUMN role TEXT NOT NULL DEFAULT '';
		`,
		Down: `
			ALTER TABLE contacts DROP COLUMN role;
			ALTER TABLE contacts DROP COLUMN company;
		`,
	})
	m.Register(migrations.Migration{
		Version:     2,
		Description: "Add document_date to contact_document_links",
		Up: `
			ALTER TABLE contact_document_links ADD COLUMN document_date TEXT;
			CREATE INDEX IF NOT EXISTS idx_links_document_date ON contact_document_links(document_date);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_links_document_date;
			ALTER TABLE contact_document_links DROP COLUMN document_date;
		`,
	})
	return m
}

// documentTables must exist in a document store before it is read
var documentTables = []string{"documents", "contacts"}
