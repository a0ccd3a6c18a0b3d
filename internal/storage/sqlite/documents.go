package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kennyhq/contactlink/internal/types"
)

// DocumentStorage reads documents and address-book records from the
// document store. It never writes.
type DocumentStorage struct {
	db *sql.DB
}

// OpenDocuments opens an existing document store read-only and verifies its
// tables are present
func OpenDocuments(path string) (*DocumentStorage, error) {
	ctx := context.Background()

	db, err := sql.Open("sqlite3", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	for _, table := range documentTables {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err == sql.ErrNoRows {
			_ = db.Close()
			return nil, fmt.Errorf("document store %s is missing table %q", path, table)
		}
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to check table %q: %w", table, err)
		}
	}

	return &DocumentStorage{db: db}, nil
}

// ListAddressBook returns address-book rows having at least one phone, email,
// first name or full name, ordered by record id
func (d *DocumentStorage) ListAddressBook(ctx context.Context) ([]*types.AddressBookRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT contact_id, first_name, last_name, full_name,
		       primary_phone, secondary_phone, tertiary_phone,
		       primary_email, secondary_email,
		       company, job_title
		FROM contacts
		WHERE (primary_phone IS NOT NULL AND primary_phone != '')
		   OR (primary_email IS NOT NULL AND primary_email != '')
		   OR (first_name IS NOT NULL AND first_name != '')
		   OR (full_name IS NOT NULL AND full_name != '')
		ORDER BY contact_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query address book: %w", err)
	}
	defer rows.Close()

	var records []*types.AddressBookRecord
	for rows.Next() {
		var id, first, last, full, p1, p2, p3, e1, e2, company, title sql.NullString
		if err := rows.Scan(&id, &first, &last, &full, &p1, &p2, &p3, &e1, &e2, &company, &title); err != nil {
			return nil, fmt.Errorf("failed to scan address book row: %w", err)
		}
		records = append(records, &types.AddressBookRecord{
			RecordID:  strings.TrimSpace(id.String),
			FirstName: strings.TrimSpace(first.String),
			LastName:  strings.TrimSpace(last.String),
			FullName:  strings.TrimSpace(full.String),
			Phones:    nonEmpty(p1, p2, p3),
			Emails:    nonEmpty(e1, e2),
			Company:   strings.TrimSpace(company.String),
			Title:     strings.TrimSpace(title.String),
		})
	}
	return records, rows.Err()
}

func nonEmpty(values ...sql.NullString) []string {
	var out []string
	for _, v := range values {
		if s := strings.TrimSpace(v.String); v.Valid && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ListDocuments returns the documents carrying a source label, ordered by id
func (d *DocumentStorage) ListDocuments(ctx context.Context, source string) ([]*types.Document, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, content, app_source, created_at, metadata_json
		FROM documents
		WHERE app_source = ?
		ORDER BY id
	`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s documents: %w", source, err)
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		var id, title, content, label, metadata sql.NullString
		var created any
		if err := rows.Scan(&id, &title, &content, &label, &created, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &types.Document{
			ID:          id.String,
			Title:       title.String,
			Content:     content.String,
			SourceLabel: label.String,
			CreatedAt:   documentTime(created),
			Metadata:    metadata.String,
		})
	}
	return docs, rows.Err()
}

// CountDocuments returns document counts per source label
func (d *DocumentStorage) CountDocuments(ctx context.Context) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT app_source, COUNT(*) FROM documents GROUP BY app_source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label sql.NullString
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan document count: %w", err)
		}
		counts[label.String] = n
	}
	return counts, rows.Err()
}

// documentTime converts the document store's created_at, which is unix
// seconds in practice but may be text, to a time. Unparseable values yield
// the zero time.
func documentTime(v any) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0).UTC()
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case time.Time:
		return t.UTC()
	case []byte:
		return documentTime(string(t))
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0).UTC()
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

// Close closes the database connection
func (d *DocumentStorage) Close() error {
	return d.db.Close()
}
