package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kennyhq/contactlink/internal/types"
)

// identityNamespace derives identity row ids from the identity natural key
var identityNamespace = uuid.MustParse("8f0c5e8e-3b8a-5d0e-9c47-1f3b7f6a2c10")

// IdentityRowID returns the deterministic row id for an identity
func IdentityRowID(kind types.IdentityKind, value string) string {
	return uuid.NewSHA1(identityNamespace, []byte(types.IdentityKey(kind, value))).String()
}

// SaveContacts upserts contacts and their identities in one transaction.
// Contacts are keyed by id and identities by (kind, value): created_at is
// preserved on both, updated_at/last_seen_at are refreshed. An identity seen
// again under a different contact moves to that contact.
func (s *SQLiteStorage) SaveContacts(ctx context.Context, contacts []*types.Contact) error {
	for _, c := range contacts {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid contact: %w", err)
		}
	}

	now := formatTime(s.now())

	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		for _, c := range contacts {
			created := now
			if !c.CreatedAt.IsZero() {
				created = formatTime(c.CreatedAt)
			}

			_, err := conn.ExecContext(ctx, `
				INSERT INTO contacts (id, display_name, company, role, confidence_score, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					display_name = excluded.display_name,
					company = excluded.company,
					role = excluded.role,
					confidence_score = excluded.confidence_score,
					updated_at = excluded.updated_at
			`, c.ID, c.DisplayName, c.Company, c.Role, c.ConfidenceScore, created, now)
			if err != nil {
				return fmt.Errorf("failed to upsert contact %s: %w", c.ID, err)
			}

			for _, id := range c.Identities {
				_, err := conn.ExecContext(ctx, `
					INSERT INTO contact_identities (id, contact_id, identity_type, identity_value, source, confidence, created_at, last_seen_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (identity_type, identity_value) DO UPDATE SET
						contact_id = excluded.contact_id,
						source = excluded.source,
						confidence = excluded.confidence,
						last_seen_at = excluded.last_seen_at
				`, IdentityRowID(id.Kind, id.Value), c.ID, string(id.Kind), id.Value, id.Source, id.Confidence, now, now)
				if err != nil {
					return fmt.Errorf("failed to upsert identity %s for contact %s: %w", id.Key(), c.ID, err)
				}
			}
		}
		return nil
	})
}

const contactColumns = `id, display_name, company, role, confidence_score, created_at, updated_at`

// GetContact retrieves a contact with its identities by id
func (s *SQLiteStorage) GetContact(ctx context.Context, id string) (*types.Contact, error) {
	contacts, err := s.queryContacts(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("contact %s: %w", id, ErrNotFound)
	}
	return contacts[0], nil
}

// ListContacts returns every contact with its identities, ordered by display name
func (s *SQLiteStorage) ListContacts(ctx context.Context) ([]*types.Contact, error) {
	return s.queryContacts(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY display_name, id`)
}

// ListReachableContacts returns contacts owning at least one email, phone or
// platform handle identity, ordered by id
func (s *SQLiteStorage) ListReachableContacts(ctx context.Context) ([]*types.Contact, error) {
	return s.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE id IN (
			SELECT contact_id FROM contact_identities
			WHERE identity_type IN (?, ?, ?)
		)
		ORDER BY id
	`, string(types.KindEmail), string(types.KindPhone), string(types.KindPlatformHandle))
}

// ListIdentities returns every stored identity ordered by confidence
// (descending), then contact id
func (s *SQLiteStorage) ListIdentities(ctx context.Context) ([]*types.IdentityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contact_id, identity_type, identity_value, source, confidence
		FROM contact_identities
		ORDER BY confidence DESC, contact_id, identity_type, identity_value
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var records []*types.IdentityRecord
	for rows.Next() {
		var r types.IdentityRecord
		var kind string
		if err := rows.Scan(&r.ContactID, &kind, &r.Value, &r.Source, &r.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		r.Kind = types.IdentityKind(kind)
		records = append(records, &r)
	}
	return records, rows.Err()
}

// CountContacts returns the number of stored contacts and identities
func (s *SQLiteStorage) CountContacts(ctx context.Context) (contacts, identities int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM contacts), (SELECT COUNT(*) FROM contact_identities)
	`).Scan(&contacts, &identities)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return contacts, identities, nil
}

// queryContacts scans contact rows and attaches their identities, ordered by
// confidence (descending)
func (s *SQLiteStorage) queryContacts(ctx context.Context, query string, args ...any) ([]*types.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}

	var contacts []*types.Contact
	byID := make(map[string]*types.Contact)
	for rows.Next() {
		var c types.Contact
		var created, updated string
		if err := rows.Scan(&c.ID, &c.DisplayName, &c.Company, &c.Role, &c.ConfidenceScore, &created, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			rows.Close()
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updated); err != nil {
			rows.Close()
			return nil, err
		}
		contacts = append(contacts, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(contacts) == 0 {
		return contacts, nil
	}

	if err := s.attachIdentities(ctx, byID); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *SQLiteStorage) attachIdentities(ctx context.Context, byID map[string]*types.Contact) error {
	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	// Chunk to stay under SQLite's bound-parameter limit
	const chunk = 500
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		rows, err := s.db.QueryContext(ctx, `
			SELECT contact_id, identity_type, identity_value, source, confidence
			FROM contact_identities
			WHERE contact_id IN (`+placeholders+`)
			ORDER BY confidence DESC, identity_type, identity_value
		`, part...)
		if err != nil {
			return fmt.Errorf("failed to query identities: %w", err)
		}

		for rows.Next() {
			var contactID, kind string
			var id types.Identity
			if err := rows.Scan(&contactID, &kind, &id.Value, &id.Source, &id.Confidence); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan identity: %w", err)
			}
			id.Kind = types.IdentityKind(kind)
			if c, ok := byID[contactID]; ok {
				c.Identities = append(c.Identities, id)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
