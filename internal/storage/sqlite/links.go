package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kennyhq/contactlink/internal/types"
)

var linkNamespace = uuid.MustParse("2d6f4c1a-9e3b-5f7a-8c2d-4b6e1a9f3d75")

// LinkID returns the deterministic id of a document link
func LinkID(l types.DocumentLink) string {
	key := l.DocumentID + "|" + l.ContactID + "|" + string(l.RelationshipType) + "|" + l.ExtractionMethod
	return uuid.NewSHA1(linkNamespace, []byte(key)).String()
}

// ReplaceLinks deletes every stored document link and inserts links in one
// transaction. Links sharing an id keep the highest confidence.
func (s *SQLiteStorage) ReplaceLinks(ctx context.Context, links []types.DocumentLink) error {
	for _, l := range links {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("invalid link for document %s: %w", l.DocumentID, err)
		}
	}

	now := formatTime(s.now())

	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `DELETE FROM contact_document_links`); err != nil {
			return fmt.Errorf("failed to clear links: %w", err)
		}

		stmt, err := conn.PrepareContext(ctx, `
			INSERT INTO contact_document_links
				(id, document_id, contact_id, relationship_type, confidence, extraction_method, document_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET confidence = max(confidence, excluded.confidence)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare link insert: %w", err)
		}
		defer stmt.Close()

		for _, l := range links {
			var docDate sql.NullString
			if !l.DocumentDate.IsZero() {
				docDate = sql.NullString{String: formatTime(l.DocumentDate), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, LinkID(l), l.DocumentID, l.ContactID,
				string(l.RelationshipType), l.Confidence, l.ExtractionMethod, docDate, now); err != nil {
				return fmt.Errorf("failed to insert link %s -> %s: %w", l.DocumentID, l.ContactID, err)
			}
		}
		return nil
	})
}

// ListLinks returns every stored link ordered by document id, contact id,
// relationship and method
func (s *SQLiteStorage) ListLinks(ctx context.Context) ([]types.DocumentLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, contact_id, relationship_type, confidence, extraction_method, document_date
		FROM contact_document_links
		ORDER BY document_id, contact_id, relationship_type, extraction_method
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []types.DocumentLink
	for rows.Next() {
		var l types.DocumentLink
		var rel string
		var docDate sql.NullString
		if err := rows.Scan(&l.DocumentID, &l.ContactID, &rel, &l.Confidence, &l.ExtractionMethod, &docDate); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		l.RelationshipType = types.RelationshipType(rel)
		if docDate.Valid {
			if l.DocumentDate, err = parseTime(docDate.String); err != nil {
				return nil, err
			}
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// GetContactSummary returns a contact with its linked document count and
// most recent linked document date
func (s *SQLiteStorage) GetContactSummary(ctx context.Context, id string) (*types.ContactSummary, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &types.ContactSummary{Contact: *contact}
	var last sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT document_id), MAX(document_date)
		FROM contact_document_links
		WHERE contact_id = ?
	`, id).Scan(&summary.TotalInteractions, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize links for %s: %w", id, err)
	}
	if last.Valid {
		t, err := parseTime(last.String)
		if err != nil {
			return nil, err
		}
		summary.LastInteraction = &t
	}
	return summary, nil
}

// TopContacts returns up to limit contacts ordered by linked document count
// (descending), then display name
func (s *SQLiteStorage) TopContacts(ctx context.Context, limit int) ([]*types.ContactSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.display_name, c.company, c.role, c.confidence_score,
		       COUNT(DISTINCT l.document_id) AS doc_count, MAX(l.document_date)
		FROM contacts c
		JOIN contact_document_links l ON l.contact_id = c.id
		GROUP BY c.id
		ORDER BY doc_count DESC, c.display_name, c.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top contacts: %w", err)
	}
	defer rows.Close()

	var summaries []*types.ContactSummary
	for rows.Next() {
		var sum types.ContactSummary
		var last sql.NullString
		if err := rows.Scan(&sum.ID, &sum.DisplayName, &sum.Company, &sum.Role, &sum.ConfidenceScore,
			&sum.TotalInteractions, &last); err != nil {
			return nil, fmt.Errorf("failed to scan top contact: %w", err)
		}
		if last.Valid {
			t, err := parseTime(last.String)
			if err != nil {
				return nil, err
			}
			sum.LastInteraction = &t
		}
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}
