package types

import (
	"fmt"
	"time"
)

// IdentityKind is the namespace an identity value lives in
type IdentityKind string

const (
	KindPhone             IdentityKind = "phone"
	KindEmail             IdentityKind = "email"
	KindPlatformHandle    IdentityKind = "platform_handle"
	KindAddressBookRecord IdentityKind = "contact_record"
)

// IsValid checks if the identity kind value is valid
func (k IdentityKind) IsValid() bool {
	switch k {
	case KindPhone, KindEmail, KindPlatformHandle, KindAddressBookRecord:
		return true
	}
	return false
}

// IsContactable reports whether an identity of this kind can reach a person.
// Address-book record references and bare handles are not contactable.
func (k IdentityKind) IsContactable() bool {
	return k == KindPhone || k == KindEmail
}

// Identity is one typed, source-attributed piece of evidence about a contact.
// Value is always stored normalized.
type Identity struct {
	Kind       IdentityKind `json:"kind"`
	Value      string       `json:"value"`
	Source     string       `json:"source"`
	Confidence float64      `json:"confidence"`
}

// Key returns the natural key of the identity ("kind:value")
func (i Identity) Key() string {
	return IdentityKey(i.Kind, i.Value)
}

// IdentityKey builds the natural key for a (kind, value) pair
func IdentityKey(kind IdentityKind, value string) string {
	return string(kind) + ":" + value
}

// Validate checks if the identity has valid field values
func (i Identity) Validate() error {
	if !i.Kind.IsValid() {
		return fmt.Errorf("invalid identity kind: %s", i.Kind)
	}
	if i.Value == "" {
		return fmt.Errorf("identity value is required")
	}
	if i.Confidence < 0 || i.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1 (got %.2f)", i.Confidence)
	}
	return nil
}

// IdentityRecord is a stored identity together with the contact owning it
type IdentityRecord struct {
	ContactID string `json:"contact_id"`
	Identity
}

// Contact is a single resolved real-world person
type Contact struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"display_name"`
	Company         string     `json:"company,omitempty"`
	Role            string     `json:"role,omitempty"`
	Identities      []Identity `json:"identities"`
	ConfidenceScore float64    `json:"confidence_score"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Validate checks if the contact has valid field values
func (c *Contact) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("contact id is required")
	}
	if c.ConfidenceScore < 0 || c.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score must be between 0 and 1 (got %.2f)", c.ConfidenceScore)
	}
	for _, id := range c.Identities {
		if err := id.Validate(); err != nil {
			return fmt.Errorf("contact %s: %w", c.ID, err)
		}
	}
	return nil
}

// HasIdentity reports whether the contact already owns the (kind, value) pair
func (c *Contact) HasIdentity(kind IdentityKind, value string) bool {
	for _, id := range c.Identities {
		if id.Kind == kind && id.Value == value {
			return true
		}
	}
	return false
}

// RelationshipType is the role a contact plays in a document
type RelationshipType string

const (
	RelationshipSender    RelationshipType = "sender"
	RelationshipRecipient RelationshipType = "recipient"
	RelationshipAttendee  RelationshipType = "attendee"
	RelationshipMentioned RelationshipType = "mentioned"
)

// IsValid checks if the relationship type value is valid
func (r RelationshipType) IsValid() bool {
	switch r {
	case RelationshipSender, RelationshipRecipient, RelationshipAttendee, RelationshipMentioned:
		return true
	}
	return false
}

// Extraction methods recorded on document links
const (
	MethodHandlePhone       = "handle_phone"
	MethodEmailSender       = "email_sender"
	MethodEmailRecipient    = "email_recipient"
	MethodCalendarFuzzyName = "calendar_fuzzy_name"
)

// DocumentLink is a derived association between a document and a contact
type DocumentLink struct {
	DocumentID       string           `json:"document_id"`
	ContactID        string           `json:"contact_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Confidence       float64          `json:"confidence"`
	ExtractionMethod string           `json:"extraction_method"`
	DocumentDate     time.Time        `json:"document_date,omitempty"`
}

// Validate checks if the link has valid field values
func (l DocumentLink) Validate() error {
	if l.DocumentID == "" {
		return fmt.Errorf("document_id is required")
	}
	if l.ContactID == "" {
		return fmt.Errorf("contact_id is required")
	}
	if !l.RelationshipType.IsValid() {
		return fmt.Errorf("invalid relationship type: %s", l.RelationshipType)
	}
	if l.Confidence < 0 || l.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1 (got %.2f)", l.Confidence)
	}
	return nil
}

// Document source labels used by the document store
const (
	SourceMessaging = "WhatsApp"
	SourceMail      = "Mail"
	SourceCalendar  = "Calendar"
	SourceMessages  = "Messages"
)

// Document is a row of the read-only document store
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SourceLabel string    `json:"source_label"`
	CreatedAt   time.Time `json:"created_at"`
	Metadata    string    `json:"metadata,omitempty"`
}

// AddressBookRecord is a row of the address-book store
type AddressBookRecord struct {
	RecordID  string   `json:"record_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	FullName  string   `json:"full_name"`
	Phones    []string `json:"phones"`
	Emails    []string `json:"emails"`
	Company   string   `json:"company,omitempty"`
	Title     string   `json:"title,omitempty"`
}

// ConfidenceHistogram buckets confidences into high (>0.8), medium (0.5-0.8)
// and low (<0.5)
type ConfidenceHistogram struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Add records one confidence value
func (h *ConfidenceHistogram) Add(confidence float64) {
	switch {
	case confidence > 0.8:
		h.High++
	case confidence >= 0.5:
		h.Medium++
	default:
		h.Low++
	}
}

// ContactSummary is a contact with interaction statistics
type ContactSummary struct {
	Contact
	TotalInteractions int        `json:"total_interactions"`
	LastInteraction   *time.Time `json:"last_interaction,omitempty"`
}

// ContactMatch is a scored search hit
type ContactMatch struct {
	Contact *Contact `json:"contact"`
	Score   float64  `json:"score"`
}
