// Package resolver builds one deduplicated contact per real-world person from
// the address book and identities found in messaging documents, and persists
// the result to the contact-memory store.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/extract"
	"github.com/kennyhq/contactlink/internal/fuzzy"
	"github.com/kennyhq/contactlink/internal/identity"
	"github.com/kennyhq/contactlink/internal/storage"
	"github.com/kennyhq/contactlink/internal/types"
)

// SourceAddressBook is the identity source recorded for address-book fields
const SourceAddressBook = "address_book"

// Confidences of address-book derived data
const (
	RecordIdentityConfidence = 1.0
	FieldIdentityConfidence  = 0.95
	AddressBookConfidence    = 1.0
)

var contactNamespace = uuid.MustParse("5b3e9a0c-7d21-5c4f-a8e6-0f9d2b1c4e73")

// ContactID derives a stable contact id from the identity that seeded the
// contact, so reruns upsert the same row
func ContactID(kind types.IdentityKind, value string) string {
	return uuid.NewSHA1(contactNamespace, []byte(types.IdentityKey(kind, value))).String()
}

// Result summarizes one resolution run
type Result struct {
	Loaded    int // contacts built from the address book
	Extracted int // distinct identities extracted from documents
	Matched   int // extracted identities attached to an existing contact
	Created   int // contacts synthesized from unmatched identities
	Dropped   int // unmatched identities not eligible for a new contact
	Skipped   int // malformed documents and address-book rows without an id

	Total     int
	Histogram types.ConfidenceHistogram
	Contacts  []*types.Contact
}

// Resolver runs contact resolution
type Resolver struct {
	docs      storage.DocumentStore
	store     storage.ContactStore
	norm      *identity.Normalizer
	extractor *extract.Extractor
	cfg       config.ResolverConfig
	source    string
	logger    *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger used for skipped-record diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a resolver reading from docs and writing to store
func New(docs storage.DocumentStore, store storage.ContactStore, cfg config.Config, opts ...Option) *Resolver {
	norm := identity.New(cfg.Phone)
	r := &Resolver{
		docs:      docs,
		store:     store,
		norm:      norm,
		extractor: extract.New(norm),
		cfg:       cfg.Resolver,
		source:    cfg.Sources.Messaging,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads, extracts, matches, synthesizes and persists contacts. Malformed
// records are skipped and counted; load and persistence failures abort the run
// before anything is written.
func (r *Resolver) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	records, err := r.docs.ListAddressBook(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load address book: %w", err)
	}

	idx := newIndex()
	for _, rec := range records {
		c, ok := r.contactFromRecord(rec)
		if !ok {
			res.Skipped++
			r.logger.Debug("skipping address book row without id", "first_name", rec.FirstName, "full_name", rec.FullName)
			continue
		}
		idx.add(c)
	}
	res.Loaded = len(idx.order)

	extracted, malformed, err := r.extractIdentities(ctx)
	if err != nil {
		return nil, err
	}
	res.Extracted = len(extracted)
	res.Skipped += malformed

	// Match every extracted identity before synthesizing, so new contacts only
	// come from identities no existing contact could claim
	var unmatched []types.Identity
	for _, id := range extracted {
		if contactID, ok := r.bestMatch(id, idx); ok {
			idx.attach(contactID, id)
			res.Matched++
			continue
		}
		unmatched = append(unmatched, id)
	}

	for _, id := range unmatched {
		if id.Confidence <= r.cfg.CreateThreshold || !id.Kind.IsContactable() || idx.owned(id) {
			res.Dropped++
			continue
		}
		idx.add(r.synthesize(id))
		res.Created++
	}

	contacts := idx.list()
	if err := r.store.SaveContacts(ctx, contacts); err != nil {
		return nil, fmt.Errorf("failed to persist contacts: %w", err)
	}
	if err := r.store.MarkRun(ctx, storage.MetaLastResolvedAt); err != nil {
		r.logger.Warn("failed to record resolve time", "error", err)
	}

	res.Total = len(contacts)
	res.Contacts = contacts
	for _, c := range contacts {
		res.Histogram.Add(c.ConfidenceScore)
	}
	return res, nil
}

// contactFromRecord builds a contact from one address-book row. Rows without
// a record id cannot be keyed and are rejected.
func (r *Resolver) contactFromRecord(rec *types.AddressBookRecord) (*types.Contact, bool) {
	recordID := strings.TrimSpace(rec.RecordID)
	if recordID == "" {
		return nil, false
	}

	c := &types.Contact{
		ID:              ContactID(types.KindAddressBookRecord, recordID),
		DisplayName:     DisplayName(rec),
		Company:         rec.Company,
		Role:            rec.Title,
		ConfidenceScore: AddressBookConfidence,
		Identities: []types.Identity{{
			Kind:       types.KindAddressBookRecord,
			Value:      recordID,
			Source:     SourceAddressBook,
			Confidence: RecordIdentityConfidence,
		}},
	}
	for _, p := range rec.Phones {
		if v := r.norm.Phone(p); v != "" {
			c.Identities = append(c.Identities, types.Identity{Kind: types.KindPhone, Value: v, Source: SourceAddressBook, Confidence: FieldIdentityConfidence})
		}
	}
	for _, e := range rec.Emails {
		if v := r.norm.Email(e); v != "" {
			c.Identities = append(c.Identities, types.Identity{Kind: types.KindEmail, Value: v, Source: SourceAddressBook, Confidence: FieldIdentityConfidence})
		}
	}
	return c, true
}

// DisplayName picks the full name, else first and last name, else a
// placeholder built from the record id
func DisplayName(rec *types.AddressBookRecord) string {
	if full := strings.TrimSpace(rec.FullName); full != "" {
		return full
	}
	if first := strings.TrimSpace(rec.FirstName); first != "" {
		if last := strings.TrimSpace(rec.LastName); last != "" {
			return first + " " + last
		}
		return first
	}
	if id := strings.TrimSpace(rec.RecordID); id != "" {
		return "Contact " + id
	}
	return "Unknown Contact"
}

// extractIdentities returns the distinct handle identities of all messaging
// documents in document order, plus the number of malformed documents
func (r *Resolver) extractIdentities(ctx context.Context) ([]types.Identity, int, error) {
	docs, err := r.docs.ListDocuments(ctx, r.source)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %s documents: %w", r.source, err)
	}

	var out []types.Identity
	seen := make(map[string]bool)
	malformed := 0
	for _, doc := range docs {
		if strings.TrimSpace(doc.Metadata) == "" {
			continue
		}
		ids, err := r.extractor.DocumentIdentities(*doc)
		if err != nil {
			malformed++
			r.logger.Debug("skipping document with malformed metadata", "document_id", doc.ID, "error", err)
			continue
		}
		for _, id := range ids {
			if seen[id.Key()] {
				continue
			}
			seen[id.Key()] = true
			out = append(out, id)
		}
	}
	if malformed > 0 {
		r.logger.Warn("skipped documents with malformed metadata", "count", malformed, "source", r.source)
	}
	return out, malformed, nil
}

type candidate struct {
	contactID string
	score     float64
}

// bestMatch scores id against every contact's identities of the same kind and
// returns the top candidate when it clears MatchThreshold. Ties keep contact
// order.
func (r *Resolver) bestMatch(id types.Identity, idx *index) (string, bool) {
	var candidates []candidate
	for _, contactID := range idx.order {
		if s := r.matchScore(id, idx.contacts[contactID]); s > r.cfg.CandidateThreshold {
			candidates = append(candidates, candidate{contactID: contactID, score: s})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if candidates[0].score > r.cfg.MatchThreshold {
		return candidates[0].contactID, true
	}
	return "", false
}

func (r *Resolver) matchScore(id types.Identity, c *types.Contact) float64 {
	best := 0.0
	for _, existing := range c.Identities {
		if existing.Kind != id.Kind {
			continue
		}
		if existing.Value == id.Value {
			best = max(best, r.cfg.ExactMatchConfidence)
			continue
		}
		if id.Kind.IsContactable() {
			if sim := fuzzy.CharacterSimilarity(existing.Value, id.Value); sim > r.cfg.SimilarityThreshold {
				best = max(best, sim*r.cfg.SimilarityDiscount)
			}
		}
	}
	return best
}

func (r *Resolver) synthesize(id types.Identity) *types.Contact {
	return &types.Contact{
		ID:              ContactID(id.Kind, id.Value),
		DisplayName:     fmt.Sprintf("Unknown (%s)", id.Value),
		ConfidenceScore: r.cfg.SynthesizedConfidence,
		Identities:      []types.Identity{id},
	}
}
