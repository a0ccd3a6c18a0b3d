package linker

import (
	"context"
	"fmt"
	"sort"

	"github.com/kennyhq/contactlink/internal/types"
)

// Match is one contact owning an identity, with the identity's confidence
type Match struct {
	ContactID  string
	Confidence float64
}

// Candidate is a contact eligible for calendar name matching
type Candidate struct {
	ID          string
	DisplayName string
}

// Snapshot is the read-only identity index shared by every strategy of one
// run. It is built once from the persisted identities and never mutated, so
// strategies may read it concurrently.
type Snapshot struct {
	identities map[string][]Match
	reachable  []Candidate
}

// SnapshotSource is the part of the contact store a snapshot is loaded from
type SnapshotSource interface {
	ListIdentities(ctx context.Context) ([]*types.IdentityRecord, error)
	ListReachableContacts(ctx context.Context) ([]*types.Contact, error)
}

// LoadSnapshot builds a snapshot from the persisted identity table
func LoadSnapshot(ctx context.Context, src SnapshotSource) (*Snapshot, error) {
	records, err := src.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity index: %w", err)
	}
	reachable, err := src.ListReachableContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reachable contacts: %w", err)
	}
	return NewSnapshot(records, reachable), nil
}

// NewSnapshot indexes identity records by (kind, value). Matches for a key
// are ordered by confidence (descending), then contact id.
func NewSnapshot(records []*types.IdentityRecord, reachable []*types.Contact) *Snapshot {
	s := &Snapshot{identities: make(map[string][]Match)}
	for _, r := range records {
		key := r.Key()
		s.identities[key] = append(s.identities[key], Match{ContactID: r.ContactID, Confidence: r.Confidence})
	}
	for _, matches := range s.identities {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Confidence != matches[j].Confidence {
				return matches[i].Confidence > matches[j].Confidence
			}
			return matches[i].ContactID < matches[j].ContactID
		})
	}

	for _, c := range reachable {
		s.reachable = append(s.reachable, Candidate{ID: c.ID, DisplayName: c.DisplayName})
	}
	sort.SliceStable(s.reachable, func(i, j int) bool {
		return s.reachable[i].ID < s.reachable[j].ID
	})
	return s
}

// Lookup returns the contacts owning (kind, value), best first. The returned
// slice must not be modified.
func (s *Snapshot) Lookup(kind types.IdentityKind, value string) []Match {
	return s.identities[types.IdentityKey(kind, value)]
}

// Best returns the highest-confidence contact owning (kind, value)
func (s *Snapshot) Best(kind types.IdentityKind, value string) (Match, bool) {
	matches := s.Lookup(kind, value)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Knows reports whether any contact owns (kind, value)
func (s *Snapshot) Knows(kind types.IdentityKind, value string) bool {
	return len(s.Lookup(kind, value)) > 0
}

// Reachable returns contacts having an email, phone or handle identity,
// ordered by id. The returned slice must not be modified.
func (s *Snapshot) Reachable() []Candidate {
	return s.reachable
}

// Size returns the number of distinct (kind, value) keys indexed
func (s *Snapshot) Size() int {
	return len(s.identities)
}
