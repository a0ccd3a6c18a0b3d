// Package search ranks stored contacts against a free-text name query.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/fuzzy"
	"github.com/kennyhq/contactlink/internal/types"
)

// ContactLister is the part of the contact store searched
type ContactLister interface {
	ListContacts(ctx context.Context) ([]*types.Contact, error)
}

// Searcher scores contacts by display name and company
type Searcher struct {
	store     ContactLister
	matcher   *fuzzy.Matcher
	threshold float64
	limit     int
}

// New creates a searcher using the default matcher
func New(store ContactLister, cfg config.SearchConfig) *Searcher {
	return &Searcher{
		store:     store,
		matcher:   fuzzy.Default(),
		threshold: cfg.Threshold,
		limit:     cfg.Limit,
	}
}

// Search returns contacts scoring above the threshold, best first, capped at
// the configured limit. Equal scores keep display-name order.
func (s *Searcher) Search(ctx context.Context, query string) ([]types.ContactMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	var matches []types.ContactMatch
	for _, c := range contacts {
		score := s.Score(query, c)
		if score > s.threshold {
			matches = append(matches, types.ContactMatch{Contact: c, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}
	return matches, nil
}

// Score is the better of the query's match against the display name and
// against the company
func (s *Searcher) Score(query string, c *types.Contact) float64 {
	score := s.matcher.Score(query, c.DisplayName)
	if c.Company != "" {
		score = max(score, s.matcher.Score(query, c.Company))
	}
	return score
}
