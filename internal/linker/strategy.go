package linker

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/kennyhq/contactlink/internal/types"
)

// Strategy links the documents of one source to contacts. Implementations
// must only read the snapshot.
type Strategy interface {
	// Name identifies the strategy in summaries and logs
	Name() string
	// Source is the document source label the strategy consumes
	Source() string
	// Link returns the links found in docs
	Link(ctx context.Context, docs []*types.Document, snap *Snapshot) (PassResult, error)
}

// PassResult is the output of one strategy pass
type PassResult struct {
	Links     []types.DocumentLink
	Processed int
	Skipped   int // malformed documents
}

// linkSet collects links for one pass, dropping repeats of the same
// (document, contact, relationship, method)
type linkSet struct {
	links []types.DocumentLink
	seen  map[string]bool
}

func newLinkSet() *linkSet {
	return &linkSet{seen: make(map[string]bool)}
}

func (s *linkSet) add(l types.DocumentLink) {
	key := l.DocumentID + "|" + l.ContactID + "|" + string(l.RelationshipType) + "|" + l.ExtractionMethod
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.links = append(s.links, l)
}

// progress logs the processed count on the first document and then once
// every n documents
type progress struct {
	sometimes rate.Sometimes
	logger    *slog.Logger
	name      string
}

func newProgress(logger *slog.Logger, name string, every int) *progress {
	return &progress{
		sometimes: rate.Sometimes{Every: every},
		logger:    logger,
		name:      name,
	}
}

// tick is called after each processed document
func (p *progress) tick(processed int) {
	p.sometimes.Do(func() {
		p.logger.Info("linking progress", "strategy", p.name, "processed", processed)
	})
}
