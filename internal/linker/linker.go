// Package linker derives document-to-contact links from the persisted
// identity index. Each document source has its own strategy; every run
// replaces the previous link set atomically.
package linker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/identity"
	"github.com/kennyhq/contactlink/internal/storage"
	"github.com/kennyhq/contactlink/internal/types"
)

// SourceResult summarizes one strategy pass
type SourceResult struct {
	Strategy  string `json:"strategy"`
	Source    string `json:"source"`
	Documents int    `json:"documents"`
	Links     int    `json:"links"`
	Skipped   int    `json:"skipped"`
}

// Result summarizes one linking run
type Result struct {
	Sources   []SourceResult
	Links     []types.DocumentLink
	Total     int
	Skipped   int
	Histogram types.ConfidenceHistogram
}

// Linker runs document linking
type Linker struct {
	docs       storage.DocumentStore
	store      storage.ContactStore
	strategies []Strategy
	parallel   bool
	logger     *slog.Logger
}

// Option configures a Linker
type Option func(*Linker)

// WithLogger sets the logger for progress and skipped-document diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(lk *Linker) {
		if l != nil {
			lk.logger = l
		}
	}
}

// WithStrategies replaces the default strategies. Links are concatenated in
// the order given.
func WithStrategies(strategies ...Strategy) Option {
	return func(lk *Linker) {
		lk.strategies = strategies
	}
}

// New creates a linker with the messaging, mail, calendar and messages passes
func New(docs storage.DocumentStore, store storage.ContactStore, cfg config.Config, opts ...Option) *Linker {
	lk := &Linker{
		docs:     docs,
		store:    store,
		parallel: cfg.Linker.Parallel,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(lk)
	}
	if lk.strategies == nil {
		norm := identity.New(cfg.Phone)
		lk.strategies = []Strategy{
			NewMessagingStrategy(cfg.Sources.Messaging, norm, cfg.Linker.HandleDiscount, lk.logger),
			NewMailStrategy(cfg.Sources.Mail, NewSenderHeuristic(cfg.Linker.MailSenderHeuristic, lk.logger), cfg.Linker, lk.logger),
			NewCalendarStrategy(cfg.Sources.Calendar, cfg.Linker, lk.logger),
			NewMessagesStrategy(cfg.Sources.Messages),
		}
	}
	return lk
}

// Run loads the identity snapshot, runs every strategy and replaces the
// stored links with the union of their output. A failing pass aborts the run
// and leaves the previous links untouched.
func (lk *Linker) Run(ctx context.Context) (*Result, error) {
	snap, err := LoadSnapshot(ctx, lk.store)
	if err != nil {
		return nil, err
	}
	lk.logger.Debug("identity snapshot loaded", "keys", snap.Size(), "reachable", len(snap.Reachable()))

	passes := make([]PassResult, len(lk.strategies))
	runPass := func(ctx context.Context, i int) error {
		s := lk.strategies[i]
		docs, err := lk.docs.ListDocuments(ctx, s.Source())
		if err != nil {
			return fmt.Errorf("failed to load %s documents: %w", s.Source(), err)
		}
		res, err := s.Link(ctx, docs, snap)
		if err != nil {
			return fmt.Errorf("%s pass failed: %w", s.Name(), err)
		}
		passes[i] = res
		return nil
	}

	if lk.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range lk.strategies {
			i := i
			g.Go(func() error { return runPass(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range lk.strategies {
			if err := runPass(ctx, i); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{}
	for i, s := range lk.strategies {
		p := passes[i]
		res.Sources = append(res.Sources, SourceResult{
			Strategy:  s.Name(),
			Source:    s.Source(),
			Documents: p.Processed,
			Links:     len(p.Links),
			Skipped:   p.Skipped,
		})
		res.Links = append(res.Links, p.Links...)
		res.Skipped += p.Skipped
		if p.Skipped > 0 {
			lk.logger.Warn("skipped documents with malformed metadata", "count", p.Skipped, "source", s.Source())
		}
	}

	if err := lk.store.ReplaceLinks(ctx, res.Links); err != nil {
		return nil, fmt.Errorf("failed to persist links: %w", err)
	}
	if err := lk.store.MarkRun(ctx, storage.MetaLastLinkedAt); err != nil {
		lk.logger.Warn("failed to record link time", "error", err)
	}

	res.Total = len(res.Links)
	for _, l := range res.Links {
		res.Histogram.Add(l.Confidence)
	}
	return res, nil
}
