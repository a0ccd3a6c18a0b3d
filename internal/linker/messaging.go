package linker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kennyhq/contactlink/internal/extract"
	"github.com/kennyhq/contactlink/internal/identity"
	"github.com/kennyhq/contactlink/internal/types"
)

const messagingProgressEvery = 100

// MessagingStrategy links one-to-one messaging documents to the contact owning
// the phone encoded in the conversation handle
type MessagingStrategy struct {
	source   string
	norm     *identity.Normalizer
	discount float64
	logger   *slog.Logger
}

// NewMessagingStrategy creates the messaging pass
func NewMessagingStrategy(source string, norm *identity.Normalizer, discount float64, logger *slog.Logger) *MessagingStrategy {
	return &MessagingStrategy{source: source, norm: norm, discount: discount, logger: logger}
}

func (s *MessagingStrategy) Name() string   { return "messaging" }
func (s *MessagingStrategy) Source() string { return s.source }

func (s *MessagingStrategy) Link(ctx context.Context, docs []*types.Document, snap *Snapshot) (PassResult, error) {
	var res PassResult
	set := newLinkSet()
	prog := newProgress(s.logger, s.Name(), messagingProgressEvery)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return PassResult{}, err
		}
		res.Processed++
		prog.tick(res.Processed)

		if strings.TrimSpace(doc.Metadata) == "" {
			continue
		}
		md, err := extract.ParseMetadata(doc.Metadata)
		if err != nil {
			res.Skipped++
			s.logger.Debug("skipping document with malformed metadata", "document_id", doc.ID, "error", err)
			continue
		}
		if s.norm.IsGroupHandle(md.Handle) {
			continue
		}
		phone, ok := s.norm.PhoneFromHandle(md.Handle)
		if !ok {
			continue
		}
		match, ok := snap.Best(types.KindPhone, phone)
		if !ok {
			continue
		}
		set.add(types.DocumentLink{
			DocumentID:       doc.ID,
			ContactID:        match.ContactID,
			RelationshipType: types.RelationshipSender,
			Confidence:       match.Confidence * s.discount,
			ExtractionMethod: types.MethodHandlePhone,
			DocumentDate:     doc.CreatedAt,
		})
	}

	res.Links = set.links
	return res, nil
}
