package linker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/extract"
	"github.com/kennyhq/contactlink/internal/types"
)

const mailProgressEvery = 500

// SenderHeuristic decides which addresses of a mail document are the sender
// and which are recipients. Addresses are returned lowercased; sender is
// empty when none could be determined.
type SenderHeuristic interface {
	Parties(doc *types.Document) (sender string, recipients []string)
}

// BodyTailHeuristic treats the last address in the body as the sender, and
// every subject address plus every earlier body address as a recipient. Mail
// bodies in the document store end with the quoted "From:" line.
type BodyTailHeuristic struct{}

func (BodyTailHeuristic) Parties(doc *types.Document) (string, []string) {
	body := extract.EmailAddresses(doc.Content)
	recipients := extract.EmailAddresses(doc.Title)
	if len(body) == 0 {
		return "", recipients
	}
	recipients = append(recipients, body[:len(body)-1]...)
	return body[len(body)-1], recipients
}

// HeaderHeuristic reads from/to/cc out of the document metadata and falls back
// to BodyTailHeuristic when the metadata has no usable sender
type HeaderHeuristic struct {
	logger *slog.Logger
}

func (h HeaderHeuristic) Parties(doc *types.Document) (string, []string) {
	md, err := extract.ParseMetadata(doc.Metadata)
	if err != nil {
		if h.logger != nil {
			h.logger.Debug("mail metadata unreadable, using body addresses", "document_id", doc.ID, "error", err)
		}
		return BodyTailHeuristic{}.Parties(doc)
	}
	from := extract.EmailAddresses(md.From)
	if len(from) == 0 {
		return BodyTailHeuristic{}.Parties(doc)
	}

	var recipients []string
	for _, field := range append(md.To, md.Cc...) {
		recipients = append(recipients, extract.EmailAddresses(field)...)
	}
	return from[0], recipients
}

// NewSenderHeuristic returns the heuristic registered under name
func NewSenderHeuristic(name string, logger *slog.Logger) SenderHeuristic {
	if name == config.MailHeuristicHeader {
		return HeaderHeuristic{logger: logger}
	}
	return BodyTailHeuristic{}
}

// MailStrategy links mail documents to the contacts owning their sender and
// recipient addresses. Addresses no contact owns are ignored.
type MailStrategy struct {
	source            string
	heuristic         SenderHeuristic
	senderDiscount    float64
	recipientDiscount float64
	logger            *slog.Logger
}

// NewMailStrategy creates the mail pass
func NewMailStrategy(source string, heuristic SenderHeuristic, cfg config.LinkerConfig, logger *slog.Logger) *MailStrategy {
	return &MailStrategy{
		source:            source,
		heuristic:         heuristic,
		senderDiscount:    cfg.SenderDiscount,
		recipientDiscount: cfg.RecipientDiscount,
		logger:            logger,
	}
}

func (s *MailStrategy) Name() string   { return "mail" }
func (s *MailStrategy) Source() string { return s.source }

func (s *MailStrategy) Link(ctx context.Context, docs []*types.Document, snap *Snapshot) (PassResult, error) {
	var res PassResult
	set := newLinkSet()
	prog := newProgress(s.logger, s.Name(), mailProgressEvery)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return PassResult{}, err
		}
		res.Processed++
		prog.tick(res.Processed)

		sender, recipients := s.heuristic.Parties(doc)
		if sender = strings.TrimSpace(sender); sender != "" {
			if match, ok := snap.Best(types.KindEmail, sender); ok {
				set.add(types.DocumentLink{
					DocumentID:       doc.ID,
					ContactID:        match.ContactID,
					RelationshipType: types.RelationshipSender,
					Confidence:       match.Confidence * s.senderDiscount,
					ExtractionMethod: types.MethodEmailSender,
					DocumentDate:     doc.CreatedAt,
				})
			}
		}
		for _, r := range recipients {
			match, ok := snap.Best(types.KindEmail, strings.TrimSpace(r))
			if !ok {
				continue
			}
			set.add(types.DocumentLink{
				DocumentID:       doc.ID,
				ContactID:        match.ContactID,
				RelationshipType: types.RelationshipRecipient,
				Confidence:       match.Confidence * s.recipientDiscount,
				ExtractionMethod: types.MethodEmailRecipient,
				DocumentDate:     doc.CreatedAt,
			})
		}
	}

	res.Links = set.links
	return res, nil
}
