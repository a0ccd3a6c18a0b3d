package linker

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/extract"
	"github.com/kennyhq/contactlink/internal/types"
)

const calendarProgressEvery = 50

// CalendarStrategy links calendar events to contacts whose names appear in the
// event text. Events mentioning a business keyword are never linked this way,
// and an event links to at most MaxMatches contacts.
type CalendarStrategy struct {
	source string
	cfg    config.LinkerConfig
	logger *slog.Logger
}

// NewCalendarStrategy creates the calendar pass
func NewCalendarStrategy(source string, cfg config.LinkerConfig, logger *slog.Logger) *CalendarStrategy {
	return &CalendarStrategy{source: source, cfg: cfg, logger: logger}
}

func (s *CalendarStrategy) Name() string   { return "calendar" }
func (s *CalendarStrategy) Source() string { return s.source }

type nameHit struct {
	contactID  string
	confidence float64
}

func (s *CalendarStrategy) Link(ctx context.Context, docs []*types.Document, snap *Snapshot) (PassResult, error) {
	var res PassResult
	set := newLinkSet()
	prog := newProgress(s.logger, s.Name(), calendarProgressEvery)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return PassResult{}, err
		}
		res.Processed++
		prog.tick(res.Processed)

		if strings.TrimSpace(doc.Title) == "" {
			continue
		}
		text := extract.SearchText(*doc)
		if extract.ContainsBusinessKeyword(text) {
			continue
		}

		hits := s.score(text, snap.Reachable())
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].confidence > hits[j].confidence
		})
		if len(hits) > s.cfg.CalendarMaxMatches {
			hits = hits[:s.cfg.CalendarMaxMatches]
		}
		for _, h := range hits {
			if h.confidence <= s.cfg.CalendarBaseConfidence {
				continue
			}
			set.add(types.DocumentLink{
				DocumentID:       doc.ID,
				ContactID:        h.contactID,
				RelationshipType: types.RelationshipMentioned,
				Confidence:       h.confidence,
				ExtractionMethod: types.MethodCalendarFuzzyName,
				DocumentDate:     doc.CreatedAt,
			})
		}
	}

	res.Links = set.links
	return res, nil
}

// score returns a hit for every candidate whose first name token (of at least
// the minimum length) appears in text, in candidate order
func (s *CalendarStrategy) score(text string, candidates []Candidate) []nameHit {
	var hits []nameHit
	for _, c := range candidates {
		tokens := extract.NameTokens(c.DisplayName)
		if len(tokens) == 0 {
			continue
		}
		first := tokens[0]
		if len(first) < s.cfg.CalendarMinTokenLength || !strings.Contains(text, first) {
			continue
		}

		matched := 0
		for _, tok := range tokens {
			if len(tok) >= s.cfg.CalendarMinTokenLength && strings.Contains(text, tok) {
				matched++
			}
		}
		conf := min(s.cfg.CalendarMaxConfidence, s.cfg.CalendarBaseConfidence+s.cfg.CalendarTokenBonus*float64(matched))
		hits = append(hits, nameHit{contactID: c.ID, confidence: conf})
	}
	return hits
}
