// Package fuzzy scores how well a query name matches a candidate display name.
//
// A score is the maximum over independent signal channels, so any single
// strong signal is enough:
//
//  1. Substring: the query (0.8) or one of its tokens (0.6) appears in the candidate.
//  2. Component: per-token best match averaged over query tokens, plus a
//     positional bonus for prefix matches.
//  3. Nickname/phonetic: a known nickname whose canonical form appears in the
//     candidate (0.85), otherwise Double Metaphone or Soundex agreement.
//  4. Overall edit distance of the whole strings, when reasonably similar.
//
// Scores above 0.4 get a +0.1 boost. Only equal (case- and
// whitespace-normalized) strings score 1.0.
//
// Edit distance and phonetic coding are injected capabilities. With the Null
// implementations those channels contribute 0 and the matcher still works on
// the remaining signals.
package fuzzy

import (
	"strings"
)

const (
	substringFullScore  = 0.8
	substringTokenScore = 0.6

	componentContainsScore = 0.8
	componentEditFactor    = 0.9
	componentEditMinRatio  = 0.7

	prefixFullBonus  = 0.2
	prefixTokenBonus = 0.1

	nicknameScore           = 0.85
	metaphoneTokenScore     = 0.7
	soundexTokenScore       = 0.6
	metaphoneWholeNameScore = 0.8

	overallEditFactor   = 0.6
	overallEditMinRatio = 0.5

	boostThreshold = 0.4
	boostAmount    = 0.1

	// Non-identical strings never reach 1.0
	nonExactCeiling = 0.99
)

// Matcher scores names. The zero value is not usable; use New or Default.
type Matcher struct {
	edit      EditDistanceScorer
	phonetic  PhoneticCoder
	nicknames map[string][]string
}

// Option configures a Matcher
type Option func(*Matcher)

// WithEditDistance sets the edit-distance capability
func WithEditDistance(e EditDistanceScorer) Option {
	return func(m *Matcher) {
		if e != nil {
			m.edit = e
		}
	}
}

// WithPhonetic sets the phonetic coding capability
func WithPhonetic(p PhoneticCoder) Option {
	return func(m *Matcher) {
		if p != nil {
			m.phonetic = p
		}
	}
}

// WithNicknames replaces the nickname table (keys and values lowercase)
func WithNicknames(table map[string][]string) Option {
	return func(m *Matcher) {
		m.nicknames = table
	}
}

// New creates a matcher. Without options both optional capabilities are
// disabled (Null implementations).
func New(opts ...Option) *Matcher {
	m := &Matcher{
		edit:      NullEditDistance{},
		phonetic:  NullPhonetic{},
		nicknames: DefaultNicknames(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Default creates a matcher with Levenshtein edit distance and matchr phonetics
func Default() *Matcher {
	return New(WithEditDistance(LevenshteinScorer{}), WithPhonetic(MatchrCoder{}))
}

// Score returns the similarity of query to candidate in [0,1]
func (m *Matcher) Score(query, candidate string) float64 {
	q := normalizeName(query)
	c := normalizeName(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	qTokens := strings.Fields(q)
	cTokens := strings.Fields(c)

	score := max(
		substringScore(q, c, qTokens),
		m.componentScore(qTokens, cTokens)+positionalBonus(q, c, qTokens, cTokens),
		m.phoneticScore(q, c, qTokens, cTokens),
		m.overallEditScore(q, c),
	)

	if score > boostThreshold {
		score += boostAmount
	}
	return min(score, nonExactCeiling)
}

// normalizeName lowercases and collapses all whitespace runs to one space
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func substringScore(q, c string, qTokens []string) float64 {
	if strings.Contains(c, q) {
		return substringFullScore
	}
	for _, t := range qTokens {
		if strings.Contains(c, t) {
			return substringTokenScore
		}
	}
	return 0
}

func (m *Matcher) componentScore(qTokens, cTokens []string) float64 {
	if len(qTokens) == 0 {
		return 0
	}
	var total float64
	for _, qt := range qTokens {
		total += m.bestTokenMatch(qt, cTokens)
	}
	return total / float64(len(qTokens))
}

func (m *Matcher) bestTokenMatch(qt string, cTokens []string) float64 {
	best := 0.0
	for _, ct := range cTokens {
		if qt == ct {
			return 1
		}
		if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
			best = max(best, componentContainsScore)
			continue
		}
		if ratio := m.edit.Ratio(qt, ct); ratio > componentEditMinRatio {
			best = max(best, ratio*componentEditFactor)
		}
	}
	return best
}

func positionalBonus(q, c string, qTokens, cTokens []string) float64 {
	if strings.HasPrefix(c, q) {
		return prefixFullBonus
	}
	for _, ct := range cTokens {
		for _, qt := range qTokens {
			if strings.HasPrefix(ct, qt) {
				return prefixTokenBonus
			}
		}
	}
	return 0
}

func (m *Matcher) phoneticScore(q, c string, qTokens, cTokens []string) float64 {
	for _, qt := range qTokens {
		for _, canonical := range m.nicknames[qt] {
			if strings.Contains(c, canonical) {
				return nicknameScore
			}
		}
	}

	score := 0.0
	for _, qt := range qTokens {
		qPrimary, _ := m.phonetic.DoubleMetaphone(qt)
		qSoundex := m.phonetic.Soundex(qt)
		for _, ct := range cTokens {
			if cPrimary, _ := m.phonetic.DoubleMetaphone(ct); qPrimary != "" && qPrimary == cPrimary {
				score = max(score, metaphoneTokenScore)
			}
			if cSoundex := m.phonetic.Soundex(ct); qSoundex != "" && qSoundex == cSoundex {
				score = max(score, soundexTokenScore)
			}
		}
	}

	qp, qa := m.phonetic.DoubleMetaphone(q)
	cp, ca := m.phonetic.DoubleMetaphone(c)
	if (qp != "" && qp == cp) || (qa != "" && qa == ca) {
		score = max(score, metaphoneWholeNameScore)
	}
	return score
}

func (m *Matcher) overallEditScore(q, c string) float64 {
	ratio := m.edit.Ratio(q, c)
	if ratio > overallEditMinRatio {
		return ratio * overallEditFactor
	}
	return 0
}
