package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/antzucaro/matchr"
)

// EditDistanceScorer turns an edit distance into a similarity ratio in [0,1]
type EditDistanceScorer interface {
	Ratio(a, b string) float64
}

// PhoneticCoder produces phonetic codes for names. An empty code never matches.
type PhoneticCoder interface {
	// DoubleMetaphone returns the primary and alternate Double Metaphone codes
	DoubleMetaphone(s string) (primary, alternate string)
	// Soundex returns the Soundex code
	Soundex(s string) string
}

// LevenshteinScorer computes 1 - distance/maxLen over runes
type LevenshteinScorer struct{}

// Ratio implements EditDistanceScorer
func (LevenshteinScorer) Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(maxLen)
}

// MatchrCoder implements PhoneticCoder with github.com/antzucaro/matchr
type MatchrCoder struct{}

// DoubleMetaphone implements PhoneticCoder
func (MatchrCoder) DoubleMetaphone(s string) (string, string) {
	if strings.TrimSpace(s) == "" {
		return "", ""
	}
	return matchr.DoubleMetaphone(s)
}

// Soundex implements PhoneticCoder
func (MatchrCoder) Soundex(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return matchr.Soundex(s)
}

// NullEditDistance contributes nothing to the edit-distance channels
type NullEditDistance struct{}

// Ratio implements EditDistanceScorer
func (NullEditDistance) Ratio(string, string) float64 { return 0 }

// NullPhonetic contributes nothing to the phonetic channel
type NullPhonetic struct{}

// DoubleMetaphone implements PhoneticCoder
func (NullPhonetic) DoubleMetaphone(string) (string, string) { return "", "" }

// Soundex implements PhoneticCoder
func (NullPhonetic) Soundex(string) string { return "" }

// CharacterSimilarity is a plain, case-insensitive character ratio
// 2*LCS/(len(a)+len(b)). It is used for phone and email values where name
// heuristics make no sense.
func CharacterSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return 2 * float64(matchr.LongestCommonSubsequence(a, b)) / float64(total)
}
