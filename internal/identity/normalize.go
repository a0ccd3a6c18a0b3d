// Package identity canonicalizes raw phone numbers, email addresses and
// messaging-platform handles into comparable keys.
//
// All functions are pure and total: empty or unusable input yields an empty
// string, never an error.
package identity

import (
	"strings"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/types"
)

// Normalizer canonicalizes identity values for one configured country
type Normalizer struct {
	countryCode      string
	suffixLength     int
	individualSuffix string
	groupSuffix      string
}

// New creates a normalizer from phone configuration
func New(cfg config.PhoneConfig) *Normalizer {
	n := &Normalizer{
		countryCode:      cfg.CountryCode,
		suffixLength:     cfg.SuffixLength,
		individualSuffix: cfg.IndividualHandleSuffix,
		groupSuffix:      cfg.GroupHandleSuffix,
	}
	if n.suffixLength <= 0 {
		n.suffixLength = 9
	}
	return n
}

// Default returns a normalizer with the default phone configuration
func Default() *Normalizer {
	return New(config.DefaultConfig().Phone)
}

// Phone reduces a raw phone number to its trailing subscriber digits.
//
// "+61 412 345 678", "61412345678" and "0412 345 678" all normalize to
// "412345678".
func (n *Normalizer) Phone(raw string) string {
	cleaned := cleanPhone(raw)
	if cleaned == "" {
		return ""
	}

	cc := n.countryCode
	switch {
	case cc != "" && strings.HasPrefix(cleaned, "+"+cc):
		cleaned = cleaned[len(cc)+1:]
	case cc != "" && strings.HasPrefix(cleaned, cc) && len(cleaned) > 10:
		cleaned = cleaned[len(cc):]
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = cleaned[1:]
	}
	// A foreign "+" prefix carries no information once the suffix is taken
	cleaned = strings.TrimPrefix(cleaned, "+")

	if len(cleaned) >= n.suffixLength {
		return cleaned[len(cleaned)-n.suffixLength:]
	}
	return cleaned
}

// cleanPhone keeps digits and a single leading '+'
func cleanPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// Email lowercases and trims an email address. Alias tags are kept.
func (n *Normalizer) Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsGroupHandle reports whether a handle names a group conversation
func (n *Normalizer) IsGroupHandle(handle string) bool {
	return n.groupSuffix != "" && strings.HasSuffix(strings.TrimSpace(handle), n.groupSuffix)
}

// PhoneFromHandle extracts the normalized phone encoded in an individual
// handle ("<digits>@<individual-suffix>"). Group handles and handles of any
// other shape yield ("", false).
func (n *Normalizer) PhoneFromHandle(handle string) (string, bool) {
	handle = strings.TrimSpace(handle)
	if handle == "" || n.IsGroupHandle(handle) {
		return "", false
	}
	if !strings.HasSuffix(handle, n.individualSuffix) {
		return "", false
	}
	phone := n.Phone(strings.TrimSuffix(handle, n.individualSuffix))
	if phone == "" {
		return "", false
	}
	return phone, true
}

// Normalize canonicalizes a value according to its identity kind
func (n *Normalizer) Normalize(kind types.IdentityKind, value string) string {
	switch kind {
	case types.KindPhone:
		return n.Phone(value)
	case types.KindEmail:
		return n.Email(value)
	default:
		return strings.TrimSpace(value)
	}
}
