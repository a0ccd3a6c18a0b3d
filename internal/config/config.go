package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for contact resolution and document linking
type Config struct {
	// DocumentDBPath is the SQLite file holding documents and the address book
	// Default: "kenny.db"
	DocumentDBPath string `yaml:"document_db"`

	// ContactDBPath is the SQLite file holding the contact-memory tables
	// Default: "contact_memory.db"
	ContactDBPath string `yaml:"contact_db"`

	Phone    PhoneConfig    `yaml:"phone"`
	Sources  SourceConfig   `yaml:"sources"`
	Resolver ResolverConfig `yaml:"resolver"`
	Linker   LinkerConfig   `yaml:"linker"`
	Search   SearchConfig   `yaml:"search"`
}

// PhoneConfig controls phone and handle normalization
type PhoneConfig struct {
	// CountryCode is stripped from international numbers ("+61..." or "61..." when longer than 10 digits)
	// Default: "61"
	CountryCode string `yaml:"country_code"`

	// SuffixLength is the number of trailing subscriber digits kept as the comparison key
	// Default: 9, Range: 6-9
	SuffixLength int `yaml:"suffix_length"`

	// IndividualHandleSuffix marks a one-to-one messaging handle ("<digits><suffix>")
	// Default: "@s.whatsapp.net"
	IndividualHandleSuffix string `yaml:"individual_handle_suffix"`

	// GroupHandleSuffix marks a group conversation handle
	// Default: "@g.us"
	GroupHandleSuffix string `yaml:"group_handle_suffix"`
}

// SourceConfig maps document source labels in the document store
type SourceConfig struct {
	Messaging string `yaml:"messaging"`
	Mail      string `yaml:"mail"`
	Calendar  string `yaml:"calendar"`
	Messages  string `yaml:"messages"`
}

// ResolverConfig holds the contact resolver thresholds
type ResolverConfig struct {
	// ExactMatchConfidence is the score for an exact normalized identity match
	// Default: 0.95
	ExactMatchConfidence float64 `yaml:"exact_match_confidence"`

	// SimilarityThreshold is the minimum character similarity for a fuzzy phone/email match
	// Default: 0.8
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// SimilarityDiscount scales a fuzzy phone/email similarity into a match score
	// Default: 0.7
	SimilarityDiscount float64 `yaml:"similarity_discount"`

	// CandidateThreshold is the minimum score for a contact to be a candidate at all
	// Default: 0.5
	CandidateThreshold float64 `yaml:"candidate_threshold"`

	// MatchThreshold is the best-candidate score above which an identity is attached
	// to an existing contact instead of creating a new one
	// Default: 0.7
	MatchThreshold float64 `yaml:"match_threshold"`

	// CreateThreshold is the identity confidence above which an unmatched
	// phone/email identity becomes a new contact
	// Default: 0.8
	CreateThreshold float64 `yaml:"create_threshold"`

	// SynthesizedConfidence is the contact confidence of synthesized contacts
	// Default: 0.6
	SynthesizedConfidence float64 `yaml:"synthesized_confidence"`
}

// LinkerConfig holds the document linker discounts and limits
type LinkerConfig struct {
	// HandleDiscount applies to links made through a phone derived from a handle
	// Default: 0.9
	HandleDiscount float64 `yaml:"handle_discount"`

	// SenderDiscount applies to mail sender links
	// Default: 0.95
	SenderDiscount float64 `yaml:"sender_discount"`

	// RecipientDiscount applies to mail recipient links
	// Default: 0.9
	RecipientDiscount float64 `yaml:"recipient_discount"`

	// CalendarBaseConfidence and CalendarTokenBonus give min(max, base + bonus*matched_tokens)
	// Defaults: 0.5, 0.1, 0.7
	CalendarBaseConfidence float64 `yaml:"calendar_base_confidence"`
	CalendarTokenBonus     float64 `yaml:"calendar_token_bonus"`
	CalendarMaxConfidence  float64 `yaml:"calendar_max_confidence"`

	// CalendarMaxMatches is how many contacts a single calendar event may link to
	// Default: 2
	CalendarMaxMatches int `yaml:"calendar_max_matches"`

	// CalendarMinTokenLength is the minimum name token length considered
	// Default: 3
	CalendarMinTokenLength int `yaml:"calendar_min_token_length"`

	// MailSenderHeuristic picks how mail sender and recipients are found:
	// "body_tail" (last body address is the sender) or "header" (metadata
	// from/to/cc, falling back to body_tail)
	// Default: "body_tail"
	MailSenderHeuristic string `yaml:"mail_sender_heuristic"`

	// Parallel runs the per-source passes concurrently
	// Default: true
	Parallel bool `yaml:"parallel"`
}

// Mail sender heuristics
const (
	MailHeuristicBodyTail = "body_tail"
	MailHeuristicHeader   = "header"
)

// SearchConfig holds the ad-hoc contact search parameters
type SearchConfig struct {
	// Threshold is the minimum fuzzy score for a search hit
	// Default: 0.15
	Threshold float64 `yaml:"threshold"`

	// Limit caps the number of search hits
	// Default: 10
	Limit int `yaml:"limit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DocumentDBPath: "kenny.db",
		ContactDBPath:  "contact_memory.db",
		Phone: PhoneConfig{
			CountryCode:            "61",
			SuffixLength:           9,
			IndividualHandleSuffix: "@s.whatsapp.net",
			GroupHandleSuffix:      "@g.us",
		},
		Sources: SourceConfig{
			Messaging: "WhatsApp",
			Mail:      "Mail",
			Calendar:  "Calendar",
			Messages:  "Messages",
		},
		Resolver: ResolverConfig{
			ExactMatchConfidence:  0.95,
			SimilarityThreshold:   0.8,
			SimilarityDiscount:    0.7,
			CandidateThreshold:    0.5,
			MatchThreshold:        0.7,
			CreateThreshold:       0.8,
			SynthesizedConfidence: 0.6,
		},
		Linker: LinkerConfig{
			HandleDiscount:         0.9,
			SenderDiscount:         0.95,
			RecipientDiscount:      0.9,
			CalendarBaseConfidence: 0.5,
			CalendarTokenBonus:     0.1,
			CalendarMaxConfidence:  0.7,
			CalendarMaxMatches:     2,
			CalendarMinTokenLength: 3,
			MailSenderHeuristic:    MailHeuristicBodyTail,
			Parallel:               true,
		},
		Search: SearchConfig{
			Threshold: 0.15,
			Limit:     10,
		},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.DocumentDBPath == "" {
		return fmt.Errorf("document_db is required")
	}
	if c.ContactDBPath == "" {
		return fmt.Errorf("contact_db is required")
	}
	if c.Phone.SuffixLength < 6 || c.Phone.SuffixLength > 9 {
		return fmt.Errorf("phone.suffix_length must be between 6 and 9 (got %d)", c.Phone.SuffixLength)
	}
	if c.Phone.IndividualHandleSuffix == "" {
		return fmt.Errorf("phone.individual_handle_suffix is required")
	}

	probabilities := map[string]float64{
		"resolver.exact_match_confidence": c.Resolver.ExactMatchConfidence,
		"resolver.similarity_threshold":   c.Resolver.SimilarityThreshold,
		"resolver.similarity_discount":    c.Resolver.SimilarityDiscount,
		"resolver.candidate_threshold":    c.Resolver.CandidateThreshold,
		"resolver.match_threshold":        c.Resolver.MatchThreshold,
		"resolver.create_threshold":       c.Resolver.CreateThreshold,
		"resolver.synthesized_confidence": c.Resolver.SynthesizedConfidence,
		"linker.handle_discount":          c.Linker.HandleDiscount,
		"linker.sender_discount":          c.Linker.SenderDiscount,
		"linker.recipient_discount":       c.Linker.RecipientDiscount,
		"linker.calendar_base_confidence": c.Linker.CalendarBaseConfidence,
		"linker.calendar_token_bonus":     c.Linker.CalendarTokenBonus,
		"linker.calendar_max_confidence":  c.Linker.CalendarMaxConfidence,
		"search.threshold":                c.Search.Threshold,
	}
	for name, v := range probabilities {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1 (got %.2f)", name, v)
		}
	}

	if c.Resolver.MatchThreshold < c.Resolver.CandidateThreshold {
		return fmt.Errorf("resolver.match_threshold (%.2f) must be >= resolver.candidate_threshold (%.2f)",
			c.Resolver.MatchThreshold, c.Resolver.CandidateThreshold)
	}
	if c.Linker.CalendarMaxMatches < 1 {
		return fmt.Errorf("linker.calendar_max_matches must be at least 1 (got %d)", c.Linker.CalendarMaxMatches)
	}
	if c.Linker.CalendarMinTokenLength < 1 {
		return fmt.Errorf("linker.calendar_min_token_length must be at least 1 (got %d)", c.Linker.CalendarMinTokenLength)
	}
	if c.Linker.MailSenderHeuristic != MailHeuristicBodyTail && c.Linker.MailSenderHeuristic != MailHeuristicHeader {
		return fmt.Errorf("linker.mail_sender_heuristic must be %q or %q (got %q)",
			MailHeuristicBodyTail, MailHeuristicHeader, c.Linker.MailSenderHeuristic)
	}
	if c.Search.Limit < 1 {
		return fmt.Errorf("search.limit must be at least 1 (got %d)", c.Search.Limit)
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
//
// A missing file at path is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return nil
}
