package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv overrides cfg from environment variables
//
// Environment variables:
//   - CONTACTLINK_DOCUMENT_DB: document store path (default: kenny.db)
//   - CONTACTLINK_CONTACT_DB: contact-memory store path (default: contact_memory.db)
//   - CONTACTLINK_COUNTRY_CODE: country code stripped from phones (default: 61)
//   - CONTACTLINK_PHONE_SUFFIX_LENGTH: trailing digits kept (default: 9)
//   - CONTACTLINK_MATCH_THRESHOLD: resolver attach threshold (default: 0.7)
//   - CONTACTLINK_CREATE_THRESHOLD: resolver new-contact threshold (default: 0.8)
//   - CONTACTLINK_CALENDAR_MAX_MATCHES: links per calendar event (default: 2)
//   - CONTACTLINK_MAIL_SENDER_HEURISTIC: body_tail or header (default: body_tail)
//   - CONTACTLINK_LINK_PARALLEL: run linker source passes concurrently (default: true)
//   - CONTACTLINK_SEARCH_THRESHOLD: minimum search score (default: 0.15)
//   - CONTACTLINK_SEARCH_LIMIT: maximum search hits (default: 10)
//
// Returns an error if any environment variable has an invalid value.
func applyEnv(cfg *Config) error {
	if err := parseEnvString("CONTACTLINK_DOCUMENT_DB", &cfg.DocumentDBPath); err != nil {
		return err
	}
	if err := parseEnvString("CONTACTLINK_CONTACT_DB", &cfg.ContactDBPath); err != nil {
		return err
	}
	if err := parseEnvString("CONTACTLINK_COUNTRY_CODE", &cfg.Phone.CountryCode); err != nil {
		return err
	}
	if err := parseEnvInt("CONTACTLINK_PHONE_SUFFIX_LENGTH", &cfg.Phone.SuffixLength); err != nil {
		return err
	}
	if err := parseEnvFloat("CONTACTLINK_MATCH_THRESHOLD", &cfg.Resolver.MatchThreshold); err != nil {
		return err
	}
	if err := parseEnvFloat("CONTACTLINK_CREATE_THRESHOLD", &cfg.Resolver.CreateThreshold); err != nil {
		return err
	}
	if err := parseEnvInt("CONTACTLINK_CALENDAR_MAX_MATCHES", &cfg.Linker.CalendarMaxMatches); err != nil {
		return err
	}
	if err := parseEnvString("CONTACTLINK_MAIL_SENDER_HEURISTIC", &cfg.Linker.MailSenderHeuristic); err != nil {
		return err
	}
	if err := parseEnvBool("CONTACTLINK_LINK_PARALLEL", &cfg.Linker.Parallel); err != nil {
		return err
	}
	if err := parseEnvFloat("CONTACTLINK_SEARCH_THRESHOLD", &cfg.Search.Threshold); err != nil {
		return err
	}
	if err := parseEnvInt("CONTACTLINK_SEARCH_LIMIT", &cfg.Search.Limit); err != nil {
		return err
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
