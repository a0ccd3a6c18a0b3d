// Package extract pulls candidate identities and name evidence out of
// document metadata and text.
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kennyhq/contactlink/internal/identity"
	"github.com/kennyhq/contactlink/internal/types"
)

// SourceMessagingBridge is the identity source recorded for handle-derived identities
const SourceMessagingBridge = "messaging_bridge"

// Confidences of identities extracted from messaging handles
const (
	HandlePhoneConfidence = 0.8
	HandleConfidence      = 0.9
)

// ErrMalformedMetadata is returned for metadata blobs that are not valid JSON objects
var ErrMalformedMetadata = errors.New("malformed metadata")

// Metadata is the subset of a document's metadata blob this package understands.
// Absent fields are empty.
type Metadata struct {
	Handle string
	From   string
	To     []string
	Cc     []string
}

// ParseMetadata parses a metadata blob defensively. An empty blob yields empty
// Metadata; invalid JSON or a non-object yields ErrMalformedMetadata.
func ParseMetadata(blob string) (Metadata, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return Metadata{}, nil
	}
	if !gjson.Valid(blob) {
		return Metadata{}, ErrMalformedMetadata
	}
	root := gjson.Parse(blob)
	if !root.IsObject() {
		return Metadata{}, ErrMalformedMetadata
	}

	md := Metadata{
		Handle: firstString(root, "chat_jid", "handle"),
		From:   firstString(root, "from", "sender"),
		To:     stringList(root.Get("to")),
		Cc:     stringList(root.Get("cc")),
	}
	return md, nil
}

func firstString(root gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := root.Get(k); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

// stringList accepts either a JSON array of strings or a single
// comma-separated string
func stringList(v gjson.Result) []string {
	var out []string
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			if item.Type == gjson.String && strings.TrimSpace(item.Str) != "" {
				out = append(out, strings.TrimSpace(item.Str))
			}
		}
	case v.Type == gjson.String:
		for _, part := range strings.Split(v.Str, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Extractor yields candidate identities from documents
type Extractor struct {
	norm *identity.Normalizer
}

// New creates an extractor
func New(norm *identity.Normalizer) *Extractor {
	return &Extractor{norm: norm}
}

// HandleIdentities returns the phone and raw-handle identities encoded in a
// messaging handle. Group handles and handles without a phone yield nothing.
func (e *Extractor) HandleIdentities(handle string) []types.Identity {
	phone, ok := e.norm.PhoneFromHandle(handle)
	if !ok {
		return nil
	}
	return []types.Identity{
		{Kind: types.KindPhone, Value: phone, Source: SourceMessagingBridge, Confidence: HandlePhoneConfidence},
		{Kind: types.KindPlatformHandle, Value: strings.TrimSpace(handle), Source: SourceMessagingBridge, Confidence: HandleConfidence},
	}
}

// DocumentIdentities parses a messaging document's metadata and returns its
// handle identities. Malformed metadata is returned as an error so the caller
// can count and skip it.
func (e *Extractor) DocumentIdentities(doc types.Document) ([]types.Identity, error) {
	md, err := ParseMetadata(doc.Metadata)
	if err != nil {
		return nil, err
	}
	return e.HandleIdentities(md.Handle), nil
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// EmailAddresses returns every email address in text, lowercased, in order of
// appearance (duplicates kept)
func EmailAddresses(text string) []string {
	found := emailPattern.FindAllString(text, -1)
	for i, e := range found {
		found[i] = strings.ToLower(e)
	}
	return found
}

// BusinessKeywords veto fuzzy name linking of calendar events
var BusinessKeywords = []string{
	"meeting", "conference", "workshop", "training", "seminar", "webinar", "inspection",
}

// ContainsBusinessKeyword reports whether lowercase text mentions a business keyword
func ContainsBusinessKeyword(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range BusinessKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// SearchText is the lowercase "title content" text used for name matching
func SearchText(doc types.Document) string {
	return strings.ToLower(doc.Title + " " + doc.Content)
}

// NameTokens splits a display name into lowercase tokens
func NameTokens(displayName string) []string {
	return strings.Fields(strings.ToLower(displayName))
}
