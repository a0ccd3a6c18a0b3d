package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennyhq/contactlink/internal/identity"
	"github.com/kennyhq/contactlink/internal/types"
)

func TestParseMetadata(t *testing.T) {
	md, err := ParseMetadata(`{"chat_jid": "61412345678@s.whatsapp.net", "from": "a@b.co", "to": ["c@d.co", " "], "cc": "e@f.co, g@h.co"}`)
	require.NoError(t, err)
	assert.Equal(t, "61412345678@s.whatsapp.net", md.Handle)
	assert.Equal(t, "a@b.co", md.From)
	assert.Equal(t, []string{"c@d.co"}, md.To)
	assert.Equal(t, []string{"e@f.co", "g@h.co"}, md.Cc)
}

func TestParseMetadataDefensive(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		wantErr bool
	}{
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"missing fields", `{"other": 1}`, false},
		{"wrong field type", `{"chat_jid": 42}`, false},
		{"invalid json", `{"chat_jid": `, true},
		{"array", `["61412345678@s.whatsapp.net"]`, true},
		{"bare string", `"hello"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := ParseMetadata(tt.blob)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedMetadata))
				return
			}
			require.NoError(t, err)
			assert.Empty(t, md.Handle)
		})
	}
}

func TestHandleIdentities(t *testing.T) {
	e := New(identity.Default())

	ids := e.HandleIdentities("61412345678@s.whatsapp.net")
	require.Len(t, ids, 2)
	assert.Equal(t, types.Identity{Kind: types.KindPhone, Value: "412345678", Source: SourceMessagingBridge, Confidence: 0.8}, ids[0])
	assert.Equal(t, types.KindPlatformHandle, ids[1].Kind)
	assert.Equal(t, "61412345678@s.whatsapp.net", ids[1].Value)
	assert.Equal(t, 0.9, ids[1].Confidence)

	assert.Empty(t, e.HandleIdentities("120363025246125486@g.us"))
	assert.Empty(t, e.HandleIdentities(""))
}

func TestDocumentIdentities(t *testing.T) {
	e := New(identity.Default())

	ids, err := e.DocumentIdentities(types.Document{ID: "d1", Metadata: `{"chat_jid":"61412345678@s.whatsapp.net"}`})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = e.DocumentIdentities(types.Document{ID: "d2", Metadata: `not json`})
	assert.ErrorIs(t, err, ErrMalformedMetadata)
}

func TestEmailAddresses(t *testing.T) {
	text := "Hi Team, see notes from Jane.Doe@Example.com and bob@corp.io. Reply to jane.doe@example.com"
	assert.Equal(t, []string{"jane.doe@example.com", "bob@corp.io", "jane.doe@example.com"}, EmailAddresses(text))
	assert.Empty(t, EmailAddresses("no addresses here @ all"))
}

func TestContainsBusinessKeyword(t *testing.T) {
	assert.True(t, ContainsBusinessKeyword("Workshop on Q3 planning"))
	assert.True(t, ContainsBusinessKeyword("weekly team MEETING"))
	assert.False(t, ContainsBusinessKeyword("Dinner with Courtney"))
}

func TestSearchTextAndTokens(t *testing.T) {
	assert.Equal(t, "dinner with courtney at 7", SearchText(types.Document{Title: "Dinner", Content: "with Courtney at 7"}))
	assert.Equal(t, []string{"courtney", "elyse", "lim"}, NameTokens("  Courtney Elyse  Lim"))
}
