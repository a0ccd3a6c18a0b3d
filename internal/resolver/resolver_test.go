package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennyhq/contactlink/internal/config"
	"github.com/kennyhq/contactlink/internal/storage"
	"github.com/kennyhq/contactlink/internal/types"
)

type fakeDocs struct {
	records []*types.AddressBookRecord
	docs    map[string][]*types.Document
	err     error
}

func (f *fakeDocs) ListAddressBook(ctx context.Context) ([]*types.AddressBookRecord, error) {
	return f.records, f.err
}

func (f *fakeDocs) ListDocuments(ctx context.Context, source string) ([]*types.Document, error) {
	return f.docs[source], nil
}

func (f *fakeDocs) CountDocuments(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for k, v := range f.docs {
		counts[k] = len(v)
	}
	return counts, nil
}

func (f *fakeDocs) Close() error { return nil }

type failingStore struct {
	storage.ContactStore
}

func (failingStore) SaveContacts(ctx context.Context, contacts []*types.Contact) error {
	return errors.New("disk full")
}

func setupTestDB(t *testing.T) storage.ContactStore {
	t.Helper()
	store, err := storage.NewContactStore(context.Background(), &storage.Config{
		ContactPath: filepath.Join(t.TempDir(), "contact_memory.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func handleDoc(id, handle string) *types.Document {
	return &types.Document{ID: id, SourceLabel: types.SourceMessaging, Metadata: `{"chat_jid":"` + handle + `"}`}
}

func courtneyBook() []*types.AddressBookRecord {
	return []*types.AddressBookRecord{
		{RecordID: "1", FirstName: "Courtney", LastName: "Lim", FullName: "Courtney Elyse Lim", Phones: []string{"+61 412 345 678"}, Company: "Acme"},
		{RecordID: "2", FirstName: "Bob", Emails: []string{" Bob@Example.com "}},
	}
}

func TestResolveAttachesHandlePhoneToExistingContact(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	docs := &fakeDocs{
		records: courtneyBook(),
		docs: map[string][]*types.Document{
			types.SourceMessaging: {handleDoc("w1", "61412345678@s.whatsapp.net")},
		},
	}

	res, err := New(docs, store, config.DefaultConfig()).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Loaded)
	assert.Equal(t, 2, res.Extracted, "phone and handle")
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Dropped, "bare handle is not contactable")
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, types.ConfidenceHistogram{High: 2}, res.Histogram)

	courtney, err := store.GetContact(ctx, ContactID(types.KindAddressBookRecord, "1"))
	require.NoError(t, err)
	assert.Equal(t, "Courtney Elyse Lim", courtney.DisplayName)
	assert.Equal(t, "Acme", courtney.Company)
	assert.True(t, courtney.HasIdentity(types.KindPhone, "412345678"))

	records, err := store.ListIdentities(ctx)
	require.NoError(t, err)
	phones := 0
	for _, r := range records {
		if r.Kind == types.KindPhone && r.Value == "412345678" {
			phones++
			assert.Equal(t, courtney.ID, r.ContactID)
		}
	}
	assert.Equal(t, 1, phones, "no duplicate phone identity")
}

func TestResolveBuildsAddressBookContacts(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	docs := &fakeDocs{records: append(courtneyBook(),
		&types.AddressBookRecord{RecordID: "", FirstName: "NoID"},
		&types.AddressBookRecord{RecordID: "3", Phones: []string{"0412 345 678"}},
	)}

	res, err := New(docs, store, config.DefaultConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Loaded)
	assert.Equal(t, 1, res.Skipped)

	bob, err := store.GetContact(ctx, ContactID(types.KindAddressBookRecord, "2"))
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.DisplayName)
	assert.True(t, bob.HasIdentity(types.KindEmail, "bob@example.com"))
	assert.True(t, bob.HasIdentity(types.KindAddressBookRecord, "2"))

	// Same phone as Courtney: first writer keeps it
	third, err := store.GetContact(ctx, ContactID(types.KindAddressBookRecord, "3"))
	require.NoError(t, err)
	assert.Equal(t, "Contact 3", third.DisplayName)
	assert.False(t, third.HasIdentity(types.KindPhone, "412345678"))
}

func TestResolveSynthesizesUnmatchedContacts(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	docs := &fakeDocs{
		records: courtneyBook(),
		docs: map[string][]*types.Document{
			types.SourceMessaging: {
				handleDoc("w1", "61498765432@s.whatsapp.net"),
				handleDoc("w2", "61498765432@s.whatsapp.net"),
				handleDoc("w3", "120363025246125486@g.us"),
			},
		},
	}

	// Handle-derived phones carry 0.8, which the default create threshold rejects
	res, err := New(docs, store, config.DefaultConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Dropped)

	cfg := config.DefaultConfig()
	cfg.Resolver.CreateThreshold = 0.75
	res, err = New(docs, store, cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Extracted, "duplicate handles collapse, groups yield nothing")
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, types.ConfidenceHistogram{High: 2, Medium: 1}, res.Histogram)

	unknown, err := store.GetContact(ctx, ContactID(types.KindPhone, "498765432"))
	require.NoError(t, err)
	assert.Equal(t, "Unknown (498765432)", unknown.DisplayName)
	assert.Equal(t, 0.6, unknown.ConfidenceScore)
	require.Len(t, unknown.Identities, 1)
	assert.Equal(t, 0.8, unknown.Identities[0].Confidence)
}

func TestResolveRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	docs := &fakeDocs{
		records: courtneyBook(),
		docs: map[string][]*types.Document{
			types.SourceMessaging: {
				handleDoc("w1", "61412345678@s.whatsapp.net"),
				handleDoc("w2", "61498765432@s.whatsapp.net"),
			},
		},
	}
	cfg := config.DefaultConfig()
	cfg.Resolver.CreateThreshold = 0.75

	_, err := New(docs, store, cfg).Run(ctx)
	require.NoError(t, err)
	contacts1, identities1, err := store.CountContacts(ctx)
	require.NoError(t, err)

	_, err = New(docs, store, cfg).Run(ctx)
	require.NoError(t, err)
	contacts2, identities2, err := store.CountContacts(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, contacts1)
	assert.Equal(t, contacts1, contacts2)
	assert.Equal(t, identities1, identities2)

	last, err := store.LastRun(ctx, storage.MetaLastResolvedAt)
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestResolveSkipsMalformedMetadata(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	docs := &fakeDocs{
		records: courtneyBook(),
		docs: map[string][]*types.Document{
			types.SourceMessaging: {
				{ID: "bad1", Metadata: `{"chat_jid": `},
				{ID: "bad2", Metadata: `[1,2]`},
				{ID: "empty", Metadata: ""},
				handleDoc("w1", "61412345678@s.whatsapp.net"),
			},
		},
	}

	res, err := New(docs, store, config.DefaultConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Matched)
}

func TestResolveFuzzyPhoneMatch(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	docs := &fakeDocs{
		records: courtneyBook(),
		docs: map[string][]*types.Document{
			// One digit off Courtney's number
			types.SourceMessaging: {handleDoc("w1", "61412345679@s.whatsapp.net")},
		},
	}

	// 2*8/18 similarity scaled by 0.7 stays under the default match threshold
	res, err := New(docs, store, config.DefaultConfig()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Matched)

	cfg := config.DefaultConfig()
	cfg.Resolver.MatchThreshold = 0.6
	res, err = New(docs, store, cfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)

	courtney, err := store.GetContact(ctx, ContactID(types.KindAddressBookRecord, "1"))
	require.NoError(t, err)
	assert.True(t, courtney.HasIdentity(types.KindPhone, "412345679"))
}

func TestResolveFailures(t *testing.T) {
	ctx := context.Background()

	_, err := New(&fakeDocs{err: errors.New("no such table")}, setupTestDB(t), config.DefaultConfig()).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load address book")

	store := setupTestDB(t)
	_, err = New(&fakeDocs{records: courtneyBook()}, failingStore{store}, config.DefaultConfig()).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist contacts")

	n, _, err := store.CountContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		rec  types.AddressBookRecord
		want string
	}{
		{types.AddressBookRecord{RecordID: "1", FirstName: "A", LastName: "B", FullName: " Full Name "}, "Full Name"},
		{types.AddressBookRecord{RecordID: "1", FirstName: "Ann", LastName: "Lee"}, "Ann Lee"},
		{types.AddressBookRecord{RecordID: "1", FirstName: "Ann"}, "Ann"},
		{types.AddressBookRecord{RecordID: "7", LastName: "Lee"}, "Contact 7"},
		{types.AddressBookRecord{}, "Unknown Contact"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(&tt.rec))
	}
}

func TestContactIDDeterministic(t *testing.T) {
	a := ContactID(types.KindPhone, "412345678")
	assert.Equal(t, a, ContactID(types.KindPhone, "412345678"))
	assert.NotEqual(t, a, ContactID(types.KindEmail, "412345678"))
}
