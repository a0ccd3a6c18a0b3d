package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kennyhq/contactlink/internal/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	// Create temp file
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	_ = tmpfile.Close()

	// Create storage
	storage, err := New(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	// Cleanup function
	t.Cleanup(func() {
		_ = storage.Close()
		_ = os.Remove(tmpfile.Name())
		_ = os.Remove(tmpfile.Name() + "-wal")
		_ = os.Remove(tmpfile.Name() + "-shm")
	})

	return storage
}

// fixedClock makes the storage clock return successive fixed times
func fixedClock(s *SQLiteStorage, times ...time.Time) {
	i := 0
	s.now = func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func testContact(id, name string, ids ...types.Identity) *types.Contact {
	return &types.Contact{ID: id, DisplayName: name, ConfidenceScore: 1.0, Identities: ids}
}

func phone(v string, conf float64) types.Identity {
	return types.Identity{Kind: types.KindPhone, Value: v, Source: "address_book", Confidence: conf}
}

func email(v string, conf float64) types.Identity {
	return types.Identity{Kind: types.KindEmail, Value: v, Source: "address_book", Confidence: conf}
}

func TestNewAppliesMigrations(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected schema version 2, got %d", version)
	}

	// Reopening an up-to-date database is a no-op
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = first.Close()
	second, err := New(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	_ = second.Close()
}

func TestNewMigratesBaseSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// Database created before company/role and document_date existed
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create base schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO contacts (id, display_name, confidence_score, created_at, updated_at)
		VALUES ('c1', 'Old Contact', 1.0, '2024-01-01T00:00:00.000000000Z', '2024-01-01T00:00:00.000000000Z')`); err != nil {
		t.Fatalf("Failed to insert legacy contact: %v", err)
	}
	_ = db.Close()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New failed on legacy database: %v", err)
	}
	defer s.Close()

	c, err := s.GetContact(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if c.DisplayName != "Old Contact" || c.Company != "" || c.Role != "" {
		t.Errorf("Unexpected migrated contact: %+v", c)
	}
}

func TestSaveContactsUpsert(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	fixedClock(s, t1, t2)

	c := testContact("c1", "Courtney Lim", phone("412345678", 0.95), email("courtney@example.com", 0.95))
	c.Company = "Acme"
	if err := s.SaveContacts(ctx, []*types.Contact{c}); err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}

	c.DisplayName = "Courtney Elyse Lim"
	c.Identities = append(c.Identities, types.Identity{Kind: types.KindPlatformHandle, Value: "61412345678@s.whatsapp.net", Source: "messaging_bridge", Confidence: 0.9})
	if err := s.SaveContacts(ctx, []*types.Contact{c}); err != nil {
		t.Fatalf("second SaveContacts failed: %v", err)
	}

	got, err := s.GetContact(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	if got.DisplayName != "Courtney Elyse Lim" {
		t.Errorf("Expected updated display name, got %q", got.DisplayName)
	}
	if got.Company != "Acme" {
		t.Errorf("Expected company Acme, got %q", got.Company)
	}
	if !got.CreatedAt.Equal(t1) {
		t.Errorf("Expected created_at preserved as %v, got %v", t1, got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(t2) {
		t.Errorf("Expected updated_at refreshed to %v, got %v", t2, got.UpdatedAt)
	}
	if len(got.Identities) != 3 {
		t.Fatalf("Expected 3 identities, got %d", len(got.Identities))
	}
	// Ordered by confidence descending
	if got.Identities[0].Confidence < got.Identities[1].Confidence || got.Identities[1].Confidence < got.Identities[2].Confidence {
		t.Errorf("Identities not ordered by confidence: %+v", got.Identities)
	}

	contacts, identities, err := s.CountContacts(ctx)
	if err != nil {
		t.Fatalf("CountContacts failed: %v", err)
	}
	if contacts != 1 || identities != 3 {
		t.Errorf("Expected 1 contact and 3 identities, got %d and %d", contacts, identities)
	}
}

func TestSaveContactsIdentityUnique(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	a := testContact("a", "Alice", phone("412345678", 0.95))
	b := testContact("b", "Unknown (412345678)", phone("412345678", 0.8))
	if err := s.SaveContacts(ctx, []*types.Contact{a}); err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}
	if err := s.SaveContacts(ctx, []*types.Contact{b}); err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}

	records, err := s.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected a single identity row for (phone, 412345678), got %d", len(records))
	}
	if records[0].ContactID != "b" {
		t.Errorf("Expected identity to move to contact b, got %s", records[0].ContactID)
	}
}

func TestSaveContactsRejectsInvalid(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	good := testContact("good", "Good", phone("412345678", 0.95))
	bad := testContact("", "Missing ID")
	if err := s.SaveContacts(ctx, []*types.Contact{good, bad}); err == nil {
		t.Fatal("Expected error for contact without id")
	}

	contacts, _, err := s.CountContacts(ctx)
	if err != nil {
		t.Fatalf("CountContacts failed: %v", err)
	}
	if contacts != 0 {
		t.Errorf("Expected nothing saved, got %d contacts", contacts)
	}
}

func TestListIdentitiesOrdering(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	err := s.SaveContacts(ctx, []*types.Contact{
		testContact("b", "Bob", email("bob@example.com", 0.95)),
		testContact("a", "Alice", email("alice@example.com", 0.95), phone("498765432", 0.6)),
		testContact("c", "Carol", types.Identity{Kind: types.KindAddressBookRecord, Value: "42", Source: "address_book", Confidence: 1.0}),
	})
	if err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}

	records, err := s.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}

	want := []*types.IdentityRecord{
		{ContactID: "c", Identity: types.Identity{Kind: types.KindAddressBookRecord, Value: "42", Source: "address_book", Confidence: 1.0}},
		{ContactID: "a", Identity: email("alice@example.com", 0.95)},
		{ContactID: "b", Identity: email("bob@example.com", 0.95)},
		{ContactID: "a", Identity: phone("498765432", 0.6)},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("ListIdentities mismatch (-want +got):\n%s", diff)
	}
}

func TestListReachableContacts(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	err := s.SaveContacts(ctx, []*types.Contact{
		testContact("b", "Bob", email("bob@example.com", 0.95)),
		testContact("a", "Alice", phone("412345678", 0.95)),
		testContact("c", "Carol", types.Identity{Kind: types.KindAddressBookRecord, Value: "42", Source: "address_book", Confidence: 1.0}),
		testContact("d", "Dan"),
	})
	if err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}

	reachable, err := s.ListReachableContacts(ctx)
	if err != nil {
		t.Fatalf("ListReachableContacts failed: %v", err)
	}
	if len(reachable) != 2 || reachable[0].ID != "a" || reachable[1].ID != "b" {
		t.Fatalf("Expected contacts [a b], got %+v", reachable)
	}

	all, err := s.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if len(all) != 4 || all[0].DisplayName != "Alice" {
		t.Errorf("Expected 4 contacts ordered by name, got %+v", all)
	}
}

func TestGetContactNotFound(t *testing.T) {
	s := setupTestDB(t)

	_, err := s.GetContact(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	_, err = s.GetContactSummary(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from summary, got %v", err)
	}
}

func TestReplaceLinks(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if err := s.SaveContacts(ctx, []*types.Contact{
		testContact("a", "Alice", phone("412345678", 0.95)),
		testContact("b", "Bob", email("bob@example.com", 0.95)),
	}); err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}

	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	first := []types.DocumentLink{
		{DocumentID: "d1", ContactID: "a", RelationshipType: types.RelationshipSender, Confidence: 0.855, ExtractionMethod: types.MethodHandlePhone, DocumentDate: day},
		{DocumentID: "d2", ContactID: "b", RelationshipType: types.RelationshipRecipient, Confidence: 0.855, ExtractionMethod: types.MethodEmailRecipient},
		// Same id as the previous link: higher confidence wins
		{DocumentID: "d2", ContactID: "b", RelationshipType: types.RelationshipRecipient, Confidence: 0.9, ExtractionMethod: types.MethodEmailRecipient},
	}
	if err := s.ReplaceLinks(ctx, first); err != nil {
		t.Fatalf("ReplaceLinks failed: %v", err)
	}

	links, err := s.ListLinks(ctx)
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(links))
	}
	if links[1].Confidence != 0.9 {
		t.Errorf("Expected duplicate link to keep confidence 0.9, got %v", links[1].Confidence)
	}
	if !links[0].DocumentDate.Equal(day) {
		t.Errorf("Expected document date %v, got %v", day, links[0].DocumentDate)
	}

	second := []types.DocumentLink{
		{DocumentID: "d3", ContactID: "a", RelationshipType: types.RelationshipAttendee, Confidence: 0.6, ExtractionMethod: types.MethodCalendarFuzzyName},
	}
	if err := s.ReplaceLinks(ctx, second); err != nil {
		t.Fatalf("ReplaceLinks failed: %v", err)
	}
	links, err = s.ListLinks(ctx)
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if len(links) != 1 || links[0].DocumentID != "d3" {
		t.Errorf("Expected only the new link, got %+v", links)
	}
}

func TestReplaceLinksRollsBack(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if err := s.SaveContacts(ctx, []*types.Contact{testContact("a", "Alice", phone("412345678", 0.95))}); err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}
	keep := []types.DocumentLink{
		{DocumentID: "d1", ContactID: "a", RelationshipType: types.RelationshipSender, Confidence: 0.855, ExtractionMethod: types.MethodHandlePhone},
	}
	if err := s.ReplaceLinks(ctx, keep); err != nil {
		t.Fatalf("ReplaceLinks failed: %v", err)
	}

	// Unknown contact violates the foreign key part-way through the batch
	broken := []types.DocumentLink{
		{DocumentID: "d2", ContactID: "a", RelationshipType: types.RelationshipSender, Confidence: 0.855, ExtractionMethod: types.MethodHandlePhone},
		{DocumentID: "d3", ContactID: "nobody", RelationshipType: types.RelationshipSender, Confidence: 0.855, ExtractionMethod: types.MethodHandlePhone},
	}
	if err := s.ReplaceLinks(ctx, broken); err == nil {
		t.Fatal("Expected foreign key error")
	}

	links, err := s.ListLinks(ctx)
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}
	if len(links) != 1 || links[0].DocumentID != "d1" {
		t.Errorf("Expected previous links intact after rollback, got %+v", links)
	}
}

func TestContactSummaryAndTopContacts(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if err := s.SaveContacts(ctx, []*types.Contact{
		testContact("a", "Alice", phone("412345678", 0.95)),
		testContact("b", "Bob", email("bob@example.com", 0.95)),
		testContact("c", "Carol", email("carol@example.com", 0.95)),
	}); err != nil {
		t.Fatalf("SaveContacts failed: %v", err)
	}

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	links := []types.DocumentLink{
		{DocumentID: "d1", ContactID: "b", RelationshipType: types.RelationshipSender, Confidence: 0.9, ExtractionMethod: types.MethodEmailSender, DocumentDate: early},
		{DocumentID: "d2", ContactID: "b", RelationshipType: types.RelationshipRecipient, Confidence: 0.9, ExtractionMethod: types.MethodEmailRecipient, DocumentDate: late},
		{DocumentID: "d2", ContactID: "b", RelationshipType: types.RelationshipSender, Confidence: 0.9, ExtractionMethod: types.MethodEmailSender, DocumentDate: late},
		{DocumentID: "d3", ContactID: "a", RelationshipType: types.RelationshipSender, Confidence: 0.855, ExtractionMethod: types.MethodHandlePhone},
	}
	if err := s.ReplaceLinks(ctx, links); err != nil {
		t.Fatalf("ReplaceLinks failed: %v", err)
	}

	sum, err := s.GetContactSummary(ctx, "b")
	if err != nil {
		t.Fatalf("GetContactSummary failed: %v", err)
	}
	if sum.TotalInteractions != 2 {
		t.Errorf("Expected 2 distinct documents, got %d", sum.TotalInteractions)
	}
	if sum.LastInteraction == nil || !sum.LastInteraction.Equal(late) {
		t.Errorf("Expected last interaction %v, got %v", late, sum.LastInteraction)
	}

	top, err := s.TopContacts(ctx, 10)
	if err != nil {
		t.Fatalf("TopContacts failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 linked contacts, got %d", len(top))
	}
	if top[0].ID != "b" || top[1].ID != "a" {
		t.Errorf("Expected order [b a], got [%s %s]", top[0].ID, top[1].ID)
	}
	if top[1].LastInteraction != nil {
		t.Errorf("Expected no last interaction for undated links, got %v", top[1].LastInteraction)
	}
}

func TestRunMetadata(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	last, err := s.LastRun(ctx, MetaLastLinkedAt)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last != nil {
		t.Errorf("Expected no last run, got %v", last)
	}

	at := time.Date(2024, 7, 4, 12, 30, 0, 0, time.UTC)
	fixedClock(s, at)
	if err := s.MarkRun(ctx, MetaLastLinkedAt); err != nil {
		t.Fatalf("MarkRun failed: %v", err)
	}
	last, err = s.LastRun(ctx, MetaLastLinkedAt)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last == nil || !last.Equal(at) {
		t.Errorf("Expected %v, got %v", at, last)
	}
}
