package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kennyhq/contactlink/internal/storage/migrations"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a requested contact does not exist
var ErrNotFound = errors.New("not found")

// timeFormat is fixed-width so stored timestamps sort lexically
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Metadata keys recorded by resolve and link runs
const (
	MetaLastResolvedAt = "last_resolved_at"
	MetaLastLinkedAt   = "last_linked_at"
)

// SQLiteStorage implements the contact-memory store using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite contact-memory store, creating the file, schema
// and pending migrations as needed
func New(path string) (*SQLiteStorage, error) {
	ctx := context.Background()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := contactMigrations().Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// dsn builds a driver connection string with WAL, foreign keys and a busy timeout
func dsn(path string, readOnly bool) string {
	s := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if readOnly {
		return s + "&mode=ro"
	}
	return s + "&_pragma=journal_mode(wal)"
}

// withImmediateTx runs fn inside a BEGIN IMMEDIATE transaction on a single
// connection, committing when fn succeeds and rolling back otherwise
func (s *SQLiteStorage) withImmediateTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	// Dedicated connection so BEGIN/COMMIT and the statements between them
	// run on the same underlying SQLite handle
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	// IMMEDIATE takes the write lock up front so concurrent writers
	// serialize instead of failing on lock upgrade
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	// Use context.Background() for ROLLBACK to ensure cleanup happens even if ctx is canceled
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// GetMetadata gets a run metadata value ("" when unset)
func (s *SQLiteStorage) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMetadata sets a run metadata value
func (s *SQLiteStorage) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// MarkRun records the current time under a run metadata key
func (s *SQLiteStorage) MarkRun(ctx context.Context, key string) error {
	return s.SetMetadata(ctx, key, formatTime(s.now()))
}

// LastRun returns the time recorded under a run metadata key (nil when never run)
func (s *SQLiteStorage) LastRun(ctx context.Context, key string) (*time.Time, error) {
	value, err := s.GetMetadata(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if value == "" {
		return nil, nil
	}
	t, err := parseTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SchemaVersion returns the applied migration version
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	version, err := migrations.Version(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
