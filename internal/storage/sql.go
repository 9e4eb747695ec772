package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bilgisen/newswatch/internal/models"
	"github.com/bilgisen/newswatch/internal/utils"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS newz (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	time      TIMESTAMP,
	keywords  TEXT,
	text      TEXT NOT NULL,
	text_hash TEXT NOT NULL UNIQUE,
	is_sent   BOOLEAN NOT NULL DEFAULT 0
)`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS newz (
	id        BIGSERIAL PRIMARY KEY,
	time      TIMESTAMP,
	keywords  TEXT,
	text      TEXT NOT NULL,
	text_hash CHAR(64) NOT NULL UNIQUE,
	is_sent   BOOLEAN NOT NULL DEFAULT FALSE
)`

// SQLStore keeps news in a single table. Uniqueness is enforced on the
// SHA-256 of the text; lookups also compare the full text.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the news table if needed
func Open(driver, dsn string) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverPostgres:
		db, err = openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	store, err := New(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database handle and bootstraps the schema
func New(db *sql.DB, driver string) (*SQLStore, error) {
	schema := sqliteSchema
	if driver == DriverPostgres {
		schema = postgresSchema
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create news table: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases coherent and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}
	return db, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Close closes the underlying database handle
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) FindByText(ctx context.Context, text string) (*models.NewsItem, error) {
	query := s.rebind(`
		SELECT id, time, keywords, text, is_sent
		FROM newz
		WHERE text_hash = ? AND text = ?
	`)

	var (
		item     models.NewsItem
		ts       sql.NullTime
		keywords sql.NullString
		isSent   bool
	)
	err := s.db.QueryRowContext(ctx, query, utils.Hash(text), text).
		Scan(&item.ID, &ts, &keywords, &item.Text, &isSent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up news by text: %w", err)
	}

	item.Time = ts.Time
	item.Keywords = keywords.String
	item.IsSent = &isSent
	return &item, nil
}

func (s *SQLStore) Save(ctx context.Context, item *models.NewsItem) error {
	if item.Persisted() {
		return fmt.Errorf("news %d is already stored", item.ID)
	}

	query := s.rebind(`
		INSERT INTO newz (time, keywords, text, text_hash, is_sent)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	var ts sql.NullTime
	if !item.Time.IsZero() {
		ts = sql.NullTime{Time: item.Time.UTC(), Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		ts, item.Keywords, item.Text, utils.Hash(item.Text), item.Sent()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to save news: %w", ErrIntegrityConflict)
		}
		return fmt.Errorf("failed to save news: %w", err)
	}

	item.ID = id
	return nil
}

// Count returns the number of stored items
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM newz`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}
	return n, nil
}

// rebind turns ? placeholders into $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
