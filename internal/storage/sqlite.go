package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deploydesk/deploydesk/pkg/types"
)

// SQLiteStore implements HistoryStore using SQLite. With the default
// ":memory:" path the history lives exactly as long as the process, matching
// the page-session lifetime of the browser front-end.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the history database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A second connection to a :memory: DSN would open a second, empty
	// database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_hash TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL DEFAULT '',
		fee_wei TEXT NOT NULL DEFAULT '',
		submitted_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSubmission appends one submission outcome.
func (s *SQLiteStore) RecordSubmission(rec types.SubmissionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO submissions (tx_hash, account, fee_wei, submitted_at, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TxHash, rec.Account, rec.FeeWei, rec.SubmittedAt, rec.Outcome, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// ListSubmissions returns the most recent submissions, newest first.
func (s *SQLiteStore) ListSubmissions(limit int) ([]types.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT tx_hash, account, fee_wei, submitted_at, outcome, error
		 FROM submissions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	records := make([]types.SubmissionRecord, 0, limit)
	for rows.Next() {
		var rec types.SubmissionRecord
		if err := rows.Scan(&rec.TxHash, &rec.Account, &rec.FeeWei, &rec.SubmittedAt, &rec.Outcome, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
