package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Transaction audit log
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		account TEXT NOT NULL,
		campaign_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		tx_hash TEXT,
		status TEXT NOT NULL,
		failure_kind TEXT,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Last reconciled snapshot, single row
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload BLOB NOT NULL,
		reconciled_at TEXT NOT NULL
	);

	-- Wallet connection flag, single row
	CREATE TABLE IF NOT EXISTS wallet_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		account TEXT NOT NULL,
		connected INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_submissions_account ON submissions(account);
	CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

// RecordSubmission inserts a new audit log row
func (s *SQLiteStore) RecordSubmission(ctx context.Context, rec domain.SubmissionRecord) error {
	query := `
		INSERT INTO submissions (id, kind, account, campaign_id, amount, tx_hash, status, failure_kind, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Kind, rec.Account, rec.CampaignID, rec.Amount, rec.TxHash,
		rec.Status, rec.FailureKind, rec.Reason,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	return err
}

// UpdateSubmission advances an audit log row to its next status
func (s *SQLiteStore) UpdateSubmission(ctx context.Context, id, status, txHash, failureKind, reason string) error {
	query := `
		UPDATE submissions
		SET status = ?, tx_hash = ?, failure_kind = ?, reason = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, status, txHash, failureKind, reason, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSubmission retrieves one audit log row
func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	query := `
		SELECT id, kind, account, campaign_id, amount, tx_hash, status, failure_kind, reason, created_at, updated_at
		FROM submissions
		WHERE id = ?
	`
	rec, err := scanSubmission(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSubmissions lists audit log rows, newest first
func (s *SQLiteStore) ListSubmissions(ctx context.Context, filter SubmissionFilter, limit int) ([]domain.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, account, campaign_id, amount, tx_hash, status, failure_kind, reason, created_at, updated_at
		FROM submissions
		WHERE (? = '' OR account = ?)
		AND (? = '' OR kind = ?)
		AND (? = '' OR status = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query,
		filter.Account, filter.Account,
		filter.Kind, filter.Kind,
		filter.Status, filter.Status,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SubmissionRecord
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// SaveSnapshot replaces the persisted snapshot
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, payload []byte, reconciledAt time.Time) error {
	query := `
		INSERT INTO snapshots (id, payload, reconciled_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, reconciled_at = excluded.reconciled_at
	`
	_, err := s.db.ExecContext(ctx, query, payload, formatTime(reconciledAt))
	return err
}

// LoadSnapshot returns the persisted snapshot, ErrNotFound when none exists
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) ([]byte, time.Time, error) {
	var payload []byte
	var at string
	err := s.db.QueryRowContext(ctx, "SELECT payload, reconciled_at FROM snapshots WHERE id = 1").Scan(&payload, &at)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return payload, parseTime(at), nil
}

// SetWalletConnected persists the wallet connection flag
func (s *SQLiteStore) SetWalletConnected(ctx context.Context, account string, connected bool) error {
	query := `
		INSERT INTO wallet_state (id, account, connected, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET account = excluded.account, connected = excluded.connected, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, account, connected, formatTime(time.Now()))
	return err
}

// WalletConnected returns the persisted wallet connection flag
func (s *SQLiteStore) WalletConnected(ctx context.Context) (string, bool, error) {
	var account string
	var connected bool
	err := s.db.QueryRowContext(ctx, "SELECT account, connected FROM wallet_state WHERE id = 1").Scan(&account, &connected)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return account, connected, nil
}

// CreateAPIKey creates a new API key
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name, created_at) VALUES (?, ?, ?, datetime('now'))", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullString
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.String
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*domain.SubmissionRecord, error) {
	var rec domain.SubmissionRecord
	var txHash, failureKind, reason sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.Account, &rec.CampaignID, &rec.Amount,
		&txHash, &rec.Status, &failureKind, &reason, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.TxHash = txHash.String
	rec.FailureKind = failureKind.String
	rec.Reason = reason.String
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
