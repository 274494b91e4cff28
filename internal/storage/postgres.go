package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Transaction audit log
	CREATE TABLE IF NOT EXISTS submissions (
		id UUID PRIMARY KEY,
		kind TEXT NOT NULL,
		account TEXT NOT NULL,
		campaign_id BIGINT NOT NULL,
		amount TEXT NOT NULL,
		tx_hash TEXT,
		status TEXT NOT NULL,
		failure_kind TEXT,
		reason TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	-- Last reconciled snapshot, single row
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload BYTEA NOT NULL,
		reconciled_at TIMESTAMPTZ NOT NULL
	);

	-- Wallet connection flag, single row
	CREATE TABLE IF NOT EXISTS wallet_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		account TEXT NOT NULL,
		connected BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
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
func (s *PostgresStore) RecordSubmission(ctx context.Context, rec domain.SubmissionRecord) error {
	query := `
		INSERT INTO submissions (id, kind, account, campaign_id, amount, tx_hash, status, failure_kind, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Kind, rec.Account, rec.CampaignID, rec.Amount, rec.TxHash,
		rec.Status, rec.FailureKind, rec.Reason, createdAt, updatedAt,
	)
	return err
}

// UpdateSubmission advances an audit log row to its next status
func (s *PostgresStore) UpdateSubmission(ctx context.Context, id, status, txHash, failureKind, reason string) error {
	query := `
		UPDATE submissions
		SET status = $1, tx_hash = $2, failure_kind = $3, reason = $4, updated_at = NOW()
		WHERE id = $5
	`
	res, err := s.db.ExecContext(ctx, query, status, txHash, failureKind, reason, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSubmission retrieves one audit log row
func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	query := `
		SELECT id, kind, account, campaign_id, amount, tx_hash, status, failure_kind, reason, created_at, updated_at
		FROM submissions
		WHERE id = $1
	`
	rec, err := scanSubmissionPG(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSubmissions lists audit log rows, newest first
func (s *PostgresStore) ListSubmissions(ctx context.Context, filter SubmissionFilter, limit int) ([]domain.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, account, campaign_id, amount, tx_hash, status, failure_kind, reason, created_at, updated_at
		FROM submissions
		WHERE ($1 = '' OR account = $1)
		AND ($2 = '' OR kind = $2)
		AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := s.db.QueryContext(ctx, query, filter.Account, filter.Kind, filter.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SubmissionRecord
	for rows.Next() {
		rec, err := scanSubmissionPG(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// SaveSnapshot replaces the persisted snapshot
func (s *PostgresStore) SaveSnapshot(ctx context.Context, payload []byte, reconciledAt time.Time) error {
	query := `
		INSERT INTO snapshots (id, payload, reconciled_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, reconciled_at = EXCLUDED.reconciled_at
	`
	_, err := s.db.ExecContext(ctx, query, payload, reconciledAt)
	return err
}

// LoadSnapshot returns the persisted snapshot, ErrNotFound when none exists
func (s *PostgresStore) LoadSnapshot(ctx context.Context) ([]byte, time.Time, error) {
	var payload []byte
	var at time.Time
	err := s.db.QueryRowContext(ctx, "SELECT payload, reconciled_at FROM snapshots WHERE id = 1").Scan(&payload, &at)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return payload, at, nil
}

// SetWalletConnected persists the wallet connection flag
func (s *PostgresStore) SetWalletConnected(ctx context.Context, account string, connected bool) error {
	query := `
		INSERT INTO wallet_state (id, account, connected, updated_at) VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET account = EXCLUDED.account, connected = EXCLUDED.connected, updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, account, connected)
	return err
}

// WalletConnected returns the persisted wallet connection flag
func (s *PostgresStore) WalletConnected(ctx context.Context) (string, bool, error) {
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
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (key_hash, name) VALUES ($1, $2)", hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at::text FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = NOW() WHERE id = $1", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at::text, last_used_at::text FROM api_keys WHERE revoked_at IS NULL")
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
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = NOW() WHERE id = $1", id)
	return err
}

func scanSubmissionPG(row rowScanner) (*domain.SubmissionRecord, error) {
	var rec domain.SubmissionRecord
	var txHash, failureKind, reason sql.NullString
	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.Account, &rec.CampaignID, &rec.Amount,
		&txHash, &rec.Status, &failureKind, &reason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.TxHash = txHash.String
	rec.FailureKind = failureKind.String
	rec.Reason = reason.String
	return &rec, nil
}
