package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
	"github.com/etherian3/crowd-fundapp/internal/config"
)

// SubmissionStore persists the transaction audit log.
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, rec domain.SubmissionRecord) error
	UpdateSubmission(ctx context.Context, id, status, txHash, failureKind, reason string) error
	GetSubmission(ctx context.Context, id string) (*domain.SubmissionRecord, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter, limit int) ([]domain.SubmissionRecord, error)
}

// SnapshotStore persists the latest reconciled campaign snapshot so a
// restarted server can serve reads before its first reconciliation.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, payload []byte, reconciledAt time.Time) error
	LoadSnapshot(ctx context.Context) ([]byte, time.Time, error)
}

// WalletStateStore persists the wallet connection flag.
type WalletStateStore interface {
	SetWalletConnected(ctx context.Context, account string, connected bool) error
	WalletConnected(ctx context.Context) (string, bool, error)
}

// APIKeyStore handles API key operations
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	SubmissionStore
	SnapshotStore
	WalletStateStore
	APIKeyStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// APIKey represents an API key
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// SubmissionFilter contains filter options for listing submissions
type SubmissionFilter struct {
	Account string
	Kind    string
	Status  string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
