package domain

import (
	"context"
	"log/slog"
	"time"
)

// loggingService is the interface required for logging middleware.
type loggingService interface {
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context)
	RestoreConnection(ctx context.Context) (string, error)
	List(ctx context.Context, filter ListFilter) ([]Campaign, error)
	Get(ctx context.Context, id int64) (Campaign, error)
	Donations(ctx context.Context, id int64) ([]Donation, error)
	Refresh(ctx context.Context) (Snapshot, error)
	Create(ctx context.Context, in CreateInput) (Receipt, error)
	Donate(ctx context.Context, id int64, amount string) (Receipt, error)
	Balance(ctx context.Context) (string, error)
	Status(ctx context.Context) Status
}

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(loggingService) *loggingMiddleware {
	return func(next loggingService) *loggingMiddleware {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   loggingService
	logger *slog.Logger
}

func (m *loggingMiddleware) Connect(ctx context.Context) (string, error) {
	start := time.Now()
	account, err := m.next.Connect(ctx)
	m.logger.Info("Connect",
		"account", account,
		"duration", time.Since(start),
		"error", err,
	)
	return account, err
}

func (m *loggingMiddleware) Disconnect(ctx context.Context) {
	m.next.Disconnect(ctx)
	m.logger.Info("Disconnect")
}

func (m *loggingMiddleware) RestoreConnection(ctx context.Context) (string, error) {
	start := time.Now()
	account, err := m.next.RestoreConnection(ctx)
	m.logger.Info("RestoreConnection",
		"account", account,
		"duration", time.Since(start),
		"error", err,
	)
	return account, err
}

func (m *loggingMiddleware) List(ctx context.Context, filter ListFilter) ([]Campaign, error) {
	start := time.Now()
	campaigns, err := m.next.List(ctx, filter)
	m.logger.Debug("List",
		"filter", filter,
		"count", len(campaigns),
		"duration", time.Since(start),
		"error", err,
	)
	return campaigns, err
}

func (m *loggingMiddleware) Get(ctx context.Context, id int64) (Campaign, error) {
	start := time.Now()
	campaign, err := m.next.Get(ctx, id)
	m.logger.Debug("Get",
		"id", id,
		"duration", time.Since(start),
		"error", err,
	)
	return campaign, err
}

func (m *loggingMiddleware) Donations(ctx context.Context, id int64) ([]Donation, error) {
	start := time.Now()
	donations, err := m.next.Donations(ctx, id)
	m.logger.Debug("Donations",
		"id", id,
		"count", len(donations),
		"duration", time.Since(start),
		"error", err,
	)
	return donations, err
}

func (m *loggingMiddleware) Refresh(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Refresh(ctx)
	m.logger.Info("Refresh",
		"campaigns", len(snap.All),
		"duration", time.Since(start),
		"error", err,
	)
	return snap, err
}

func (m *loggingMiddleware) Create(ctx context.Context, in CreateInput) (Receipt, error) {
	start := time.Now()
	receipt, err := m.next.Create(ctx, in)
	m.logger.Info("Create",
		"title", in.Title,
		"target", in.Target,
		"tx", receipt.TxHash,
		"duration", time.Since(start),
		"error", err,
	)
	return receipt, err
}

func (m *loggingMiddleware) Donate(ctx context.Context, id int64, amount string) (Receipt, error) {
	start := time.Now()
	receipt, err := m.next.Donate(ctx, id, amount)
	m.logger.Info("Donate",
		"id", id,
		"amount", amount,
		"tx", receipt.TxHash,
		"duration", time.Since(start),
		"error", err,
	)
	return receipt, err
}

func (m *loggingMiddleware) Balance(ctx context.Context) (string, error) {
	start := time.Now()
	balance, err := m.next.Balance(ctx)
	m.logger.Debug("Balance",
		"duration", time.Since(start),
		"error", err,
	)
	return balance, err
}

func (m *loggingMiddleware) Status(ctx context.Context) Status {
	return m.next.Status(ctx)
}
