package domain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/etherian3/crowd-fundapp/internal/chain"
	"github.com/etherian3/crowd-fundapp/internal/observability/metrics"
)

// CampaignFetcher is the read side of the gateway the store depends on.
type CampaignFetcher interface {
	FetchAllCampaigns(ctx context.Context) []chain.RawCampaign
}

// Store is the process-wide cached view of the campaign set. It is
// refreshed only through Reconcile, which replaces the snapshot wholesale;
// readers never observe a half-updated state.
type Store struct {
	fetcher CampaignFetcher
	logger  *slog.Logger
	now     func() time.Time

	// reconcileMu serializes overlapping Reconcile calls: a call started
	// while one is in flight waits, then performs its own fetch.
	// Last-writer-wins on the full snapshot.
	reconcileMu sync.Mutex

	mu          sync.RWMutex
	snapshot    Snapshot
	subscribers []func(Snapshot)
}

// NewStore creates an empty store over the given fetcher.
func NewStore(fetcher CampaignFetcher, logger *slog.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Subscribe registers a callback invoked after every snapshot replacement,
// including Clear. Callbacks run synchronously; keep them short.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Snapshot returns the current snapshot. Slices are shared and must be
// treated as read-only.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// SetAccount records the connected account and recomputes the per-user
// subset from the current snapshot without refetching.
func (s *Store) SetAccount(account string) {
	s.mu.Lock()
	s.snapshot.Account = account
	s.snapshot.User = filterByOwner(s.snapshot.All, account)
	snap := s.snapshot
	subs := s.subscribers
	s.mu.Unlock()

	notify(subs, snap)
}

// Clear drops all cached campaigns, e.g. on wallet disconnect or an
// unrecoverable chain change.
func (s *Store) Clear() {
	s.mu.Lock()
	s.snapshot = Snapshot{}
	snap := s.snapshot
	subs := s.subscribers
	s.mu.Unlock()

	s.logger.Info("campaign store cleared")
	notify(subs, snap)
}

// Reconcile refreshes the snapshot from the ledger: fetch everything,
// normalize each tuple (dropping malformed ones), partition into active
// and finished, and filter the per-user subset for the current account.
func (s *Store) Reconcile(ctx context.Context) Snapshot {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	start := s.now()
	raws := s.fetcher.FetchAllCampaigns(ctx)

	all := make([]Campaign, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		c, ok := Normalize(raw, int64(i))
		if !ok {
			skipped++
			continue
		}
		all = append(all, c)
	}

	now := s.now()
	active, finished := partition(all, now)

	s.mu.Lock()
	account := s.snapshot.Account
	s.snapshot = Snapshot{
		All:          all,
		Active:       active,
		Finished:     finished,
		User:         filterByOwner(all, account),
		Account:      account,
		ReconciledAt: now,
	}
	snap := s.snapshot
	subs := s.subscribers
	s.mu.Unlock()

	metrics.Reconcile(len(all), time.Since(start))
	s.logger.Info("campaigns reconciled",
		"total", len(all),
		"active", len(active),
		"finished", len(finished),
		"skipped", skipped,
		"duration", time.Since(start),
	)

	notify(subs, snap)
	return snap
}

// Prime seeds the snapshot from a previously persisted campaign set so
// reads work before the first reconcile completes. A snapshot that has
// already been reconciled is never overwritten; partitions are recomputed
// against the current clock, not the one the set was saved under.
func (s *Store) Prime(all []Campaign, reconciledAt time.Time) {
	now := s.now()
	active, finished := partition(all, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.snapshot.ReconciledAt.IsZero() {
		return
	}
	s.snapshot = Snapshot{
		All:          all,
		Active:       active,
		Finished:     finished,
		User:         filterByOwner(all, s.snapshot.Account),
		Account:      s.snapshot.Account,
		ReconciledAt: reconciledAt,
	}
	s.logger.Info("campaign store primed from saved snapshot", "total", len(all))
}

// Lookup finds a campaign by id in the current snapshot.
func (s *Store) Lookup(id int64) (Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.snapshot.All {
		if c.ID == id {
			return c, true
		}
	}
	return Campaign{}, false
}

func partition(all []Campaign, now time.Time) (active, finished []Campaign) {
	for _, c := range all {
		if c.Ended(now) {
			finished = append(finished, c)
		} else {
			active = append(active, c)
		}
	}
	return active, finished
}

func filterByOwner(all []Campaign, account string) []Campaign {
	if account == "" {
		return nil
	}
	var user []Campaign
	for _, c := range all {
		if c.Owner == account {
			user = append(user, c)
		}
	}
	return user
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
