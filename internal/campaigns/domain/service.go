package domain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/etherian3/crowd-fundapp/internal/chain"
	"github.com/etherian3/crowd-fundapp/internal/observability/metrics"
	"github.com/etherian3/crowd-fundapp/internal/validation"
)

// WalletGateway defines the chain operations needed by the campaign
// service beyond what Store and Workflow already consume.
type WalletGateway interface {
	Connect(ctx context.Context) (string, error)
	Disconnect()
	Account() string
	CheckChain(ctx context.Context) error
	FetchDonations(ctx context.Context, campaignID int64) ([]chain.RawDonation, error)
	Balance(ctx context.Context, account string) (*big.Int, error)
	OnEvent(fn func(chain.Event))
}

// WalletStateStore persists the wallet connection flag across restarts.
type WalletStateStore interface {
	SetWalletConnected(ctx context.Context, account string, connected bool) error
	WalletConnected(ctx context.Context) (string, bool, error)
}

// ListFilter selects a subset of the snapshot.
type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterActive   ListFilter = "active"
	FilterFinished ListFilter = "finished"
	FilterMine     ListFilter = "mine"
)

// Status is the operational state reported to clients.
type Status struct {
	Account         string    `json:"account,omitempty"`
	WalletConnected bool      `json:"walletConnected"`
	State           State     `json:"state"`
	LastError       string    `json:"lastError,omitempty"`
	Campaigns       int       `json:"campaigns"`
	ReconciledAt    time.Time `json:"reconciledAt"`
	DonationFloor   string    `json:"donationFloor"`
}

// Service is the campaign service API consumed by transports and the CLI
// client.
type Service interface {
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

type service struct {
	chainGW  WalletGateway
	store    *Store
	workflow *Workflow
	wallet   WalletStateStore
}

// NewService creates the campaign service and subscribes it to gateway
// events: an account change refreshes the user subset, a chain change
// clears the cache until the operator reconnects against the right
// network.
func NewService(gw WalletGateway, store *Store, workflow *Workflow, wallet WalletStateStore) *service {
	s := &service{
		chainGW:  gw,
		store:    store,
		workflow: workflow,
		wallet:   wallet,
	}
	gw.OnEvent(func(ev chain.Event) {
		switch ev.Kind {
		case chain.EventAccountsChanged:
			store.SetAccount(ev.Account)
		case chain.EventChainChanged:
			store.Clear()
		}
	})
	return s
}

// Connect unlocks the wallet, records the account and reconciles so the
// per-user subset is immediately correct.
func (s *service) Connect(ctx context.Context) (string, error) {
	account, err := s.chainGW.Connect(ctx)
	if err != nil {
		metrics.WalletConnect("error")
		return "", chain.Classify(err)
	}
	metrics.WalletConnect("success")

	s.store.SetAccount(account)
	s.store.Reconcile(ctx)
	s.setConnectedFlag(ctx, account, true)
	return account, nil
}

// Disconnect forgets the account and drops the per-user subset. The
// shared campaign list stays served.
func (s *service) Disconnect(ctx context.Context) {
	account := s.chainGW.Account()
	s.chainGW.Disconnect()
	s.store.SetAccount("")
	s.setConnectedFlag(ctx, account, false)
}

// RestoreConnection re-establishes a previously persisted wallet session.
// Used at startup; a failure is not fatal, the service starts
// disconnected.
func (s *service) RestoreConnection(ctx context.Context) (string, error) {
	if s.wallet == nil {
		return "", nil
	}
	_, connected, err := s.wallet.WalletConnected(ctx)
	if err != nil || !connected {
		return "", err
	}
	return s.Connect(ctx)
}

// List returns the filtered campaign subset from the current snapshot.
// Reads never touch the node.
func (s *service) List(ctx context.Context, filter ListFilter) ([]Campaign, error) {
	snap := s.store.Snapshot()
	switch filter {
	case FilterActive:
		return snap.Active, nil
	case FilterFinished:
		return snap.Finished, nil
	case FilterMine:
		if snap.Account == "" {
			return nil, chain.Classify(chain.ErrNotConnected)
		}
		return snap.User, nil
	case FilterAll, "":
		return snap.All, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, filter)
	}
}

// Get returns one campaign by its ledger index.
func (s *service) Get(ctx context.Context, id int64) (Campaign, error) {
	c, ok := s.store.Lookup(id)
	if !ok {
		return Campaign{}, fmt.Errorf("%w: id %d", ErrCampaignNotFound, id)
	}
	return c, nil
}

// Donations returns the donator/amount pairs for a campaign. Unlike the
// campaign list this read goes to the node directly; when it fails the
// caller gets ErrDonatorsUnavailable rather than fabricated data.
func (s *service) Donations(ctx context.Context, id int64) ([]Donation, error) {
	if _, ok := s.store.Lookup(id); !ok {
		return nil, fmt.Errorf("%w: id %d", ErrCampaignNotFound, id)
	}
	raws, err := s.chainGW.FetchDonations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDonatorsUnavailable, err)
	}
	donations := make([]Donation, 0, len(raws))
	for _, raw := range raws {
		d, ok := NormalizeDonation(raw)
		if !ok {
			continue
		}
		donations = append(donations, d)
	}
	return donations, nil
}

// Refresh forces a reconciliation and returns the fresh snapshot.
func (s *service) Refresh(ctx context.Context) (Snapshot, error) {
	return s.store.Reconcile(ctx), nil
}

// Create runs the campaign creation workflow.
func (s *service) Create(ctx context.Context, in CreateInput) (Receipt, error) {
	return s.workflow.CreateCampaign(ctx, in)
}

// Donate runs the donation workflow.
func (s *service) Donate(ctx context.Context, id int64, amount string) (Receipt, error) {
	return s.workflow.Donate(ctx, id, amount)
}

// Balance returns the connected account's balance in native units.
func (s *service) Balance(ctx context.Context) (string, error) {
	account := s.chainGW.Account()
	if account == "" {
		return "", chain.Classify(chain.ErrNotConnected)
	}
	wei, err := s.chainGW.Balance(ctx, account)
	if err != nil {
		return "", chain.Classify(err)
	}
	return WeiToDecimal(wei).String(), nil
}

// Status reports the wallet, workflow and snapshot state.
func (s *service) Status(ctx context.Context) Status {
	snap := s.store.Snapshot()
	state, lastErr := s.workflow.Status()

	st := Status{
		Account:         snap.Account,
		WalletConnected: snap.Account != "",
		State:           state,
		Campaigns:       len(snap.All),
		ReconciledAt:    snap.ReconciledAt,
		DonationFloor:   s.workflow.Floor().String(),
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

func (s *service) setConnectedFlag(ctx context.Context, account string, connected bool) {
	if s.wallet == nil {
		return
	}
	_ = s.wallet.SetWalletConnected(ctx, validation.NormalizeAddress(account), connected)
}
