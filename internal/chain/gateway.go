// Package chain is the single point of contact with the external CrowdFund
// ledger: a read-only provider for queries and a lazily obtained signer for
// state-changing calls.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/etherian3/crowd-fundapp/internal/config"
)

// RawCampaign is one on-chain campaign tuple before normalization. Numeric
// fields are carried as decimal strings (wei amounts, unix deadline) so the
// normalizer can treat malformed data as skippable instead of panicking on
// nil big.Ints.
type RawCampaign struct {
	Owner        string
	Title        string
	Description  string
	Target       string
	Deadline     string
	AmountRaised string
}

// RawDonation is one donator/amount pair as returned by the ledger.
type RawDonation struct {
	Donator string
	Amount  string // wei, decimal string
}

// EventKind identifies a wallet/environment notification.
type EventKind string

const (
	// EventAccountsChanged fires when the connected account changes,
	// including connect and disconnect.
	EventAccountsChanged EventKind = "accounts_changed"
	// EventChainChanged fires when the node reports an unexpected chain.
	// Consumers should clear derived state, not reconcile.
	EventChainChanged EventKind = "chain_changed"
)

// Event is a gateway notification delivered to registered handlers.
type Event struct {
	Kind    EventKind
	Account string // lower-cased, empty on disconnect
	ChainID int64
}

// NodeBackend is the subset of ethclient.Client the gateway needs beyond
// contract calls.
type NodeBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Gateway wraps the wallet connection and the read-only provider.
type Gateway struct {
	cfg      config.ChainConfig
	wallet   Wallet
	contract Contract
	node     NodeBackend
	logger   *slog.Logger

	// mu guards account and handlers; Connect and writes run on
	// concurrent request goroutines.
	mu       sync.RWMutex
	account  string // lower-cased; empty until Connect
	handlers []func(Event)

	// receiptPollInterval is shortened in tests.
	receiptPollInterval time.Duration
}

// New dials the configured RPC endpoint and binds the CrowdFund contract.
func New(cfg config.ChainConfig, wallet Wallet, logger *slog.Logger) (*Gateway, error) {
	if cfg.ContractAddress == "" {
		return nil, errors.New("contract address not configured")
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc endpoint: %w", err)
	}

	contract, err := newBoundCrowdFund(common.HexToAddress(cfg.ContractAddress), client)
	if err != nil {
		return nil, err
	}

	return NewWithBackend(cfg, wallet, contract, client, logger), nil
}

// NewWithBackend wires a gateway over explicit contract and node backends.
// Production goes through New; tests and the e2e harness inject fakes here.
func NewWithBackend(cfg config.ChainConfig, wallet Wallet, contract Contract, node NodeBackend, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:                 cfg,
		wallet:              wallet,
		contract:            contract,
		node:                node,
		logger:              logger,
		receiptPollInterval: 2 * time.Second,
	}
}

// OnEvent registers a handler for wallet/environment notifications.
// Handlers run synchronously on the goroutine that triggered the event.
func (g *Gateway) OnEvent(fn func(Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, fn)
}

func (g *Gateway) emit(ev Event) {
	g.mu.RLock()
	handlers := g.handlers
	g.mu.RUnlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// Connect requests account access from the wallet and returns the
// lower-cased primary account address.
func (g *Gateway) Connect(ctx context.Context) (string, error) {
	if err := g.CheckChain(ctx); err != nil {
		return "", err
	}

	addr, err := g.wallet.RequestAccount(ctx)
	if err != nil {
		return "", err
	}

	account := strings.ToLower(addr)
	g.mu.Lock()
	g.account = account
	g.mu.Unlock()

	g.emit(Event{Kind: EventAccountsChanged, Account: account, ChainID: g.cfg.ChainID})
	g.logger.Info("wallet connected", "account", account)
	return account, nil
}

// Disconnect releases the wallet authorization and notifies subscribers.
func (g *Gateway) Disconnect() {
	g.wallet.Disconnect()
	g.mu.Lock()
	g.account = ""
	g.mu.Unlock()

	g.emit(Event{Kind: EventAccountsChanged, Account: "", ChainID: g.cfg.ChainID})
	g.logger.Info("wallet disconnected")
}

// Account returns the connected account, or empty when not connected.
func (g *Gateway) Account() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.account
}

// CheckChain verifies the node still serves the configured chain. A
// mismatch is an unrecoverable environment change: subscribers are told to
// clear, and ErrChainMismatch is returned.
func (g *Gateway) CheckChain(ctx context.Context) error {
	if g.cfg.ChainID == 0 {
		return nil
	}
	id, err := g.node.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("querying chain id: %w", err)
	}
	if id.Int64() != g.cfg.ChainID {
		g.logger.Error("chain id mismatch", "want", g.cfg.ChainID, "got", id.Int64())
		g.emit(Event{Kind: EventChainChanged, ChainID: id.Int64()})
		return fmt.Errorf("%w: want %d, got %d", ErrChainMismatch, g.cfg.ChainID, id.Int64())
	}
	return nil
}

// FetchAllCampaigns returns the full raw campaign list. It never fails:
// reads back passive UI, so any failure degrades to an empty sequence with
// the cause logged.
func (g *Gateway) FetchAllCampaigns(ctx context.Context) []RawCampaign {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := g.contract.Call(opts, &out, "getCampaigns"); err != nil {
		g.logger.Error("fetching campaigns failed", "error", err)
		return nil
	}
	if len(out) == 0 {
		return nil
	}

	tuples := *abi.ConvertType(out[0], new([]campaignTuple)).(*[]campaignTuple)

	raws := make([]RawCampaign, 0, len(tuples))
	for _, t := range tuples {
		raws = append(raws, RawCampaign{
			Owner:        t.Owner.Hex(),
			Title:        t.Title,
			Description:  t.Description,
			Target:       bigString(t.Target),
			Deadline:     bigString(t.Deadline),
			AmountRaised: bigString(t.AmountRaised),
		})
	}
	return raws
}

// FetchDonations returns the donation list for one campaign. Unlike the
// campaign list, the error is reported to the caller so the service layer
// can distinguish "no donations" from "donor detail unavailable".
func (g *Gateway) FetchDonations(ctx context.Context, campaignID int64) ([]RawDonation, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := g.contract.Call(opts, &out, "getDonators", big.NewInt(campaignID)); err != nil {
		g.logger.Error("fetching donations failed", "campaign", campaignID, "error", err)
		return nil, err
	}
	if len(out) < 2 {
		return nil, nil
	}

	donators := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	amounts := *abi.ConvertType(out[1], new([]*big.Int)).(*[]*big.Int)

	n := len(donators)
	if len(amounts) < n {
		// Parallel arrays should match; trust the shorter one.
		g.logger.Warn("donator/amount length mismatch", "campaign", campaignID,
			"donators", len(donators), "amounts", len(amounts))
		n = len(amounts)
	}

	donations := make([]RawDonation, 0, n)
	for i := 0; i < n; i++ {
		donations = append(donations, RawDonation{
			Donator: donators[i].Hex(),
			Amount:  bigString(amounts[i]),
		})
	}
	return donations, nil
}

// SubmitCreateCampaign encodes and sends the createCampaign call.
func (g *Gateway) SubmitCreateCampaign(ctx context.Context, owner, title, description string, targetWei *big.Int, deadlineUnix int64) (*types.Transaction, error) {
	opts, err := g.transactor(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := g.contract.Transact(opts, "createCampaign",
		common.HexToAddress(owner), title, description, targetWei, big.NewInt(deadlineUnix))
	if err != nil {
		return nil, err
	}
	g.logger.Info("create campaign submitted", "tx", tx.Hash().Hex(), "owner", owner)
	return tx, nil
}

// SubmitDonate sends the payable donateToCampaign call with amountWei
// attached as value.
func (g *Gateway) SubmitDonate(ctx context.Context, campaignID int64, amountWei *big.Int) (*types.Transaction, error) {
	opts, err := g.transactor(ctx)
	if err != nil {
		return nil, err
	}
	opts.Value = amountWei
	tx, err := g.contract.Transact(opts, "donateToCampaign", big.NewInt(campaignID))
	if err != nil {
		return nil, err
	}
	g.logger.Info("donation submitted", "tx", tx.Hash().Hex(), "campaign", campaignID)
	return tx, nil
}

// AwaitConfirmation blocks until the transaction has the required number of
// confirmations or the configured timeout elapses. Timeout and revert are
// distinct failures: a timed-out transaction may still land, so callers
// must not resubmit automatically.
func (g *Gateway) AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error) {
	if confirmations == 0 {
		confirmations = 1
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.ConfirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(g.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.node.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, fmt.Errorf("execution reverted (tx %s)", tx.Hash().Hex())
			}
			confirmed, err := g.hasConfirmations(ctx, receipt, confirmations)
			if err == nil && confirmed {
				return receipt, nil
			}
		} else if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			g.logger.Debug("receipt not available yet", "tx", tx.Hash().Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: tx %s after %s", ErrConfirmationTimeout, tx.Hash().Hex(), g.cfg.ConfirmationTimeout)
		case <-ticker.C:
		}
	}
}

// Balance returns the account balance in wei. Best-effort: callers use it
// as a hint, the ledger remains authoritative.
func (g *Gateway) Balance(ctx context.Context, account string) (*big.Int, error) {
	return g.node.BalanceAt(ctx, common.HexToAddress(account), nil)
}

func (g *Gateway) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if g.Account() == "" {
		return nil, ErrNotConnected
	}
	return g.wallet.Transactor(ctx, big.NewInt(g.cfg.ChainID))
}

func (g *Gateway) hasConfirmations(ctx context.Context, receipt *types.Receipt, confirmations uint64) (bool, error) {
	if confirmations <= 1 {
		return true, nil
	}
	head, err := g.node.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, err
	}
	mined := receipt.BlockNumber.Uint64()
	return head.Number.Uint64() >= mined+confirmations-1, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
