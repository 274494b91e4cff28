//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/etherian3/crowd-fundapp/internal/chain"
	"github.com/etherian3/crowd-fundapp/internal/config"
	"github.com/etherian3/crowd-fundapp/internal/server"
	"github.com/etherian3/crowd-fundapp/internal/storage"
	"github.com/etherian3/crowd-fundapp/pkg/client"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// testAccount is the first default Anvil/Hardhat dev account.
	testAccount  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	otherAccount = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	testChainID = 31337
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Store             storage.Store
	Ledger            *fakeLedger
	Node              *fakeNode
}

// setupPostgres starts a Postgres container and returns the connection string
func setupPostgres(ctx context.Context, t *testing.T) (*postgres.PostgresContainer, string) {
	container, connStr, err := setupPostgresE(ctx)
	if err != nil {
		t.Fatalf("Failed to start postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})
	return container, connStr
}

// setupPostgresE starts a Postgres container and returns the connection string (error-returning variant for TestMain)
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("crowdfund"),
		postgres.WithUsername("crowdfund"),
		postgres.WithPassword("crowdfund"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// campaignRow mirrors the CrowdFund campaign tuple layout.
type campaignRow struct {
	Owner        common.Address
	Title        string
	Description  string
	Target       *big.Int
	Deadline     *big.Int
	AmountRaised *big.Int
}

// fakeNode is an in-memory substitute for the RPC node. Every transaction
// the ledger accepts is mined into its own block and gets a successful
// receipt immediately.
type fakeNode struct {
	mu       sync.Mutex
	chainID  *big.Int
	balance  *big.Int
	head     uint64
	receipts map[common.Hash]*types.Receipt
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		chainID:  big.NewInt(testChainID),
		balance:  eth("10"),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeNode) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, nil
}

func (f *fakeNode) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeNode) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("receipt not found")
}

func (f *fakeNode) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(f.head)}, nil
}

func (f *fakeNode) setBalance(wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = wei
}

// mine records a successful receipt for the transaction in a fresh block.
func (f *fakeNode) mine(txHash common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head++
	f.receipts[txHash] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockNumber: new(big.Int).SetUint64(f.head),
		GasUsed:     52340,
	}
}

// fakeLedger is an in-memory CrowdFund contract. Writes mutate its state
// the way the Solidity contract would, so a reconcile after a confirmed
// transaction observes the new balance or campaign.
type fakeLedger struct {
	mu        sync.Mutex
	node      *fakeNode
	campaigns []campaignRow
	donators  map[int64][]common.Address
	amounts   map[int64][]*big.Int
	nonce     uint64

	callErr     error
	transactErr error
}

func newFakeLedger(node *fakeNode) *fakeLedger {
	return &fakeLedger{
		node:     node,
		donators: make(map[int64][]common.Address),
		amounts:  make(map[int64][]*big.Int),
	}
}

func (f *fakeLedger) Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return f.callErr
	}
	switch method {
	case "getCampaigns":
		rows := make([]campaignRow, len(f.campaigns))
		copy(rows, f.campaigns)
		*results = []interface{}{rows}
	case "getDonators":
		id := params[0].(*big.Int).Int64()
		*results = []interface{}{
			append([]common.Address(nil), f.donators[id]...),
			append([]*big.Int(nil), f.amounts[id]...),
		}
	case "numberOfCampaigns":
		*results = []interface{}{big.NewInt(int64(len(f.campaigns)))}
	}
	return nil
}

func (f *fakeLedger) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transactErr != nil {
		return nil, f.transactErr
	}

	switch method {
	case "createCampaign":
		f.campaigns = append(f.campaigns, campaignRow{
			Owner:        params[0].(common.Address),
			Title:        params[1].(string),
			Description:  params[2].(string),
			Target:       params[3].(*big.Int),
			Deadline:     params[4].(*big.Int),
			AmountRaised: big.NewInt(0),
		})
	case "donateToCampaign":
		id := params[0].(*big.Int).Int64()
		if id < 0 || id >= int64(len(f.campaigns)) {
			return nil, fmt.Errorf("execution reverted: campaign does not exist")
		}
		row := &f.campaigns[id]
		row.AmountRaised = new(big.Int).Add(row.AmountRaised, opts.Value)
		f.donators[id] = append(f.donators[id], opts.From)
		f.amounts[id] = append(f.amounts[id], new(big.Int).Set(opts.Value))
	default:
		return nil, fmt.Errorf("unknown method %s", method)
	}

	f.nonce++
	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    f.nonce,
		To:       &to,
		Value:    opts.Value,
		Gas:      210000,
		GasPrice: big.NewInt(1),
	})
	f.node.mine(tx.Hash())
	return tx, nil
}

func (f *fakeLedger) setCallErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callErr = err
}

func (f *fakeLedger) setTransactErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactErr = err
}

// fakeWallet is a signer that always authorizes the configured account.
type fakeWallet struct {
	account string
	err     error
}

func (f *fakeWallet) RequestAccount(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.account, nil
}

func (f *fakeWallet) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: common.HexToAddress(f.account), Context: ctx}, nil
}

func (f *fakeWallet) Disconnect() {}

// newFakeChain seeds a ledger with the standard fixture: one open
// campaign with two donations, one fully funded and one past deadline.
func newFakeChain() (*fakeLedger, *fakeNode) {
	node := newFakeNode()
	ledger := newFakeLedger(node)

	now := time.Now()
	ledger.campaigns = []campaignRow{
		{
			Owner:        common.HexToAddress(testAccount),
			Title:        "Clean Water for Kelo",
			Description:  "Drill a well for the village of Kelo",
			Target:       eth("5"),
			Deadline:     big.NewInt(now.AddDate(0, 0, 30).Unix()),
			AmountRaised: eth("1.25"),
		},
		{
			Owner:        common.HexToAddress(otherAccount),
			Title:        "Library Roof",
			Description:  "Replace the leaking roof before winter",
			Target:       eth("2"),
			Deadline:     big.NewInt(now.AddDate(0, 0, 14).Unix()),
			AmountRaised: eth("2"),
		},
		{
			Owner:        common.HexToAddress(otherAccount),
			Title:        "Community Garden",
			Description:  "Tools and seeds for the spring planting",
			Target:       eth("1"),
			Deadline:     big.NewInt(now.AddDate(0, 0, -3).Unix()),
			AmountRaised: eth("0.4"),
		},
	}
	ledger.donators[0] = []common.Address{
		common.HexToAddress(otherAccount),
		common.HexToAddress(testAccount),
	}
	ledger.amounts[0] = []*big.Int{eth("1"), eth("0.25")}

	return ledger, node
}

// eth converts a native-unit decimal string to wei.
func eth(v string) *big.Int {
	return decimal.RequireFromString(v).Shift(18).BigInt()
}

// startServer starts the crowdfund server in-process over a fake chain backend
func startServer(t *testing.T, connString string, ledger *fakeLedger, node *fakeNode, wallet chain.Wallet) (*httptest.Server, storage.Store) {
	server, store, err := startServerE(connString, ledger, node, wallet)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})
	return server, store
}

// startServerE starts the crowdfund server in-process (error-returning variant for TestMain)
func startServerE(connString string, ledger *fakeLedger, node *fakeNode, wallet chain.Wallet) (*httptest.Server, storage.Store, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Chain: config.ChainConfig{
			ContractAddress:     "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			ChainID:             testChainID,
			Confirmations:       1,
			ConfirmationTimeout: 5 * time.Second,
			DonationFloor:       "0.0001",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Auth:      config.AuthConfig{Type: "api-key"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{MaxBodySizeMB: 10},
		Proxy:     config.ProxyConfig{TrustProxy: false},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if wallet == nil {
		wallet = &fakeWallet{account: testAccount}
	}
	gateway := chain.NewWithBackend(cfg.Chain, wallet, ledger, node, logger)

	srv := server.NewWithGateway(cfg, store, gateway, logger)

	testServer := httptest.NewServer(srv.Handler())

	return testServer, store, nil
}

// newClient creates a new API client for the test server
func newClient(testServer *httptest.Server, apiKey string) *client.Client {
	return client.New(testServer.URL, apiKey)
}

// createTestAPIKey creates a test API key using the store directly
func createTestAPIKey(t *testing.T, store storage.Store, name string) string {
	key, err := store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// assertHTTPError asserts that an error is an APIError with the expected code
func assertHTTPError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	require.Error(t, err, "Expected an error")
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok, "Error should be an APIError")
	require.Equal(t, expectedCode, apiErr.Code, "Error code mismatch")
}

// getErrorCode extracts the error code from an API error
func getErrorCode(err error) string {
	if apiErr, ok := err.(*client.APIError); ok {
		return apiErr.Code
	}
	return ""
}
