package chain

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/etherian3/crowd-fundapp/internal/config"
)

// Wallet is the signing collaborator behind the gateway. Implementations
// may be interactive (remote signer prompting the user) or headless (local
// keystore); either way a refusal surfaces as ErrUserRejected and a missing
// signer as ErrNoWallet.
type Wallet interface {
	// RequestAccount authorizes access and returns the primary account
	// address (mixed case, as stored).
	RequestAccount(ctx context.Context) (string, error)

	// Transactor returns signing options for state-changing calls on the
	// given chain. Obtained lazily, only when a write is about to occur.
	Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)

	// Disconnect releases the account authorization.
	Disconnect()
}

// KeystoreWallet signs with a local encrypted keystore, the headless
// equivalent of a browser wallet extension.
type KeystoreWallet struct {
	ks  *keystore.KeyStore
	cfg config.WalletConfig

	mu      sync.Mutex
	account accounts.Account
}

// NewKeystoreWallet opens the keystore directory from config. The directory
// may be empty; the missing-account case is reported at RequestAccount time
// so passive reads keep working without a signer.
func NewKeystoreWallet(cfg config.WalletConfig) *KeystoreWallet {
	ks := keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	return &KeystoreWallet{ks: ks, cfg: cfg}
}

// RequestAccount selects and unlocks the configured account, or the first
// account when none is configured.
func (w *KeystoreWallet) RequestAccount(ctx context.Context) (string, error) {
	accts := w.ks.Accounts()
	if len(accts) == 0 {
		return "", ErrNoWallet
	}

	acct := accts[0]
	if w.cfg.Account != "" {
		want := common.HexToAddress(w.cfg.Account)
		found := false
		for _, a := range accts {
			if a.Address == want {
				acct = a
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: account %s not in keystore", ErrNoWallet, w.cfg.Account)
		}
	}

	pass, err := w.passphrase()
	if err != nil {
		return "", err
	}
	if err := w.ks.Unlock(acct, pass); err != nil {
		// A failed or refused passphrase is the headless analog of the
		// user dismissing the wallet prompt.
		return "", fmt.Errorf("%w: %v", ErrUserRejected, err)
	}

	w.mu.Lock()
	w.account = acct
	w.mu.Unlock()
	return acct.Address.Hex(), nil
}

// Transactor returns keystore-backed signing options.
func (w *KeystoreWallet) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	w.mu.Lock()
	acct := w.account
	w.mu.Unlock()
	if (acct == accounts.Account{}) {
		return nil, ErrNotConnected
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(w.ks, acct, chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Disconnect locks the account again.
func (w *KeystoreWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if (w.account != accounts.Account{}) {
		_ = w.ks.Lock(w.account.Address)
		w.account = accounts.Account{}
	}
}

func (w *KeystoreWallet) passphrase() (string, error) {
	if w.cfg.PassphraseFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(w.cfg.PassphraseFile)
	if err != nil {
		return "", fmt.Errorf("reading passphrase file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
