package chain

import "errors"

// Sentinel failures raised by the gateway and wallet. Write paths never
// surface these raw; they go through Classify first.
var (
	// ErrNoWallet means no signer is available at all (no keystore, no
	// accounts).
	ErrNoWallet = errors.New("no wallet available")

	// ErrUserRejected means the signer declined to authorize an
	// operation (dismissed prompt, refused passphrase).
	ErrUserRejected = errors.New("user rejected request")

	// ErrNotConnected means a write was attempted before Connect.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrConfirmationTimeout means a transaction was broadcast but not
	// mined within the configured timeout. Its status is unknown, so
	// callers must not retry automatically.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")

	// ErrChainMismatch means the connected node reports a different
	// chain than configured. Treated as an unrecoverable environment
	// change, not something to reconcile around.
	ErrChainMismatch = errors.New("chain id mismatch")
)
