package chain

import (
	"context"
	"errors"
	"strings"
)

// Kind is the closed taxonomy of user-facing failure categories.
type Kind string

const (
	KindUserRejected        Kind = "user_rejected"
	KindWalletNotConnected  Kind = "wallet_not_connected"
	KindInsufficientGas     Kind = "insufficient_gas"
	KindContractReverted    Kind = "contract_reverted"
	KindNetworkError        Kind = "network_error"
	KindConfirmationTimeout Kind = "confirmation_timeout"
	KindUnknown             Kind = "unknown"
)

// Classified is the user-facing view of a raw failure.
type Classified struct {
	Kind Kind
	// Reason carries the revert reason when the ledger supplied one.
	Reason      string
	UserMessage string
}

// Error implements the error interface so classified failures can flow
// through normal error returns.
func (c *Classified) Error() string {
	if c.Reason != "" {
		return string(c.Kind) + ": " + c.Reason
	}
	return string(c.Kind)
}

// Retryable reports whether a retry is a sensible suggestion. Timeouts are
// excluded: the transaction may still be mined, and retrying risks a
// double-submission.
func (c *Classified) Retryable() bool {
	switch c.Kind {
	case KindNetworkError, KindInsufficientGas, KindUnknown:
		return true
	}
	return false
}

// rpcError matches go-ethereum's rpc.Error without importing it here.
type rpcError interface {
	Error() string
	ErrorCode() int
}

// EIP-1193 user rejection code, forwarded by browser wallets and
// wallet-connect style signers.
const codeUserRejected = 4001

var userRejectedPhrases = []string{
	"user rejected",
	"user denied",
	"action_rejected",
	"request rejected",
}

var gasPhrases = []string{
	"insufficient funds",
	"gas required exceeds allowance",
	"intrinsic gas too low",
	"max fee per gas less than block base fee",
	"transaction underpriced",
	"fee cap",
}

var networkPhrases = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"dial tcp",
	"websocket",
	"eof",
	"503",
	"too many requests",
}

const revertMarker = "execution reverted"

// Classify maps a raw failure to the closed taxonomy. Matching order
// matters: raw messages can contain several matching substrings (a revert
// message may mention gas, a network error may mention a request), so more
// specific causes are checked first.
func Classify(err error) *Classified {
	if err == nil {
		return nil
	}

	// Already classified errors pass through unchanged.
	var c *Classified
	if errors.As(err, &c) {
		return c
	}

	// Sentinels carry their own kind regardless of message text.
	switch {
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrNoWallet):
		return &Classified{
			Kind:        KindWalletNotConnected,
			UserMessage: "No wallet connected. Connect a wallet and try again.",
		}
	case errors.Is(err, ErrUserRejected):
		return &Classified{
			Kind:        KindUserRejected,
			UserMessage: "Request cancelled in wallet.",
		}
	case errors.Is(err, ErrConfirmationTimeout):
		return &Classified{
			Kind:        KindConfirmationTimeout,
			UserMessage: "Transaction sent but not yet confirmed. Check its status before retrying.",
		}
	case errors.Is(err, ErrChainMismatch):
		return &Classified{
			Kind:        KindNetworkError,
			UserMessage: "Connected to the wrong network. Switch networks and reload.",
		}
	}

	msg := strings.ToLower(err.Error())

	// 1. Explicit user rejection, by code or phrase.
	var rpcErr rpcError
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return &Classified{
			Kind:        KindUserRejected,
			UserMessage: "Request cancelled in wallet.",
		}
	}
	if containsAny(msg, userRejectedPhrases) {
		return &Classified{
			Kind:        KindUserRejected,
			UserMessage: "Request cancelled in wallet.",
		}
	}

	// 2. Gas and fee problems.
	if containsAny(msg, gasPhrases) {
		return &Classified{
			Kind:        KindInsufficientGas,
			UserMessage: "Not enough funds to cover the network fee. Top up or wait for lower fees.",
		}
	}

	// 3. Reverted execution, with optional trailing reason.
	if idx := strings.Index(msg, revertMarker); idx >= 0 {
		reason := revertReason(err.Error(), idx)
		userMsg := "The contract rejected the transaction."
		if reason != "" {
			userMsg = "The contract rejected the transaction: " + reason
		}
		return &Classified{
			Kind:        KindContractReverted,
			Reason:      reason,
			UserMessage: userMsg,
		}
	}

	// 4. Connectivity.
	if errors.Is(err, context.DeadlineExceeded) || containsAny(msg, networkPhrases) {
		return &Classified{
			Kind:        KindNetworkError,
			UserMessage: "Network problem talking to the ledger. Please retry.",
		}
	}

	// 5. Everything else.
	return &Classified{
		Kind:        KindUnknown,
		UserMessage: "Something went wrong. Please try again.",
	}
}

// revertReason extracts the reason text following "execution reverted" in
// the original (non-lowercased) message, if any.
func revertReason(original string, idx int) string {
	rest := original[idx+len(revertMarker):]
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimSpace(rest)
	// Some providers wrap the reason in quotes or append JSON noise.
	rest = strings.Trim(rest, `"'`)
	if i := strings.IndexAny(rest, "{}\n"); i >= 0 {
		rest = strings.TrimSpace(rest[:i])
	}
	return rest
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
