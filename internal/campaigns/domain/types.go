// Package domain contains the business logic for campaign reconciliation
// and the donation/creation transaction workflows.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign is a validated, read-only view over one on-chain campaign
// record. Amounts are human-readable native units (18-decimal fixed point
// converted from wei); Deadline is always Unix seconds.
type Campaign struct {
	ID              int64           `json:"id"`
	Owner           string          `json:"owner"` // lower-cased address
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Target          decimal.Decimal `json:"target"`
	AmountCollected decimal.Decimal `json:"amountCollected"`
	Deadline        int64           `json:"deadline"`
}

// DaysRemaining is the number of whole or partial days until the deadline,
// never negative.
func (c Campaign) DaysRemaining(now time.Time) int64 {
	remainingMs := c.Deadline*1000 - now.UnixMilli()
	if remainingMs <= 0 {
		return 0
	}
	const dayMs = 24 * 60 * 60 * 1000
	return (remainingMs + dayMs - 1) / dayMs // ceil
}

// TargetReached reports whether donations have met or passed the target.
func (c Campaign) TargetReached() bool {
	return c.AmountCollected.GreaterThanOrEqual(c.Target)
}

// Ended reports whether the campaign no longer accepts donations: target
// reached, or deadline passed.
func (c Campaign) Ended(now time.Time) bool {
	return c.TargetReached() || c.DaysRemaining(now) <= 0
}

// PercentFunded is the collected/target ratio as a percentage, capped at
// 100. Zero-target campaigns (pre-validation legacy records) report 100.
func (c Campaign) PercentFunded() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if !c.Target.IsPositive() {
		return hundred
	}
	pct := c.AmountCollected.Div(c.Target).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// Donation is one donator/amount pair, in insertion order as returned by
// the ledger.
type Donation struct {
	Donator  string          `json:"donator"` // lower-cased address
	Donation decimal.Decimal `json:"donation"`
}

// Snapshot is an atomically replaced view of the full campaign set.
// Readers share it between reconciliations; only Reconcile replaces it.
type Snapshot struct {
	All      []Campaign
	Active   []Campaign
	Finished []Campaign
	// User is the subset of All owned by Account (case-insensitive).
	User []Campaign
	// Account is the lower-cased connected account, empty when none.
	Account      string
	ReconciledAt time.Time
}

// CreateInput is the raw user input for a new campaign. Amount and
// deadline arrive as strings and are validated before submission.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Target is a human-readable decimal amount in native units.
	Target string `json:"target"`
	// Deadline is the chosen calendar day (YYYY-MM-DD).
	Deadline string `json:"deadline"`
}

// Receipt is the outcome of a confirmed write.
type Receipt struct {
	TxHash      string `json:"txHash"`
	BlockNumber int64  `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
}
