// Package transport provides HTTP request/response types for the
// campaigns domain.
package transport

import (
	"time"

	"github.com/etherian3/crowd-fundapp/internal/campaigns/domain"
)

// CreateRequest is the HTTP request body for creating a campaign.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Deadline    string `json:"deadline"`
}

// ToDomain converts CreateRequest to domain.CreateInput.
func (r CreateRequest) ToDomain() domain.CreateInput {
	return domain.CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Target:      r.Target,
		Deadline:    r.Deadline,
	}
}

// DonateRequest is the HTTP request body for donating to a campaign.
type DonateRequest struct {
	Amount string `json:"amount"`
}

// CampaignResponse is a campaign with its derived display fields. The
// derived fields depend on the render time, so they are computed here
// rather than stored.
type CampaignResponse struct {
	ID              int64  `json:"id"`
	Owner           string `json:"owner"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Target          string `json:"target"`
	AmountCollected string `json:"amountCollected"`
	Deadline        int64  `json:"deadline"`
	DaysRemaining   int64  `json:"daysRemaining"`
	PercentFunded   string `json:"percentFunded"`
	TargetReached   bool   `json:"targetReached"`
	Ended           bool   `json:"ended"`
}

// FromDomain converts a domain.Campaign to its response form.
func FromDomain(c domain.Campaign, now time.Time) CampaignResponse {
	return CampaignResponse{
		ID:              c.ID,
		Owner:           c.Owner,
		Title:           c.Title,
		Description:     c.Description,
		Target:          c.Target.String(),
		AmountCollected: c.AmountCollected.String(),
		Deadline:        c.Deadline,
		DaysRemaining:   c.DaysRemaining(now),
		PercentFunded:   c.PercentFunded().Round(2).String(),
		TargetReached:   c.TargetReached(),
		Ended:           c.Ended(now),
	}
}

// DonationResponse is one donator/amount pair.
type DonationResponse struct {
	Donator  string `json:"donator"`
	Donation string `json:"donation"`
}

// ReceiptResponse is the outcome of a confirmed write.
type ReceiptResponse struct {
	TxHash      string `json:"txHash"`
	BlockNumber int64  `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
}

// SubmissionSummary is one transaction audit log entry.
type SubmissionSummary struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Account     string    `json:"account"`
	CampaignID  int64     `json:"campaignId"`
	Amount      string    `json:"amount,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	Status      string    `json:"status"`
	FailureKind string    `json:"failureKind,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
