package domain

import "errors"

// Input-tier failures. These are rejected before anything is signed or
// sent, so they are distinct from the classified transaction failures in
// the chain package.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrCampaignEnded       = errors.New("campaign has ended")
	ErrBelowMinimum        = errors.New("donation below minimum")
	ErrDonatorsUnavailable = errors.New("donator details unavailable")
)
