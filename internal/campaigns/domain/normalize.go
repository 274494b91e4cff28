package domain

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/etherian3/crowd-fundapp/internal/chain"
	"github.com/etherian3/crowd-fundapp/internal/validation"
)

// weiDecimals is the fixed-point scale of the native currency.
const weiDecimals = 18

// msThreshold separates second-precision deadlines from millisecond ones.
// Stored deadlines arrive in either unit depending on how the campaign was
// created; anything above this bound cannot be a plausible seconds value.
const msThreshold = 9_999_999_999

// Normalize converts one raw on-chain tuple into a validated Campaign.
// It is total over malformed input: any absent or unparseable field makes
// it return (Campaign{}, false) and the caller skips the record. It never
// panics or returns an error.
func Normalize(raw chain.RawCampaign, id int64) (Campaign, bool) {
	owner := validation.NormalizeAddress(raw.Owner)
	if owner == "" || validation.ValidateAddress(owner) != nil {
		return Campaign{}, false
	}
	if strings.TrimSpace(raw.Title) == "" {
		return Campaign{}, false
	}

	target, ok := weiToDecimal(raw.Target)
	if !ok {
		return Campaign{}, false
	}
	collected, ok := weiToDecimal(raw.AmountRaised)
	if !ok {
		return Campaign{}, false
	}

	deadline, err := strconv.ParseInt(strings.TrimSpace(raw.Deadline), 10, 64)
	if err != nil || deadline < 0 {
		return Campaign{}, false
	}
	if deadline > msThreshold {
		deadline /= 1000
	}

	return Campaign{
		ID:              id,
		Owner:           owner,
		Title:           raw.Title,
		Description:     raw.Description,
		Target:          target,
		AmountCollected: collected,
		Deadline:        deadline,
	}, true
}

// NormalizeDonation converts a raw donator/amount pair, skipping
// unparseable entries.
func NormalizeDonation(raw chain.RawDonation) (Donation, bool) {
	donator := validation.NormalizeAddress(raw.Donator)
	if donator == "" {
		return Donation{}, false
	}
	amount, ok := weiToDecimal(raw.Amount)
	if !ok {
		return Donation{}, false
	}
	return Donation{Donator: donator, Donation: amount}, true
}

// weiToDecimal parses a base-unit integer string into a native-unit
// decimal (shift by 18).
func weiToDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	wei, ok := new(big.Int).SetString(s, 10)
	if !ok || wei.Sign() < 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(wei, -weiDecimals), true
}

// DecimalToWei converts a native-unit decimal amount to base units,
// truncating anything below one wei.
func DecimalToWei(d decimal.Decimal) *big.Int {
	return d.Shift(weiDecimals).Truncate(0).BigInt()
}

// WeiToDecimal converts a base-unit amount to native units.
func WeiToDecimal(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}
