// Package validation provides input validation for campaign submissions.
package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxTitleLen       = 120
	maxDescriptionLen = 4000
)

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	// Check hex characters
	for _, c := range addr[2:] {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return errors.New("invalid address: contains non-hex characters")
		}
	}
	return nil
}

// NormalizeAddress lower-cases an address so owner comparisons are
// case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ValidateTitle validates a campaign title
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title cannot be empty")
	}
	if len(title) > maxTitleLen {
		return errors.New("title too long (max 120 chars)")
	}
	return nil
}

// ValidateDescription validates a campaign description
func ValidateDescription(desc string) error {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return errors.New("description cannot be empty")
	}
	if len(desc) > maxDescriptionLen {
		return errors.New("description too long (max 4000 chars)")
	}
	return nil
}

// ParsePositiveAmount parses a human-readable decimal amount and requires
// it to be strictly positive.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("amount is not a valid decimal")
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("amount must be greater than zero")
	}
	return d, nil
}

// ParseDeadline parses a calendar-day deadline and converts it to a Unix
// timestamp. The deadline must be strictly later than today (date-only
// comparison); the chosen day is normalized to 23:59:59 local time before
// conversion, so a campaign stays open through the whole final day.
//
// Accepted layouts: "2006-01-02" and RFC 3339.
func ParseDeadline(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("deadline cannot be empty")
	}

	var day time.Time
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		day = t
	} else if t, err := time.Parse(time.RFC3339, s); err == nil {
		day = t.In(now.Location())
	} else {
		return 0, errors.New("deadline must be a date (YYYY-MM-DD)")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	chosen := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	if !chosen.After(today) {
		return 0, errors.New("deadline must be later than today")
	}

	endOfDay := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, now.Location())
	return endOfDay.Unix(), nil
}
