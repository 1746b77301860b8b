package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAccountID  = errors.New("invalid account id")
	ErrInvalidCurrency   = errors.New("invalid currency code")
	ErrAmountTooLarge    = errors.New("amount exceeds maximum allowed")
	ErrAmountPrecision   = errors.New("amount has too many decimal places")
	ErrInvalidExpiration = errors.New("invalid expiration")
)

// Validation constants
const (
	MaxAccountIDLength = 128
	MaxTransferAmount  = "1000000000000" // 1 trillion
	MaxAmountScale     = 4
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "TRY": true, "HKD": true, "XOF": true,
	"XAF": true, "KES": true, "UGX": true, "TZS": true,
	"RWF": true, "ZMW": true, "GHS": true, "NGN": true,
	"PHP": true, "BDT": true, "PKR": true, "MMK": true,
}

var accountIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// ValidateTransferID checks that id is a canonical UUID.
func ValidateTransferID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTransferID, id)
	}
	return nil
}

// ValidateAccountID validates a participant account id.
func ValidateAccountID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidAccountID)
	}

	if len(id) > MaxAccountIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidAccountID, MaxAccountIDLength)
	}

	if !accountIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %s", ErrInvalidAccountID, id)
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return fmt.Errorf("%w: %s is not a supported ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateAmount validates a transfer amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: at most %d allowed", ErrAmountPrecision, MaxAmountScale)
	}

	maxAmount, _ := decimal.NewFromString(MaxTransferAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxTransferAmount)
	}

	return nil
}

// ValidateExpiration checks that the expiry has not already elapsed at now.
func ValidateExpiration(expiresAt, now time.Time) error {
	if expiresAt.IsZero() {
		return fmt.Errorf("%w: expiration is required", ErrInvalidExpiration)
	}

	if !expiresAt.After(now) {
		return fmt.Errorf("%w: %s", ErrTransferExpired, expiresAt.Format(time.RFC3339))
	}

	return nil
}

// ValidateTransfer runs every schema check on a transfer request.
func ValidateTransfer(t *Transfer, now time.Time) error {
	if err := ValidateTransferID(t.ID); err != nil {
		return err
	}
	if err := ValidateAccountID(t.PayerID); err != nil {
		return err
	}
	if err := ValidateAccountID(t.PayeeID); err != nil {
		return err
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return ValidateExpiration(t.ExpiresAt, now)
}
