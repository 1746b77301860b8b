package domain

import "errors"

var (
	// Validation errors, rejected at the prepare/fulfil boundary.
	ErrSameAccount         = errors.New("payer and payee must differ")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidTransferID   = errors.New("invalid transfer id")
	ErrTransferExpired     = errors.New("transfer expiration has elapsed")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidDecision     = errors.New("invalid fulfil decision")

	// Lookups
	ErrTransferNotFound    = errors.New("transfer not found")
	ErrPositionNotFound    = errors.New("position not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// State errors surfaced by the fulfil handler
	ErrTransferNotReserved = errors.New("transfer is not in RESERVED state")

	// Event errors
	ErrInvalidEvent = errors.New("invalid event")
	ErrDuplicate    = errors.New("event already applied")

	// Preconditions
	ErrMigrationLocked = errors.New("datastore migration lock is engaged")
)

var validationErrors = []error{
	ErrSameAccount,
	ErrInvalidAmount,
	ErrInvalidTransferID,
	ErrTransferExpired,
	ErrParticipantNotFound,
	ErrInvalidDecision,
	ErrInvalidAccountID,
	ErrInvalidCurrency,
	ErrAmountTooLarge,
	ErrAmountPrecision,
	ErrInvalidExpiration,
}

// IsValidationError reports whether err belongs to the validation class of errors.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
