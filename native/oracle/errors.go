package oracle

import "errors"

var (
	// ErrNotInitialised is returned when an operation runs before the broker
	// genesis state has been written.
	ErrNotInitialised = errors.New("oracle: global state not initialised")
	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("oracle: unauthorized")
	// ErrPaymentRequired is returned when the submitted payment does not
	// exactly match the current fee.
	ErrPaymentRequired = errors.New("oracle: payment required")
	// ErrInvalidValidPeriod is returned when the requested validity window
	// falls outside the configured bounds.
	ErrInvalidValidPeriod = errors.New("oracle: valid period out of bounds")
	// ErrRequestNotFound is returned when no pending entry exists for the id.
	ErrRequestNotFound = errors.New("oracle: request not found")
	// ErrRequestExpired is returned by Fulfill after an expired request has
	// been refunded and retired. Callers must not read it as "nothing
	// happened": the refund and retirement have already been applied.
	ErrRequestExpired = errors.New("oracle: request expired")
	// ErrRequestNotExpired is returned by ClearExpired on a live request.
	ErrRequestNotExpired = errors.New("oracle: request not expired")
	// ErrInsufficientFunds is returned when the broker vault balance cannot
	// cover a required refund, or a submitter cannot cover the fee.
	ErrInsufficientFunds = errors.New("oracle: insufficient funds")
	// ErrBelowSubsistence is returned when a transfer would leave the
	// recipient below the minimum-existence threshold.
	ErrBelowSubsistence = errors.New("oracle: recipient below subsistence threshold")
	// ErrTransferFailed is returned for any other host-level transfer
	// failure.
	ErrTransferFailed = errors.New("oracle: transfer failed")
	// ErrCallbackFailed is returned when the cross-contract delivery call
	// fails. The request stays in the ledger so the oracle can retry.
	ErrCallbackFailed = errors.New("oracle: callback execution failed")
	// ErrRequestIDExhausted is returned in saturating counter mode once the
	// id space is used up.
	ErrRequestIDExhausted = errors.New("oracle: request id space exhausted")
)
