package models

import "errors"

// Sentinel errors for the staking ledger. Services wrap these with
// fmt.Errorf("...: %w", err) so callers can match with errors.Is.
var (
	// ErrInvalidArgument covers bad duration indices, non-positive amounts,
	// and stake positions out of range for the caller.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied is returned when a non-administrator invokes an
	// administrative operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStakeNotMature is returned when a release is attempted before the
	// stake's maturity time.
	ErrStakeNotMature = errors.New("stake has not matured")

	// ErrAlreadyReleased is returned when a release is attempted on a stake
	// that has already been settled, by either release path.
	ErrAlreadyReleased = errors.New("stake already released")

	// ErrStakingDisabled is returned when stake creation is attempted while
	// staking is disabled. Releases are never gated.
	ErrStakingDisabled = errors.New("staking is disabled")

	// ErrTransferFailed is returned when the external value-transfer service
	// reports failure. The surrounding transaction is rolled back.
	ErrTransferFailed = errors.New("value transfer failed")

	// ErrAccountNotFound is returned when an operation references an account
	// that does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance indicates the ledger would go negative. Reaching
	// it means the balance invariant was already broken elsewhere.
	ErrInsufficientBalance = errors.New("insufficient locked balance")
)
