package lifecycle

import "errors"

var (
	// ErrStoreNil is returned when a manager is constructed without a directory store.
	ErrStoreNil = errors.New("directory store cannot be nil")

	// ErrInvalidTransition is returned for lifecycle transitions the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid tenant status transition")

	// ErrProvisionFailed wraps a provisioning callback failure. The tenant
	// row and everything the callback wrote are rolled back together.
	ErrProvisionFailed = errors.New("tenant provisioning failed")

	// ErrGrantInvalid is returned for impersonation grants that fail
	// signature or claim validation.
	ErrGrantInvalid = errors.New("impersonation grant is invalid")

	// ErrGrantUsed is returned when a grant's jti has already been redeemed.
	ErrGrantUsed = errors.New("impersonation grant already used")

	// ErrSecretMissing is returned when an impersonator is built without a
	// signing secret.
	ErrSecretMissing = errors.New("impersonation signing secret required")
)
