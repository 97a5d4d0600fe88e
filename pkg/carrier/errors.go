package carrier

import "errors"

var (
	// ErrNoTenantToCapture is returned by Capture when the context has no
	// tenant bound.
	ErrNoTenantToCapture = errors.New("no tenant in context to capture")

	// ErrRestoreFailed is returned when a captured token cannot be turned
	// back into an active tenant context. The unit of work must fail, not
	// run tenantless.
	ErrRestoreFailed = errors.New("tenant context restore failed")

	// ErrTenantNotRunnable is returned when the captured tenant exists but
	// is no longer in a runnable state (suspended or deactivated since
	// capture). Wrapped by ErrRestoreFailed.
	ErrTenantNotRunnable = errors.New("tenant is not runnable")

	// ErrInvalidToken is returned for tokens missing the tenant reference.
	ErrInvalidToken = errors.New("invalid tenant token")
)
