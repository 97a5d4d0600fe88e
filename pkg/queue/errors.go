package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrInvalidPriority is returned when priority is outside valid range.
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrNoTenantForTask is returned when a task is enqueued without a
	// tenant bound in the context and without an explicit ForTenant or
	// WithoutTenant declaration. Work never silently loses its tenant.
	ErrNoTenantForTask = errors.New("no tenant for task; use ForTenant or WithoutTenant")

	// ErrHandlerNotFound is returned when no handler is registered for a task.
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when a worker starts with no handlers registered.
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrNoTaskToClaim is returned by storage when no pending task is claimable.
	ErrNoTaskToClaim = errors.New("no task available to claim")

	// ErrNoRestorer is returned when a worker claims a tenant-carrying task
	// but was built without a restorer.
	ErrNoRestorer = errors.New("task carries a tenant but worker has no restorer")
)
