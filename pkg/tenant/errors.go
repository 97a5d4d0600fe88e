package tenant

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrTenantInactive is returned when the resolved tenant is not active.
	ErrTenantInactive = errors.New("tenant is inactive")

	// ErrTenantSuspended is returned when the resolved tenant is suspended.
	// It wraps ErrTenantInactive so callers may match either granularity.
	ErrTenantSuspended = fmt.Errorf("tenant is suspended: %w", ErrTenantInactive)

	// ErrResolutionTimeout is returned when tenant resolution exceeded its
	// deadline. Resolution fails closed: the request is rejected rather than
	// proceeding without a tenant.
	ErrResolutionTimeout = errors.New("tenant resolution timed out")

	// ErrInvalidSettingKind is returned when a setting value is read as a
	// different kind than it was stored with.
	ErrInvalidSettingKind = errors.New("setting value kind mismatch")
)
