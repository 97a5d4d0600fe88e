// Package carrier moves tenant context across execution boundaries. Capture
// snapshots the active binding into a serializable Token on the producing
// side; a Restorer re-validates the tenant and rebinds it on the consuming
// side, with hook teardowns guaranteeing the worker returns to a clean state
// whatever the outcome of the unit of work.
//
// A Token is a reference, not an authorization: restore always re-fetches
// the tenant and fails with ErrRestoreFailed when it has been suspended or
// removed since capture. Work enqueued before a suspension therefore never
// executes after it.
package carrier
