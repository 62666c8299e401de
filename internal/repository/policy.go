package repository

import (
	"context"

	"fleetdocs/internal/model"
)

// PolicyRepository defines persistence for insurance policies. The
// single-active-policy invariant is enforced inside the write transactions:
// activating a policy first flips active=false on the vehicle's other
// policies, so the invariant never breaks within the transaction's isolation
// scope. Reads carry the derived expiry fields computed against the current
// date.
type PolicyRepository interface {
	// Add inserts a policy, optionally with a file. Active defaults to true;
	// when active, the deactivation sweep runs first in the same transaction.
	Add(ctx context.Context, vehicleID int64, input model.PolicyInput, file *model.UploadedFile, createdBy int64) (*model.Policy, error)

	// FindByID returns a policy with derived expiry fields.
	FindByID(ctx context.Context, id int64) (*model.Policy, error)

	// ListByVehicle returns a vehicle's policies ordered active-first, then
	// by creation time descending.
	ListByVehicle(ctx context.Context, vehicleID int64) ([]model.Policy, error)

	// Update applies the patch; activating runs the sweep excluding the row
	// being updated. File ordering follows the document contract.
	Update(ctx context.Context, id int64, patch model.PolicyPatch) (*model.Policy, error)

	// Delete removes the row, then the file, and returns the last snapshot.
	Delete(ctx context.Context, id int64) (*model.Policy, error)

	// ListExpiring returns active, not-yet-expired policies due within the
	// given number of days, ordered by expiration ascending and enriched with
	// vehicle identification fields.
	ListExpiring(ctx context.Context, withinDays int) ([]model.ExpiringPolicy, error)

	// CountByVehicle returns the number of policies attached to a vehicle.
	CountByVehicle(ctx context.Context, vehicleID int64) (int, error)

	// CountActiveByVehicle returns the number of active policies (0 or 1
	// after any committed transaction).
	CountActiveByVehicle(ctx context.Context, vehicleID int64) (int, error)

	// CountExpiringByVehicle counts active policies due within the window.
	CountExpiringByVehicle(ctx context.Context, vehicleID int64, withinDays int) (int, error)

	// Summary returns the policy rollup for a vehicle.
	Summary(ctx context.Context, vehicleID int64) (*model.PolicySummary, error)
}
