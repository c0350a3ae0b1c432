package territory

import (
	"context"

	"sectland-backend/internal/domain"
)

// ClaimStore is the external territory-backing collaborator. It owns the
// spatial claims; this subsystem only calls it and never reaches into its
// state. Implementations must be safe for concurrent use.
type ClaimStore interface {
	// CreateClaim registers a new claim of the given size around center,
	// owned by ownerRef, and returns its id.
	CreateClaim(ctx context.Context, ownerRef string, center domain.Point, units int32) (string, error)
	// ResizeClaim grows (positive delta) or shrinks (negative delta) a claim
	ResizeClaim(ctx context.Context, claimID string, deltaUnits int32) error
	DeleteClaim(ctx context.Context, claimID string) error
	TransferOwnership(ctx context.Context, claimID, newOwnerRef string) error
	ClaimSize(ctx context.Context, claimID string) (int32, error)
	ClaimOwner(ctx context.Context, claimID string) (string, error)
}
