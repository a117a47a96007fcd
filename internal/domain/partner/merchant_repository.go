package partner

import (
	"context"

	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MerchantRepository defines the interface for merchant persistence
type MerchantRepository interface {
	// FindByID finds a merchant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Merchant, error)

	// FindByName finds a merchant by exact name
	FindByName(ctx context.Context, name string) (*Merchant, error)

	// FindAll finds all merchants matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Merchant, error)

	// FindByStatus finds merchants by status
	FindByStatus(ctx context.Context, status MerchantStatus, filter shared.Filter) ([]Merchant, error)

	// FindByCategory finds merchants by category
	FindByCategory(ctx context.Context, category MerchantCategory, filter shared.Filter) ([]Merchant, error)

	// FindByIDs finds multiple merchants by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Merchant, error)

	// Save creates or updates a merchant
	Save(ctx context.Context, merchant *Merchant) error

	// SaveWithLock saves a merchant with optimistic locking (version check).
	// Returns error if the version has changed (concurrent modification).
	SaveWithLock(ctx context.Context, merchant *Merchant) error

	// Delete deletes a merchant and cascades to its invoices and payments
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts merchants matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts merchants by status
	CountByStatus(ctx context.Context, status MerchantStatus) (int64, error)

	// ExistsByName checks if a merchant with the given name exists
	ExistsByName(ctx context.Context, name string) (bool, error)
}
