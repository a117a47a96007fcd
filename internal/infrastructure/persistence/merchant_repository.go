package persistence

import (
	"context"
	"errors"

	"github.com/daftar/backend/internal/domain/partner"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMerchantRepository implements MerchantRepository using GORM
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewGormMerchantRepository creates a new GormMerchantRepository
func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// FindByID finds a merchant by its ID
func (r *GormMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Merchant, error) {
	var merchant partner.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

// FindByName finds a merchant by exact name
func (r *GormMerchantRepository) FindByName(ctx context.Context, name string) (*partner.Merchant, error) {
	var merchant partner.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

// FindAll finds all merchants matching the filter
func (r *GormMerchantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Merchant, error) {
	var merchants []partner.Merchant
	query := r.applyFilter(r.db.WithContext(ctx).Model(&partner.Merchant{}), filter)

	if err := query.Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// FindByStatus finds merchants by status
func (r *GormMerchantRepository) FindByStatus(ctx context.Context, status partner.MerchantStatus, filter shared.Filter) ([]partner.Merchant, error) {
	var merchants []partner.Merchant
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&partner.Merchant{}).Where("status = ?", status),
		filter,
	)

	if err := query.Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// FindByCategory finds merchants by category
func (r *GormMerchantRepository) FindByCategory(ctx context.Context, category partner.MerchantCategory, filter shared.Filter) ([]partner.Merchant, error) {
	var merchants []partner.Merchant
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&partner.Merchant{}).Where("category = ?", category),
		filter,
	)

	if err := query.Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// FindByIDs finds multiple merchants by their IDs
func (r *GormMerchantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Merchant, error) {
	if len(ids) == 0 {
		return []partner.Merchant{}, nil
	}

	var merchants []partner.Merchant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// Save creates or updates a merchant
func (r *GormMerchantRepository) Save(ctx context.Context, merchant *partner.Merchant) error {
	return r.db.WithContext(ctx).Save(merchant).Error
}

// SaveWithLock saves a merchant with optimistic locking (version check).
// Returns ErrConcurrencyConflict if the row was modified by another transaction.
func (r *GormMerchantRepository) SaveWithLock(ctx context.Context, merchant *partner.Merchant) error {
	// Select("*") forces zero-valued columns (cleared notes, contact
	// fields) to be written as well.
	result := r.db.WithContext(ctx).
		Model(merchant).
		Select("*").
		Where("id = ? AND version = ?", merchant.ID, merchant.Version-1).
		Updates(merchant)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a merchant. Invoices and payments cascade at the database level.
func (r *GormMerchantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&partner.Merchant{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts merchants matching the filter
func (r *GormMerchantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&partner.Merchant{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts merchants by status
func (r *GormMerchantRepository) CountByStatus(ctx context.Context, status partner.MerchantStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partner.Merchant{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks if a merchant with the given name exists
func (r *GormMerchantRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partner.Merchant{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filtering, ordering, and pagination to the query
func (r *GormMerchantRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, MerchantSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies search and field filters only
func (r *GormMerchantRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "category":
			query = query.Where("category = ?", value)
		}
	}

	return query
}
