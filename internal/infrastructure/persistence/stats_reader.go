package persistence

import (
	"context"

	appbilling "github.com/daftar/backend/internal/application/billing"
	"github.com/daftar/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStatsReader computes billing aggregates with SQL instead of walking
// invoices in memory. Draft and cancelled invoices are excluded from sums.
type GormStatsReader struct {
	db *gorm.DB
}

// NewGormStatsReader creates a new GormStatsReader
func NewGormStatsReader(db *gorm.DB) *GormStatsReader {
	return &GormStatsReader{db: db}
}

type totalsRow struct {
	InvoiceCount     int64
	TotalInvoiced    decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
}

// OverallTotals returns totals across all merchants
func (r *GormStatsReader) OverallTotals(ctx context.Context) (appbilling.BillingTotals, error) {
	return r.totals(ctx, nil)
}

// MerchantTotals returns totals for a single merchant
func (r *GormStatsReader) MerchantTotals(ctx context.Context, merchantID uuid.UUID) (appbilling.BillingTotals, error) {
	return r.totals(ctx, &merchantID)
}

func (r *GormStatsReader) totals(ctx context.Context, merchantID *uuid.UUID) (appbilling.BillingTotals, error) {
	query := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		// remaining_amount is already clamped at zero per invoice, so its
		// sum is the true outstanding figure; max(0, SUM(amount) -
		// SUM(paid_amount)) would let overpaid invoices offset unpaid ones
		Select("COUNT(*) AS invoice_count, COALESCE(SUM(amount), 0) AS total_invoiced, COALESCE(SUM(paid_amount), 0) AS total_paid, COALESCE(SUM(remaining_amount), 0) AS total_outstanding").
		Where("status NOT IN ?", []billing.InvoiceStatus{billing.InvoiceStatusDraft, billing.InvoiceStatusCancelled})

	if merchantID != nil {
		query = query.Where("merchant_id = ?", *merchantID)
	}

	var row totalsRow
	if err := query.Scan(&row).Error; err != nil {
		return appbilling.BillingTotals{}, err
	}

	return appbilling.BillingTotals{
		InvoiceCount:     row.InvoiceCount,
		TotalInvoiced:    row.TotalInvoiced,
		TotalPaid:        row.TotalPaid,
		TotalOutstanding: row.TotalOutstanding,
	}, nil
}

type statusCountRow struct {
	Status billing.InvoiceStatus
	Count  int64
}

// StatusCounts returns invoice counts per status, optionally scoped to a
// merchant (nil for all)
func (r *GormStatsReader) StatusCounts(ctx context.Context, merchantID *uuid.UUID) (map[billing.InvoiceStatus]int64, error) {
	query := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Select("status, COUNT(*) AS count").
		Group("status")

	if merchantID != nil {
		query = query.Where("merchant_id = ?", *merchantID)
	}

	var rows []statusCountRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[billing.InvoiceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
