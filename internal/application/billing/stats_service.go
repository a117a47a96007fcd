package billing

import (
	"context"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/partner"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingTotals holds aggregate sums computed by the persistence layer.
// TotalOutstanding sums each invoice's clamped remaining amount, so an
// overpaid invoice never offsets another invoice's balance.
type BillingTotals struct {
	InvoiceCount     int64
	TotalInvoiced    decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
}

// StatsReader provides aggregate billing figures straight from the
// database. Sums exclude draft and cancelled invoices.
type StatsReader interface {
	// OverallTotals returns totals across all merchants
	OverallTotals(ctx context.Context) (BillingTotals, error)

	// MerchantTotals returns totals for a single merchant
	MerchantTotals(ctx context.Context, merchantID uuid.UUID) (BillingTotals, error)

	// StatusCounts returns invoice counts per status, optionally scoped
	// to a merchant (nil for all)
	StatusCounts(ctx context.Context, merchantID *uuid.UUID) (map[billing.InvoiceStatus]int64, error)
}

// StatsCache caches computed stats responses between change notifications
type StatsCache interface {
	GetOverall(ctx context.Context) (*OverallStatsResponse, bool)
	SetOverall(ctx context.Context, stats *OverallStatsResponse)
	GetMerchant(ctx context.Context, merchantID uuid.UUID) (*MerchantStatsResponse, bool)
	SetMerchant(ctx context.Context, merchantID uuid.UUID, stats *MerchantStatsResponse)
	Invalidate()
}

// StatsService computes billing statistics for dashboards
type StatsService struct {
	statsReader  StatsReader
	merchantRepo partner.MerchantRepository
	cache        StatsCache
}

// NewStatsService creates a new StatsService
func NewStatsService(statsReader StatsReader, merchantRepo partner.MerchantRepository) *StatsService {
	return &StatsService{
		statsReader:  statsReader,
		merchantRepo: merchantRepo,
	}
}

// SetCache sets the stats cache
func (s *StatsService) SetCache(cache StatsCache) {
	s.cache = cache
}

// Overall returns billing statistics across all merchants
func (s *StatsService) Overall(ctx context.Context) (*OverallStatsResponse, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetOverall(ctx); ok {
			return cached, nil
		}
	}

	totals, err := s.statsReader.OverallTotals(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.statsReader.StatusCounts(ctx, nil)
	if err != nil {
		return nil, err
	}

	merchantCount, err := s.merchantRepo.Count(ctx, shared.DefaultFilter())
	if err != nil {
		return nil, err
	}

	stats := &OverallStatsResponse{
		MerchantCount:    merchantCount,
		InvoiceCount:     totals.InvoiceCount,
		TotalInvoiced:    totals.TotalInvoiced,
		TotalPaid:        totals.TotalPaid,
		TotalOutstanding: totals.TotalOutstanding,
		StatusCounts:     toStatusCounts(statusCounts),
	}

	if s.cache != nil {
		s.cache.SetOverall(ctx, stats)
	}
	return stats, nil
}

// Merchant returns billing statistics for a single merchant
func (s *StatsService) Merchant(ctx context.Context, merchantID uuid.UUID) (*MerchantStatsResponse, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetMerchant(ctx, merchantID); ok {
			return cached, nil
		}
	}

	// verify the merchant exists so callers get NOT_FOUND, not zeros
	if _, err := s.merchantRepo.FindByID(ctx, merchantID); err != nil {
		return nil, err
	}

	totals, err := s.statsReader.MerchantTotals(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.statsReader.StatusCounts(ctx, &merchantID)
	if err != nil {
		return nil, err
	}

	stats := &MerchantStatsResponse{
		MerchantID:       merchantID,
		InvoiceCount:     totals.InvoiceCount,
		TotalInvoiced:    totals.TotalInvoiced,
		TotalPaid:        totals.TotalPaid,
		TotalOutstanding: totals.TotalOutstanding,
		PaidPercentage:   billing.PaymentPercentage(totals.TotalInvoiced, totals.TotalPaid).Round(2),
		StatusCounts:     toStatusCounts(statusCounts),
	}

	if s.cache != nil {
		s.cache.SetMerchant(ctx, merchantID, stats)
	}
	return stats, nil
}

func toStatusCounts(counts map[billing.InvoiceStatus]int64) []StatusCount {
	// fixed order keeps responses stable
	order := []billing.InvoiceStatus{
		billing.InvoiceStatusDraft,
		billing.InvoiceStatusPending,
		billing.InvoiceStatusPartiallyPaid,
		billing.InvoiceStatusPaid,
		billing.InvoiceStatusOverdue,
		billing.InvoiceStatusCancelled,
	}
	result := make([]StatusCount, 0, len(order))
	for _, status := range order {
		result = append(result, StatusCount{Status: string(status), Count: counts[status]})
	}
	return result
}
