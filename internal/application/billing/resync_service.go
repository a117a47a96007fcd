package billing

import (
	"context"
	"time"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ResyncService repairs invoices whose stored paid amounts or statuses
// have drifted from their payments, and marks unpaid past-due invoices overdue.
// This is the only code path that assigns the overdue status; normal
// reconciliation never derives it.
type ResyncService struct {
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	changeNotifier shared.ChangeNotifier
	logger         *zap.Logger
}

// NewResyncService creates a new ResyncService
func NewResyncService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	logger *zap.Logger,
) *ResyncService {
	return &ResyncService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// SetChangeNotifier sets the change notifier for the change stream
func (s *ResyncService) SetChangeNotifier(notifier shared.ChangeNotifier) {
	s.changeNotifier = notifier
}

// Run walks every invoice, recomputes paid amounts and statuses from the
// stored payments, and marks unpaid past-due invoices overdue. It processes
// invoices page by page so large ledgers don't load into memory at once.
func (s *ResyncService) Run(ctx context.Context) (*ResyncResult, error) {
	result := &ResyncResult{}
	now := time.Now()

	filter := shared.DefaultFilter()
	filter.PageSize = 200
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"

	for page := 1; ; page++ {
		filter.Page = page
		invoices, err := s.invoiceRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		if len(invoices) == 0 {
			break
		}

		for i := range invoices {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := s.resyncInvoice(ctx, &invoices[i], now, result); err != nil {
				s.logger.Error("failed to resync invoice",
					zap.String("invoice_number", invoices[i].InvoiceNumber),
					zap.Error(err))
				return nil, err
			}
			result.InvoicesChecked++
		}

		if len(invoices) < filter.PageSize {
			break
		}
	}

	s.logger.Info("invoice resync complete",
		zap.Int("checked", result.InvoicesChecked),
		zap.Int("amounts_fixed", result.AmountsFixed),
		zap.Int("statuses_fixed", result.StatusesFixed),
		zap.Int("marked_overdue", result.MarkedOverdue))

	return result, nil
}

func (s *ResyncService) resyncInvoice(ctx context.Context, invoice *billing.Invoice, now time.Time, result *ResyncResult) error {
	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return err
	}

	totalPaid := billing.TotalPaid(payments)
	remaining := billing.Remaining(invoice.Amount, totalPaid)
	target := billing.DeriveStatus(invoice.Status, invoice.Amount, totalPaid)

	// an invoice with no payments past its due date belongs in overdue;
	// any payment at all keeps it in the paid-progress statuses
	pastDue := invoice.DueDate != nil && now.After(*invoice.DueDate)
	if pastDue && target == billing.InvoiceStatusPending {
		target = billing.InvoiceStatusOverdue
	}

	amountsDrifted := !invoice.PaidAmount.Equal(totalPaid) || !invoice.RemainingAmount.Equal(remaining)
	statusDrifted := target != invoice.Status

	if !amountsDrifted && !statusDrifted {
		return nil
	}

	oldStatus := invoice.Status
	invoice.Reconcile(payments)
	if invoice.Status != target && target == billing.InvoiceStatusOverdue {
		if err := invoice.MarkOverdue(now); err != nil {
			return err
		}
	}

	if amountsDrifted {
		result.AmountsFixed++
	}
	if statusDrifted {
		if target == billing.InvoiceStatusOverdue && oldStatus != billing.InvoiceStatusOverdue {
			result.MarkedOverdue++
		} else {
			result.StatusesFixed++
		}
	}

	invoice.ClearDomainEvents()
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return err
	}

	if invoice.Status != oldStatus {
		s.logger.Info("repaired invoice",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("old_status", string(oldStatus)),
			zap.String("new_status", string(invoice.Status)))
	}

	if s.changeNotifier != nil {
		_ = s.changeNotifier.NotifyChange(ctx, invoicesTable, shared.ChangeOpUpdate, invoice.ID)
	}

	return nil
}
