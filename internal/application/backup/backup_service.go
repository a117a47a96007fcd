package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/partner"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const exportPageSize = 500

// ArchiveVersion identifies the archive layout for forward compatibility
const ArchiveVersion = 1

// Archive is the JSON document written by Export and read by Restore
type Archive struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Merchants  []partner.Merchant `json:"merchants"`
	Invoices   []billing.Invoice  `json:"invoices"`
	Payments   []billing.Payment  `json:"payments"`
}

// archiveInvoice decodes an invoice row with lenient monetary fields.
// Archives written by the earlier export tooling carry amounts as raw
// numbers and occasional nulls; the shadow fields accept whatever shape
// the document has and coercion normalizes it.
type archiveInvoice struct {
	billing.Invoice
	Amount          any `json:"Amount"`
	PaidAmount      any `json:"PaidAmount"`
	RemainingAmount any `json:"RemainingAmount"`
}

type archivePayment struct {
	billing.Payment
	Amount any `json:"Amount"`
}

// restoreDocument mirrors Archive with lenient invoice and payment rows
type restoreDocument struct {
	Version   int                `json:"version"`
	Merchants []partner.Merchant `json:"merchants"`
	Invoices  []archiveInvoice   `json:"invoices"`
	Payments  []archivePayment   `json:"payments"`
}

// RestoreResult reports how many rows each table received
type RestoreResult struct {
	Merchants int `json:"merchants"`
	Invoices  int `json:"invoices"`
	Payments  int `json:"payments"`
}

// BackupService exports the full dataset to a JSON archive and restores
// from one. Restore is an insert-or-update by primary key; rows absent
// from the archive are left untouched.
type BackupService struct {
	merchantRepo partner.MerchantRepository
	invoiceRepo  billing.InvoiceRepository
	paymentRepo  billing.PaymentRepository
	logger       *zap.Logger
}

// NewBackupService creates a new BackupService
func NewBackupService(
	merchantRepo partner.MerchantRepository,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	logger *zap.Logger,
) *BackupService {
	return &BackupService{
		merchantRepo: merchantRepo,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		logger:       logger,
	}
}

// Export writes the full dataset as a JSON archive to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	archive := Archive{
		Version:    ArchiveVersion,
		ExportedAt: time.Now().UTC(),
	}

	merchants, err := s.exportMerchants(ctx)
	if err != nil {
		return fmt.Errorf("failed to export merchants: %w", err)
	}
	archive.Merchants = merchants

	invoices, err := s.exportInvoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to export invoices: %w", err)
	}
	archive.Invoices = invoices

	payments, err := s.exportPayments(ctx)
	if err != nil {
		return fmt.Errorf("failed to export payments: %w", err)
	}
	archive.Payments = payments

	totalInvoiced := decimal.Zero
	for i := range archive.Invoices {
		totalInvoiced = totalInvoiced.Add(archive.Invoices[i].Amount)
	}

	s.logger.Info("Dataset exported",
		zap.Int("merchants", len(archive.Merchants)),
		zap.Int("invoices", len(archive.Invoices)),
		zap.Int("payments", len(archive.Payments)),
		zap.String("total_invoiced", billing.FormatAmount(totalInvoiced)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(archive)
}

// Restore reads a JSON archive from r and upserts every row. Merchants are
// restored before invoices and invoices before payments so foreign keys
// always resolve. Monetary fields are coerced rather than trusted: junk
// amounts become zero and remaining balances are recomputed.
func (s *BackupService) Restore(ctx context.Context, r io.Reader) (*RestoreResult, error) {
	var doc restoreDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	if doc.Version > ArchiveVersion {
		return nil, shared.NewDomainError("UNSUPPORTED_ARCHIVE", fmt.Sprintf("Archive version %d is newer than supported version %d", doc.Version, ArchiveVersion))
	}

	result := &RestoreResult{}

	for i := range doc.Merchants {
		if err := s.merchantRepo.Save(ctx, &doc.Merchants[i]); err != nil {
			return result, fmt.Errorf("failed to restore merchant %s: %w", doc.Merchants[i].ID, err)
		}
		result.Merchants++
	}

	for i := range doc.Invoices {
		invoice := doc.Invoices[i].Invoice
		invoice.Amount = billing.CoerceAmount(doc.Invoices[i].Amount)
		invoice.PaidAmount = billing.CoerceAmount(doc.Invoices[i].PaidAmount)
		invoice.RemainingAmount = billing.Remaining(invoice.Amount, invoice.PaidAmount)
		if err := s.invoiceRepo.Save(ctx, &invoice); err != nil {
			return result, fmt.Errorf("failed to restore invoice %s: %w", invoice.ID, err)
		}
		result.Invoices++
	}

	for i := range doc.Payments {
		payment := doc.Payments[i].Payment
		payment.Amount = billing.CoerceAmount(doc.Payments[i].Amount)
		if err := s.paymentRepo.Save(ctx, &payment); err != nil {
			return result, fmt.Errorf("failed to restore payment %s: %w", payment.ID, err)
		}
		result.Payments++
	}

	s.logger.Info("Dataset restored",
		zap.Int("merchants", result.Merchants),
		zap.Int("invoices", result.Invoices),
		zap.Int("payments", result.Payments),
	)

	return result, nil
}

func (s *BackupService) exportMerchants(ctx context.Context) ([]partner.Merchant, error) {
	var all []partner.Merchant
	filter := exportFilter()
	for {
		page, err := s.merchantRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.PageSize {
			return all, nil
		}
		filter.Page++
	}
}

func (s *BackupService) exportInvoices(ctx context.Context) ([]billing.Invoice, error) {
	var all []billing.Invoice
	filter := exportFilter()
	for {
		page, err := s.invoiceRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.PageSize {
			return all, nil
		}
		filter.Page++
	}
}

func (s *BackupService) exportPayments(ctx context.Context) ([]billing.Payment, error) {
	var all []billing.Payment
	filter := exportFilter()
	for {
		page, err := s.paymentRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.PageSize {
			return all, nil
		}
		filter.Page++
	}
}

// exportFilter pages in stable insertion order
func exportFilter() shared.Filter {
	return shared.Filter{
		Page:     1,
		PageSize: exportPageSize,
		OrderBy:  "created_at",
		OrderDir: "asc",
	}
}
