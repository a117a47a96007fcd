package billing

import (
	"context"
	"time"

	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll finds all invoices matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// FindByMerchant finds invoices for a merchant
	FindByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// FindByStatus finds invoices by status
	FindByStatus(ctx context.Context, status InvoiceStatus, filter shared.Filter) ([]Invoice, error)

	// FindPastDue finds pending and partially paid invoices whose due date
	// is before the given time
	FindPastDue(ctx context.Context, before time.Time) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves an invoice with optimistic locking (version check).
	// Returns error if the version has changed (concurrent modification).
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete deletes an invoice and cascades to its payments
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts invoices by status
	CountByStatus(ctx context.Context, status InvoiceStatus) (int64, error)

	// CountByMerchant counts invoices for a merchant
	CountByMerchant(ctx context.Context, merchantID uuid.UUID) (int64, error)

	// ExistsByNumber checks if an invoice with the given number exists
	ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error)

	// NextSequenceForDate returns the next invoice sequence number for the
	// given issue date, used for INV-YYYYMMDD-NNNNN numbering
	NextSequenceForDate(ctx context.Context, date time.Time) (int64, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice finds all payments recorded against an invoice,
	// ordered by paid_at ascending
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// FindAll finds all payments matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Payment, error)

	// FindByDateRange finds payments with paid_at in [from, to)
	FindByDateRange(ctx context.Context, from, to time.Time) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// Delete deletes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts payments matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByInvoice counts payments recorded against an invoice
	CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
}
