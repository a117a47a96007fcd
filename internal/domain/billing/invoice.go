package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusPending       InvoiceStatus = "pending"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsSticky returns true for lifecycle states that reconciliation never
// overrides. Draft and cancelled invoices keep their status no matter
// what payments exist against them.
func (s InvoiceStatus) IsSticky() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusCancelled
}

// CanRecordPayment returns true if payments can be recorded in this status
func (s InvoiceStatus) CanRecordPayment() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPartiallyPaid ||
		s == InvoiceStatusOverdue || s == InvoiceStatusPaid
}

// LineItem is a single line on an invoice.
// It is a value object within the Invoice aggregate, stored as JSONB.
type LineItem struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// LineItems is a slice of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Sum returns the sum of the line totals
func (l LineItems) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l {
		total = total.Add(item.Total)
	}
	return total
}

// Validate checks each line item for consistency
func (l LineItems) Validate() error {
	for i, item := range l {
		if item.Name == "" {
			return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("Line item %d has no name", i+1))
		}
		if item.Quantity.LessThan(decimal.NewFromInt(1)) {
			return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("Line item %d quantity must be at least 1", i+1))
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("Line item %d unit price cannot be negative", i+1))
		}
		if !item.Quantity.Mul(item.UnitPrice).Equal(item.Total) {
			return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("Line item %d total does not match quantity * unit price", i+1))
		}
	}
	return nil
}

// Invoice represents an invoice issued to a merchant.
// It is the aggregate root for invoice and payment-reconciliation operations.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	MerchantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	MerchantName    string          `gorm:"type:varchar(200)"` // denormalized for list views
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status          InvoiceStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	IssueDate       time.Time       `gorm:"not null"`
	DueDate         *time.Time      `gorm:"index"`
	LineItems       LineItems       `gorm:"type:jsonb;not null;default:'[]'"`
	Notes           string          `gorm:"type:text"`
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new invoice for a merchant.
// When line items are provided, their totals must sum to the invoice amount.
// A draft invoice stays out of reconciliation until issued.
func NewInvoice(
	invoiceNumber string,
	merchantID uuid.UUID,
	amount decimal.Decimal,
	issueDate time.Time,
	dueDate *time.Time,
	lineItems LineItems,
	notes string,
	draft bool,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	if dueDate != nil && dueDate.Before(issueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	if lineItems == nil {
		lineItems = LineItems{}
	}
	if err := lineItems.Validate(); err != nil {
		return nil, err
	}
	if len(lineItems) > 0 && !lineItems.Sum().Equal(amount) {
		return nil, shared.NewDomainError("LINE_ITEMS_MISMATCH", "Line item totals must sum to the invoice amount")
	}

	status := InvoiceStatusPending
	if draft {
		status = InvoiceStatusDraft
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		MerchantID:        merchantID,
		Amount:            amount,
		PaidAmount:        decimal.Zero,
		RemainingAmount:   amount,
		Status:            status,
		IssueDate:         issueDate,
		DueDate:           dueDate,
		LineItems:         lineItems,
		Notes:             notes,
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// Reconcile recomputes the invoice's paid amount, remaining balance and
// status from the full set of payments recorded against it. This is the
// single write path for payment-derived state: record or remove a
// payment, then reconcile with the refetched payment list.
func (inv *Invoice) Reconcile(payments []Payment) {
	totalPaid := TotalPaid(payments)
	oldStatus := inv.Status

	inv.PaidAmount = totalPaid
	inv.RemainingAmount = Remaining(inv.Amount, totalPaid)
	inv.Status = DeriveStatus(inv.Status, inv.Amount, totalPaid)

	if inv.Status == InvoiceStatusPaid && oldStatus != InvoiceStatusPaid {
		now := time.Now()
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}
	if inv.Status != InvoiceStatusPaid {
		inv.PaidAt = nil
	}
	if inv.Status != oldStatus && inv.Status != InvoiceStatusPaid {
		inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, oldStatus, inv.Status))
	}

	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// PaymentPercentage returns how much of this invoice has been paid (0-100)
func (inv *Invoice) PaymentPercentage() decimal.Decimal {
	return PaymentPercentage(inv.Amount, inv.PaidAmount)
}

// Issue moves a draft invoice into the pending state
func (inv *Invoice) Issue() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot issue invoice in %s status", inv.Status))
	}

	oldStatus := inv.Status
	inv.Status = InvoiceStatusPending
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, oldStatus, inv.Status))

	return nil
}

// Cancel cancels the invoice. Cancelled is sticky; later payments never
// move the invoice out of it.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("ALREADY_CANCELLED", "Invoice is already cancelled")
	}
	if inv.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a fully paid invoice")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	oldStatus := inv.Status
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, oldStatus, InvoiceStatusCancelled))

	return nil
}

// MarkOverdue moves a pending or partially paid invoice past its due
// date into the overdue state. Only the maintenance resync calls this;
// reconciliation itself never derives overdue.
func (inv *Invoice) MarkOverdue(now time.Time) error {
	if inv.Status != InvoiceStatusPending && inv.Status != InvoiceStatusPartiallyPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice overdue in %s status", inv.Status))
	}
	if inv.DueDate == nil || !now.After(*inv.DueDate) {
		return shared.NewDomainError("NOT_PAST_DUE", "Invoice is not past its due date")
	}

	oldStatus := inv.Status
	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, oldStatus, InvoiceStatusOverdue))

	return nil
}

// Update updates the invoice's mutable details. Amount changes are only
// allowed while the invoice is a draft.
func (inv *Invoice) Update(amount decimal.Decimal, dueDate *time.Time, lineItems LineItems, notes string) error {
	if inv.Status == InvoiceStatusCancelled || inv.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update invoice in %s status", inv.Status))
	}
	if !amount.Equal(inv.Amount) && inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Invoice amount can only be changed while in draft")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if dueDate != nil && dueDate.Before(inv.IssueDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	if lineItems == nil {
		lineItems = LineItems{}
	}
	if err := lineItems.Validate(); err != nil {
		return err
	}
	if len(lineItems) > 0 && !lineItems.Sum().Equal(amount) {
		return shared.NewDomainError("LINE_ITEMS_MISMATCH", "Line item totals must sum to the invoice amount")
	}

	inv.Amount = amount
	inv.RemainingAmount = Remaining(amount, inv.PaidAmount)
	inv.DueDate = dueDate
	inv.LineItems = lineItems
	inv.Notes = notes
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceUpdatedEvent(inv))

	return nil
}

// IsDraft returns true if the invoice is a draft
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// IsPastDue returns true if the invoice has a due date in the past and
// is not settled or in a sticky state
func (inv *Invoice) IsPastDue(now time.Time) bool {
	if inv.DueDate == nil {
		return false
	}
	if inv.Status != InvoiceStatusPending && inv.Status != InvoiceStatusPartiallyPaid {
		return false
	}
	return now.After(*inv.DueDate)
}
