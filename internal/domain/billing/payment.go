package billing

import (
	"time"

	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
)

// IsValid checks if the payment method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodCreditCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment represents a single payment recorded against an invoice.
// Payments live in their own table with a cascading foreign key to the
// invoice; deleting an invoice removes its payments.
type Payment struct {
	shared.BaseEntity
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	MerchantID uuid.UUID       `gorm:"type:uuid;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method     PaymentMethod   `gorm:"type:varchar(20);not null;default:'cash'"`
	PaidAt     time.Time       `gorm:"not null;index"`
	Notes      string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a new payment against an invoice
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, method PaymentMethod, paidAt time.Time, notes string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Payment method is not valid")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return &Payment{
		BaseEntity: shared.NewBaseEntity(),
		InvoiceID:  invoiceID,
		Amount:     amount,
		Method:     method,
		PaidAt:     paidAt,
		Notes:      notes,
	}, nil
}
