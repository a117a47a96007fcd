package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	invoiceID := uuid.New()
	paidAt := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		invoiceID uuid.UUID
		amount    decimal.Decimal
		method    PaymentMethod
		wantErr   bool
	}{
		{
			name:      "valid cash payment",
			invoiceID: invoiceID,
			amount:    decimal.NewFromInt(300),
			method:    PaymentMethodCash,
		},
		{
			name:      "valid bank transfer",
			invoiceID: invoiceID,
			amount:    decimal.NewFromFloat(150.75),
			method:    PaymentMethodBankTransfer,
		},
		{
			name:      "nil invoice fails",
			invoiceID: uuid.Nil,
			amount:    decimal.NewFromInt(100),
			method:    PaymentMethodCash,
			wantErr:   true,
		},
		{
			name:      "zero amount fails",
			invoiceID: invoiceID,
			amount:    decimal.Zero,
			method:    PaymentMethodCash,
			wantErr:   true,
		},
		{
			name:      "negative amount fails",
			invoiceID: invoiceID,
			amount:    decimal.NewFromInt(-50),
			method:    PaymentMethodCheque,
			wantErr:   true,
		},
		{
			name:      "unknown method fails",
			invoiceID: invoiceID,
			amount:    decimal.NewFromInt(100),
			method:    PaymentMethod("crypto"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment, err := NewPayment(tt.invoiceID, tt.amount, tt.method, paidAt, "january installment")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.invoiceID, payment.InvoiceID)
			assert.True(t, payment.Amount.Equal(tt.amount))
			assert.Equal(t, tt.method, payment.Method)
			assert.Equal(t, paidAt, payment.PaidAt)
		})
	}
}

func TestNewPayment_DefaultsPaidAt(t *testing.T) {
	payment, err := NewPayment(uuid.New(), decimal.NewFromInt(10), PaymentMethodCash, time.Time{}, "")
	require.NoError(t, err)
	assert.False(t, payment.PaidAt.IsZero())
}

func TestPaymentMethod_IsValid(t *testing.T) {
	assert.True(t, PaymentMethodCash.IsValid())
	assert.True(t, PaymentMethodBankTransfer.IsValid())
	assert.True(t, PaymentMethodCheque.IsValid())
	assert.True(t, PaymentMethodCreditCard.IsValid())
	assert.False(t, PaymentMethod("barter").IsValid())
}
