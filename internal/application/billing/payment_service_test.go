package billing

import (
	"context"
	"testing"
	"time"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T, amount int64) *billing.Invoice {
	t.Helper()
	invoice, err := billing.NewInvoice(
		"INV-20260115-00001",
		uuid.New(),
		decimal.NewFromInt(amount),
		time.Now(),
		nil,
		nil,
		"",
		false,
	)
	require.NoError(t, err)
	invoice.ClearDomainEvents()
	return invoice
}

func mustPayment(t *testing.T, invoiceID uuid.UUID, amount int64) *billing.Payment {
	t.Helper()
	p, err := billing.NewPayment(invoiceID, decimal.NewFromInt(amount), billing.PaymentMethodCash, time.Now(), "")
	require.NoError(t, err)
	return p
}

func TestPaymentService_Record(t *testing.T) {
	t.Run("first partial payment", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 1000)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
		paymentRepo.On("FindByInvoice", mock.Anything, invoice.ID).Return(
			[]billing.Payment{*mustPayment(t, invoice.ID, 300)}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		resp, err := service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(300),
			Method: "cash",
		})

		require.NoError(t, err)
		assert.Equal(t, "partially_paid", resp.Invoice.Status)
		assert.Equal(t, "700", resp.Invoice.RemainingAmount.String())
		assert.Equal(t, "30", resp.Invoice.PaymentPercentage.String())
		invoiceRepo.AssertExpectations(t)
		paymentRepo.AssertExpectations(t)
	})

	t.Run("final payment settles the invoice", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 1000)
		stored := []billing.Payment{
			*mustPayment(t, invoice.ID, 300),
			*mustPayment(t, invoice.ID, 200),
			*mustPayment(t, invoice.ID, 500),
		}

		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Payment")).Return(nil)
		paymentRepo.On("FindByInvoice", mock.Anything, invoice.ID).Return(stored, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		resp, err := service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: "bank_transfer",
		})

		require.NoError(t, err)
		assert.Equal(t, "paid", resp.Invoice.Status)
		assert.True(t, resp.Invoice.RemainingAmount.IsZero())
		assert.NotNil(t, resp.Invoice.PaidAt)
	})

	t.Run("rejects payment on draft invoice", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice, err := billing.NewInvoice("INV-20260115-00002", uuid.New(), decimal.NewFromInt(100), time.Now(), nil, nil, "", true)
		require.NoError(t, err)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		_, err = service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(50),
			Method: "cash",
		})
		assert.Error(t, err)
		paymentRepo.AssertNotCalled(t, "Save")
	})

	t.Run("rejects payment on cancelled invoice", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 100)
		require.NoError(t, invoice.Cancel("obsolete"))
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		_, err := service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(50),
			Method: "cash",
		})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 100)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		_, err := service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.Zero,
			Method: "cash",
		})
		assert.Error(t, err)
		paymentRepo.AssertNotCalled(t, "Save")
	})

	t.Run("surfaces lock conflict from concurrent reconcile", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 1000)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		paymentRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		paymentRepo.On("FindByInvoice", mock.Anything, invoice.ID).Return(
			[]billing.Payment{*mustPayment(t, invoice.ID, 300)}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(shared.ErrConcurrencyConflict)

		_, err := service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(300),
			Method: "cash",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)
	})

	t.Run("overpayment clamps remaining to zero", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 1000)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		paymentRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
		paymentRepo.On("FindByInvoice", mock.Anything, invoice.ID).Return(
			[]billing.Payment{*mustPayment(t, invoice.ID, 1200)}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		resp, err := service.Record(context.Background(), invoice.ID, RecordPaymentRequest{
			Amount: decimal.NewFromInt(1200),
			Method: "cash",
		})

		require.NoError(t, err)
		assert.Equal(t, "paid", resp.Invoice.Status)
		assert.True(t, resp.Invoice.RemainingAmount.IsZero())
		assert.Equal(t, "100", resp.Invoice.PaymentPercentage.String())
	})
}

func TestPaymentService_Remove(t *testing.T) {
	t.Run("removing a payment reopens a paid invoice", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 1000)
		p1 := mustPayment(t, invoice.ID, 600)
		p2 := mustPayment(t, invoice.ID, 400)
		invoice.Reconcile([]billing.Payment{*p1, *p2})
		require.True(t, invoice.IsPaid())
		invoice.ClearDomainEvents()

		paymentRepo.On("FindByID", mock.Anything, p2.ID).Return(p2, nil)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		paymentRepo.On("Delete", mock.Anything, p2.ID).Return(nil)
		paymentRepo.On("FindByInvoice", mock.Anything, invoice.ID).Return([]billing.Payment{*p1}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		resp, err := service.Remove(context.Background(), p2.ID)

		require.NoError(t, err)
		assert.Equal(t, "partially_paid", resp.Status)
		assert.Equal(t, "400", resp.RemainingAmount.String())
		assert.Nil(t, resp.PaidAt)
	})

	t.Run("removing the only payment returns to pending", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		service := NewPaymentService(invoiceRepo, paymentRepo)

		invoice := newTestInvoice(t, 500)
		p := mustPayment(t, invoice.ID, 200)
		invoice.Reconcile([]billing.Payment{*p})
		invoice.ClearDomainEvents()

		paymentRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		paymentRepo.On("Delete", mock.Anything, p.ID).Return(nil)
		paymentRepo.On("FindByInvoice", mock.Anything, invoice.ID).Return([]billing.Payment{}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		resp, err := service.Remove(context.Background(), p.ID)

		require.NoError(t, err)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, "500", resp.RemainingAmount.String())
	})
}
