// Package integration tests the critical billing flows end to end against a
// real PostgreSQL database:
// - Invoice creation and partial payment reconciliation
// - Payment removal reopening a settled invoice
// - Invoice cancellation rules
// - Resync repairing drifted amounts and flagging overdue invoices
// - Overall and per-merchant statistics
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingapp "github.com/daftar/backend/internal/application/billing"
	partnerapp "github.com/daftar/backend/internal/application/partner"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/daftar/backend/internal/infrastructure/persistence"
)

// BillingTestSetup wires the application services against a real database
type BillingTestSetup struct {
	DB          *TestDB
	MerchantSvc *partnerapp.MerchantService
	InvoiceSvc  *billingapp.InvoiceService
	PaymentSvc  *billingapp.PaymentService
	StatsSvc    *billingapp.StatsService
	ResyncSvc   *billingapp.ResyncService
}

func NewBillingTestSetup(t *testing.T) *BillingTestSetup {
	t.Helper()

	testDB := NewTestDB(t)

	merchantRepo := persistence.NewGormMerchantRepository(testDB.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	paymentRepo := persistence.NewGormPaymentRepository(testDB.DB)
	statsReader := persistence.NewGormStatsReader(testDB.DB)

	return &BillingTestSetup{
		DB:          testDB,
		MerchantSvc: partnerapp.NewMerchantService(merchantRepo),
		InvoiceSvc:  billingapp.NewInvoiceService(invoiceRepo, paymentRepo, merchantRepo),
		PaymentSvc:  billingapp.NewPaymentService(invoiceRepo, paymentRepo),
		StatsSvc:    billingapp.NewStatsService(statsReader, merchantRepo),
		ResyncSvc:   billingapp.NewResyncService(invoiceRepo, paymentRepo, zap.NewNop()),
	}
}

func (s *BillingTestSetup) createMerchant(t *testing.T, name string) *partnerapp.MerchantResponse {
	t.Helper()

	merchant, err := s.MerchantSvc.Create(context.Background(), partnerapp.CreateMerchantRequest{
		Name:     name,
		Category: "retail",
		Phone:    "+966 50 000 0000",
	})
	require.NoError(t, err)
	return merchant
}

func (s *BillingTestSetup) createInvoice(t *testing.T, req billingapp.CreateInvoiceRequest) *billingapp.InvoiceResponse {
	t.Helper()

	invoice, err := s.InvoiceSvc.Create(context.Background(), req)
	require.NoError(t, err)
	return invoice
}

func (s *BillingTestSetup) recordPayment(t *testing.T, invoice *billingapp.InvoiceResponse, amount int64) *billingapp.RecordPaymentResponse {
	t.Helper()

	resp, err := s.PaymentSvc.Record(context.Background(), invoice.ID, billingapp.RecordPaymentRequest{
		Amount: decimal.NewFromInt(amount),
		Method: "cash",
	})
	require.NoError(t, err)
	return resp
}

func TestInvoicePaymentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	merchant := setup.createMerchant(t, "Al Noor Trading")

	invoice := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(1000),
	})
	assert.Equal(t, "pending", invoice.Status)
	assert.True(t, invoice.RemainingAmount.Equal(decimal.NewFromInt(1000)))
	assert.Contains(t, invoice.InvoiceNumber, "INV-")

	// First partial payment
	p1 := setup.recordPayment(t, invoice, 300)
	assert.Equal(t, "partially_paid", p1.Invoice.Status)
	assert.True(t, p1.Invoice.PaidAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, p1.Invoice.RemainingAmount.Equal(decimal.NewFromInt(700)))

	// Second partial payment
	p2 := setup.recordPayment(t, invoice, 200)
	assert.Equal(t, "partially_paid", p2.Invoice.Status)
	assert.True(t, p2.Invoice.PaidAmount.Equal(decimal.NewFromInt(500)))

	// Settling payment
	p3 := setup.recordPayment(t, invoice, 500)
	assert.Equal(t, "paid", p3.Invoice.Status)
	assert.True(t, p3.Invoice.RemainingAmount.IsZero())
	assert.NotNil(t, p3.Invoice.PaidAt)

	// The stored invoice reflects all three payments
	detail, err := setup.InvoiceSvc.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Payments, 3)
	assert.Equal(t, "paid", detail.Status)

	// Removing the settling payment reopens the invoice
	reopened, err := setup.PaymentSvc.Remove(ctx, p3.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", reopened.Status)
	assert.True(t, reopened.PaidAmount.Equal(decimal.NewFromInt(500)))
	assert.Nil(t, reopened.PaidAt)

	// Removing every payment returns the invoice to pending
	r1, err := setup.PaymentSvc.Remove(ctx, p1.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", r1.Status)

	r2, err := setup.PaymentSvc.Remove(ctx, p2.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", r2.Status)
	assert.True(t, r2.PaidAmount.IsZero())
}

func TestInvoiceWithLineItems(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)

	merchant := setup.createMerchant(t, "Bayt Electronics")

	invoice := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(750),
		LineItems: []billingapp.LineItemRequest{
			{Name: "Router", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(150), Total: decimal.NewFromInt(450)},
			{Name: "Cabling", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(150), Total: decimal.NewFromInt(300)},
		},
	})
	require.Len(t, invoice.LineItems, 2)

	// Line items round-trip through JSONB storage
	detail, err := setup.InvoiceSvc.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Len(t, detail.LineItems, 2)
	assert.Equal(t, "Router", detail.LineItems[0].Name)
	assert.True(t, detail.LineItems[0].Total.Equal(decimal.NewFromInt(450)))

	// Mismatched totals are rejected
	_, err = setup.InvoiceSvc.Create(context.Background(), billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(999),
		LineItems: []billingapp.LineItemRequest{
			{Name: "Router", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(150), Total: decimal.NewFromInt(150)},
		},
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "LINE_ITEMS_MISMATCH", domainErr.Code)
}

func TestInvoiceCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	merchant := setup.createMerchant(t, "Dar Al Kutub")

	// A pending invoice can be cancelled with a reason
	invoice := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(400),
	})
	cancelled, err := setup.InvoiceSvc.Cancel(ctx, invoice.ID, billingapp.CancelInvoiceRequest{
		Reason: "duplicate entry",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "duplicate entry", cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)

	// No payments on a cancelled invoice
	_, err = setup.PaymentSvc.Record(ctx, invoice.ID, billingapp.RecordPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Method: "cash",
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)

	// A fully paid invoice cannot be cancelled
	paid := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(200),
	})
	setup.recordPayment(t, paid, 200)

	_, err = setup.InvoiceSvc.Cancel(ctx, paid.ID, billingapp.CancelInvoiceRequest{Reason: "mistake"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
}

func TestResyncRepairsDrift(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	merchant := setup.createMerchant(t, "Resync Trading")

	invoice := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(1000),
	})
	setup.recordPayment(t, invoice, 600)

	// Corrupt the stored totals behind the service's back
	err := setup.DB.DB.Exec(`
		UPDATE invoices
		SET paid_amount = 0, remaining_amount = 1000, status = 'pending'
		WHERE id = ?
	`, invoice.ID).Error
	require.NoError(t, err)

	result, err := setup.ResyncSvc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvoicesChecked)
	assert.Equal(t, 1, result.AmountsFixed)
	assert.Equal(t, 1, result.StatusesFixed)

	repaired, err := setup.InvoiceSvc.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", repaired.Status)
	assert.True(t, repaired.PaidAmount.Equal(decimal.NewFromInt(600)))
	assert.True(t, repaired.RemainingAmount.Equal(decimal.NewFromInt(400)))

	// A clean second run changes nothing
	result, err = setup.ResyncSvc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.AmountsFixed)
	assert.Equal(t, 0, result.StatusesFixed)
}

func TestResyncMarksOverdue(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	merchant := setup.createMerchant(t, "Overdue Trading")

	issueDate := time.Now().AddDate(0, -2, 0)
	dueDate := time.Now().AddDate(0, -1, 0)
	pastDue := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(500),
		IssueDate:  &issueDate,
		DueDate:    &dueDate,
	})

	futureDue := time.Now().AddDate(0, 1, 0)
	current := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(500),
		DueDate:    &futureDue,
	})

	result, err := setup.ResyncSvc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.InvoicesChecked)
	assert.Equal(t, 1, result.MarkedOverdue)

	flagged, err := setup.InvoiceSvc.GetByID(ctx, pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, "overdue", flagged.Status)

	untouched, err := setup.InvoiceSvc.GetByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", untouched.Status)

	// Payments still land on an overdue invoice, and settling clears it
	resp := setup.recordPayment(t, pastDue, 500)
	assert.Equal(t, "paid", resp.Invoice.Status)
}

func TestStatsAggregation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	first := setup.createMerchant(t, "Stats Merchant A")
	second := setup.createMerchant(t, "Stats Merchant B")

	invA := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: first.ID,
		Amount:     decimal.NewFromInt(1000),
	})
	setup.recordPayment(t, invA, 400)

	invB := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: second.ID,
		Amount:     decimal.NewFromInt(500),
	})
	setup.recordPayment(t, invB, 500)

	overall, err := setup.StatsSvc.Overall(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overall.MerchantCount)
	assert.Equal(t, int64(2), overall.InvoiceCount)
	assert.True(t, overall.TotalInvoiced.Equal(decimal.NewFromInt(1500)), "total invoiced: %s", overall.TotalInvoiced)
	assert.True(t, overall.TotalPaid.Equal(decimal.NewFromInt(900)), "total paid: %s", overall.TotalPaid)
	assert.True(t, overall.TotalOutstanding.Equal(decimal.NewFromInt(600)), "outstanding: %s", overall.TotalOutstanding)

	merchantStats, err := setup.StatsSvc.Merchant(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), merchantStats.InvoiceCount)
	assert.True(t, merchantStats.TotalInvoiced.Equal(decimal.NewFromInt(1000)))
	assert.True(t, merchantStats.TotalPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, merchantStats.PaidPercentage.Equal(decimal.NewFromInt(40)), "paid percentage: %s", merchantStats.PaidPercentage)
}

func TestConcurrentPaymentRecording(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	setup := NewBillingTestSetup(t)
	ctx := context.Background()

	merchant := setup.createMerchant(t, "Concurrent Trading")
	invoice := setup.createInvoice(t, billingapp.CreateInvoiceRequest{
		MerchantID: merchant.ID,
		Amount:     decimal.NewFromInt(1000),
	})

	// Fire several payments at once; optimistic locking may reject some
	// writers, but every accepted payment must be reflected in the totals
	// after a resync pass.
	const workers = 5
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := setup.PaymentSvc.Record(ctx, invoice.ID, billingapp.RecordPaymentRequest{
				Amount: decimal.NewFromInt(100),
				Method: "bank_transfer",
			})
			errs <- err
		}()
	}

	accepted := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err == nil {
			accepted++
		}
	}
	require.Positive(t, accepted, "at least one concurrent payment should succeed")

	_, err := setup.ResyncSvc.Run(ctx)
	require.NoError(t, err)

	detail, err := setup.InvoiceSvc.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, detail.PaidAmount.Equal(decimal.NewFromInt(int64(100*len(detail.Payments)))),
		"paid amount %s must match %d stored payments", detail.PaidAmount, len(detail.Payments))
}
