package billing

import (
	"testing"
	"time"

	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	invoice, err := NewInvoice(
		"INV-20260115-00001",
		uuid.New(),
		decimal.NewFromInt(1000),
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

func TestNewInvoice(t *testing.T) {
	merchantID := uuid.New()
	issueDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	dueDate := issueDate.AddDate(0, 1, 0)
	pastDue := issueDate.AddDate(0, 0, -1)

	tests := []struct {
		name          string
		invoiceNumber string
		merchantID    uuid.UUID
		amount        decimal.Decimal
		dueDate       *time.Time
		lineItems     LineItems
		draft         bool
		wantErr       bool
		errCode       string
		wantStatus    InvoiceStatus
	}{
		{
			name:          "valid pending invoice",
			invoiceNumber: "INV-20260115-00001",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(1000),
			dueDate:       &dueDate,
			wantStatus:    InvoiceStatusPending,
		},
		{
			name:          "valid draft invoice",
			invoiceNumber: "INV-20260115-00002",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(500),
			draft:         true,
			wantStatus:    InvoiceStatusDraft,
		},
		{
			name:          "empty number fails",
			invoiceNumber: "",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(100),
			wantErr:       true,
			errCode:       "INVALID_INVOICE_NUMBER",
		},
		{
			name:          "nil merchant fails",
			invoiceNumber: "INV-20260115-00003",
			merchantID:    uuid.Nil,
			amount:        decimal.NewFromInt(100),
			wantErr:       true,
			errCode:       "INVALID_MERCHANT",
		},
		{
			name:          "zero amount fails",
			invoiceNumber: "INV-20260115-00004",
			merchantID:    merchantID,
			amount:        decimal.Zero,
			wantErr:       true,
			errCode:       "INVALID_AMOUNT",
		},
		{
			name:          "negative amount fails",
			invoiceNumber: "INV-20260115-00005",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(-100),
			wantErr:       true,
			errCode:       "INVALID_AMOUNT",
		},
		{
			name:          "due date before issue date fails",
			invoiceNumber: "INV-20260115-00006",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(100),
			dueDate:       &pastDue,
			wantErr:       true,
			errCode:       "INVALID_DUE_DATE",
		},
		{
			name:          "line items must sum to amount",
			invoiceNumber: "INV-20260115-00007",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(1000),
			lineItems: LineItems{
				{Name: "Widgets", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(200)},
			},
			wantErr: true,
			errCode: "LINE_ITEMS_MISMATCH",
		},
		{
			name:          "valid line items",
			invoiceNumber: "INV-20260115-00008",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(1000),
			lineItems: LineItems{
				{Name: "Widgets", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(200)},
				{Name: "Gadgets", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(200), Total: decimal.NewFromInt(800)},
			},
			wantStatus: InvoiceStatusPending,
		},
		{
			name:          "inconsistent line total fails",
			invoiceNumber: "INV-20260115-00009",
			merchantID:    merchantID,
			amount:        decimal.NewFromInt(100),
			lineItems: LineItems{
				{Name: "Widgets", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(100)},
			},
			wantErr: true,
			errCode: "INVALID_LINE_ITEM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoice, err := NewInvoice(tt.invoiceNumber, tt.merchantID, tt.amount, issueDate, tt.dueDate, tt.lineItems, "", tt.draft)
			if tt.wantErr {
				require.Error(t, err)
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, tt.errCode, domainErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, invoice.Status)
			assert.True(t, invoice.RemainingAmount.Equal(tt.amount))
			assert.True(t, invoice.PaidAmount.IsZero())

			events := invoice.GetDomainEvents()
			require.Len(t, events, 1)
			assert.Equal(t, EventTypeInvoiceCreated, events[0].EventType())
		})
	}
}

func TestInvoice_Issue(t *testing.T) {
	invoice, err := NewInvoice("INV-20260115-00010", uuid.New(), decimal.NewFromInt(100), time.Now(), nil, nil, "", true)
	require.NoError(t, err)
	require.True(t, invoice.IsDraft())

	require.NoError(t, invoice.Issue())
	assert.Equal(t, InvoiceStatusPending, invoice.Status)

	// issuing twice fails
	assert.Error(t, invoice.Issue())
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("cancel pending invoice", func(t *testing.T) {
		invoice := createTestInvoice(t)
		require.NoError(t, invoice.Cancel("duplicate entry"))
		assert.True(t, invoice.IsCancelled())
		assert.NotNil(t, invoice.CancelledAt)
		assert.Equal(t, "duplicate entry", invoice.CancelReason)
	})

	t.Run("cancel requires reason", func(t *testing.T) {
		invoice := createTestInvoice(t)
		assert.Error(t, invoice.Cancel(""))
	})

	t.Run("cancel paid invoice fails", func(t *testing.T) {
		invoice := createTestInvoice(t)
		invoice.Reconcile([]Payment{newPayment(t, invoice.ID, "1000")})
		require.True(t, invoice.IsPaid())
		assert.Error(t, invoice.Cancel("too late"))
	})

	t.Run("cancelled survives reconcile", func(t *testing.T) {
		invoice := createTestInvoice(t)
		require.NoError(t, invoice.Cancel("wrong merchant"))
		invoice.Reconcile([]Payment{newPayment(t, invoice.ID, "1000")})
		assert.True(t, invoice.IsCancelled())
	})
}

func TestInvoice_MarkOverdue(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, -3)

	t.Run("past due pending invoice", func(t *testing.T) {
		invoice := createTestInvoice(t)
		invoice.DueDate = &due
		require.True(t, invoice.IsPastDue(now))

		require.NoError(t, invoice.MarkOverdue(now))
		assert.Equal(t, InvoiceStatusOverdue, invoice.Status)
	})

	t.Run("not past due fails", func(t *testing.T) {
		invoice := createTestInvoice(t)
		future := now.AddDate(0, 0, 3)
		invoice.DueDate = &future
		assert.Error(t, invoice.MarkOverdue(now))
	})

	t.Run("no due date fails", func(t *testing.T) {
		invoice := createTestInvoice(t)
		assert.Error(t, invoice.MarkOverdue(now))
	})

	t.Run("paid invoice never goes overdue", func(t *testing.T) {
		invoice := createTestInvoice(t)
		invoice.DueDate = &due
		invoice.Reconcile([]Payment{newPayment(t, invoice.ID, "1000")})
		assert.Error(t, invoice.MarkOverdue(now))
		assert.False(t, invoice.IsPastDue(now))
	})
}

func TestInvoice_Update(t *testing.T) {
	t.Run("draft amount can change", func(t *testing.T) {
		invoice, err := NewInvoice("INV-20260115-00011", uuid.New(), decimal.NewFromInt(100), time.Now(), nil, nil, "", true)
		require.NoError(t, err)

		err = invoice.Update(decimal.NewFromInt(250), nil, nil, "revised")
		require.NoError(t, err)
		assert.Equal(t, "250", invoice.Amount.String())
		assert.Equal(t, "250", invoice.RemainingAmount.String())
		assert.Equal(t, "revised", invoice.Notes)
	})

	t.Run("non-draft amount change fails", func(t *testing.T) {
		invoice := createTestInvoice(t)
		err := invoice.Update(decimal.NewFromInt(2000), nil, nil, "")
		assert.Error(t, err)
	})

	t.Run("cancelled invoice cannot be updated", func(t *testing.T) {
		invoice := createTestInvoice(t)
		require.NoError(t, invoice.Cancel("obsolete"))
		err := invoice.Update(invoice.Amount, nil, nil, "note")
		assert.Error(t, err)
	})
}

func TestLineItems_ScanValue(t *testing.T) {
	items := LineItems{
		{Name: "Widgets", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromFloat(10.50), Total: decimal.NewFromInt(21)},
	}

	value, err := items.Value()
	require.NoError(t, err)

	var scanned LineItems
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, "Widgets", scanned[0].Name)
	assert.True(t, scanned[0].Total.Equal(decimal.NewFromInt(21)))

	t.Run("nil value scans to empty", func(t *testing.T) {
		var l LineItems
		require.NoError(t, l.Scan(nil))
		assert.Empty(t, l)
	})

	t.Run("nil slice stores as empty array", func(t *testing.T) {
		var l LineItems
		v, err := l.Value()
		require.NoError(t, err)
		assert.Equal(t, "[]", v)
	})
}
