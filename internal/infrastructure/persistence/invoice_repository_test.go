package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGormInvoiceRepository_NextSequenceForDate(t *testing.T) {
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("starts at one for a fresh day", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		mock.ExpectQuery(`SELECT MAX\(invoice_number\) FROM "invoices" WHERE invoice_number LIKE \$1`).
			WithArgs("INV-20260115-%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		seq, err := repo.NextSequenceForDate(context.Background(), date)

		assert.NoError(t, err)
		assert.Equal(t, int64(1), seq)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("continues from the day's highest number", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		mock.ExpectQuery(`SELECT MAX\(invoice_number\) FROM "invoices" WHERE invoice_number LIKE \$1`).
			WithArgs("INV-20260115-%").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow("INV-20260115-00012"))

		seq, err := repo.NextSequenceForDate(context.Background(), date)

		assert.NoError(t, err)
		assert.Equal(t, int64(13), seq)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindByNumber(t *testing.T) {
	t.Run("returns ErrNotFound for unknown number", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE invoice_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("INV-20260115-00099", 1).
			WillReturnError(sqlmock.ErrCancelled)

		_, err := repo.FindByNumber(context.Background(), "INV-20260115-00099")
		assert.Error(t, err)
	})

	t.Run("finds invoice by number", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		invoiceID := uuid.New()
		merchantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "invoice_number", "merchant_id", "amount", "paid_amount", "remaining_amount", "status", "version"}).
			AddRow(invoiceID, "INV-20260115-00001", merchantID, decimal.NewFromInt(1000), decimal.NewFromInt(300), decimal.NewFromInt(700), "partially_paid", 2)

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE invoice_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("INV-20260115-00001", 1).
			WillReturnRows(rows)

		invoice, err := repo.FindByNumber(context.Background(), "INV-20260115-00001")

		assert.NoError(t, err)
		assert.Equal(t, invoiceID, invoice.ID)
		assert.Equal(t, billing.InvoiceStatusPartiallyPaid, invoice.Status)
		assert.True(t, invoice.RemainingAmount.Equal(decimal.NewFromInt(700)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRepository_Delete(t *testing.T) {
	t.Run("returns ErrNotFound when nothing deleted", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(gormDB)

		paymentID := uuid.New()

		mock.ExpectExec(`DELETE FROM "payments" WHERE id = \$1`).
			WithArgs(paymentID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), paymentID)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
