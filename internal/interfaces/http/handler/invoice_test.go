package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/daftar/backend/internal/application/billing"
	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/daftar/backend/internal/interfaces/http/dto"
)

type stubInvoiceRepo struct {
	billing.InvoiceRepository
	byID map[uuid.UUID]*billing.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{byID: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r *stubInvoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	r.byID[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) SaveWithLock(_ context.Context, inv *billing.Invoice) error {
	r.byID[inv.ID] = inv
	return nil
}

type stubPaymentRepo struct {
	billing.PaymentRepository
	byID map[uuid.UUID]*billing.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{byID: make(map[uuid.UUID]*billing.Payment)}
}

func (r *stubPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *stubPaymentRepo) Save(_ context.Context, p *billing.Payment) error {
	r.byID[p.ID] = p
	return nil
}

func (r *stubPaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubPaymentRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	out := make([]billing.Payment, 0)
	for _, p := range r.byID {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func newBillingRouter(invoiceRepo *stubInvoiceRepo, paymentRepo *stubPaymentRepo) *gin.Engine {
	engine := gin.New()
	paymentService := billingapp.NewPaymentService(invoiceRepo, paymentRepo)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, paymentRepo, nil)
	api := engine.Group("/api/v1")
	NewInvoiceHandler(invoiceService, paymentService).RegisterRoutes(api)
	NewPaymentHandler(paymentService).RegisterRoutes(api)
	return engine
}

func mustPendingInvoice(t *testing.T, amount string) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(
		"INV-20260115-00001",
		uuid.New(),
		decimal.RequireFromString(amount),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		nil,
		nil,
		"",
		false,
	)
	require.NoError(t, err)
	return inv
}

func TestInvoiceHandlerRecordPayment(t *testing.T) {
	t.Run("partial payment reconciles invoice", func(t *testing.T) {
		invoiceRepo := newStubInvoiceRepo()
		paymentRepo := newStubPaymentRepo()
		inv := mustPendingInvoice(t, "1000")
		require.NoError(t, invoiceRepo.Save(context.Background(), inv))

		router := newBillingRouter(invoiceRepo, paymentRepo)

		body := `{"amount":"300","method":"cash"}`
		req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/payments", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		invoice := data["invoice"].(map[string]any)
		assert.Equal(t, "partially_paid", invoice["status"])
		assert.Equal(t, "300", invoice["paid_amount"])
		assert.Equal(t, "700", invoice["remaining_amount"])
	})

	t.Run("settling payment marks invoice paid", func(t *testing.T) {
		invoiceRepo := newStubInvoiceRepo()
		paymentRepo := newStubPaymentRepo()
		inv := mustPendingInvoice(t, "500")
		require.NoError(t, invoiceRepo.Save(context.Background(), inv))

		router := newBillingRouter(invoiceRepo, paymentRepo)

		body := `{"amount":"500","method":"bank_transfer"}`
		req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/payments", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		invoice := resp.Data.(map[string]any)["invoice"].(map[string]any)
		assert.Equal(t, "paid", invoice["status"])
	})

	t.Run("unknown method rejected at binding", func(t *testing.T) {
		invoiceRepo := newStubInvoiceRepo()
		inv := mustPendingInvoice(t, "500")
		require.NoError(t, invoiceRepo.Save(context.Background(), inv))

		router := newBillingRouter(invoiceRepo, newStubPaymentRepo())

		body := `{"amount":"500","method":"barter"}`
		req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/payments", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown invoice is 404", func(t *testing.T) {
		router := newBillingRouter(newStubInvoiceRepo(), newStubPaymentRepo())

		body := `{"amount":"500","method":"cash"}`
		req := httptest.NewRequest("POST", "/api/v1/invoices/"+uuid.NewString()+"/payments", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPaymentHandlerRemove(t *testing.T) {
	invoiceRepo := newStubInvoiceRepo()
	paymentRepo := newStubPaymentRepo()
	inv := mustPendingInvoice(t, "1000")
	require.NoError(t, invoiceRepo.Save(context.Background(), inv))

	router := newBillingRouter(invoiceRepo, paymentRepo)

	// record, then remove the payment again
	body := `{"amount":"1000","method":"cash"}`
	req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/payments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var recorded dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recorded))
	paymentID := recorded.Data.(map[string]any)["payment"].(map[string]any)["id"].(string)

	req = httptest.NewRequest("DELETE", "/api/v1/payments/"+paymentID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	invoice := resp.Data.(map[string]any)
	assert.Equal(t, "pending", invoice["status"])
	assert.Equal(t, "0", invoice["paid_amount"])
}

func TestInvoiceHandlerPercentage(t *testing.T) {
	invoiceRepo := newStubInvoiceRepo()
	paymentRepo := newStubPaymentRepo()
	inv := mustPendingInvoice(t, "1000")
	require.NoError(t, invoiceRepo.Save(context.Background(), inv))

	router := newBillingRouter(invoiceRepo, paymentRepo)

	body := `{"amount":"250","method":"cash"}`
	req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/payments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req = httptest.NewRequest("GET", "/api/v1/invoices/"+inv.ID.String()+"/percentage", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, inv.ID.String(), data["invoice_id"])
	assert.Equal(t, "25", data["percentage"])
}

func TestInvoiceHandlerCancel(t *testing.T) {
	invoiceRepo := newStubInvoiceRepo()
	inv := mustPendingInvoice(t, "250")
	require.NoError(t, invoiceRepo.Save(context.Background(), inv))

	router := newBillingRouter(invoiceRepo, newStubPaymentRepo())

	t.Run("missing reason rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/cancel", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cancels with reason", func(t *testing.T) {
		body := `{"reason":"duplicate entry"}`
		req := httptest.NewRequest("POST", "/api/v1/invoices/"+inv.ID.String()+"/cancel", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "cancelled", resp.Data.(map[string]any)["status"])
	})
}
