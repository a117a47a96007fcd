package billing

import (
	"context"
	"time"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentService records and removes payments and keeps the owning
// invoice reconciled. Derived state is always recomputed from the full
// payment list, never adjusted incrementally.
type PaymentService struct {
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	eventPublisher shared.EventPublisher
	changeNotifier shared.ChangeNotifier
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetChangeNotifier sets the change notifier for the change stream
func (s *PaymentService) SetChangeNotifier(notifier shared.ChangeNotifier) {
	s.changeNotifier = notifier
}

// Record records a payment against an invoice and reconciles the
// invoice's paid amount, remaining balance and status.
func (s *PaymentService) Record(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (*RecordPaymentResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanRecordPayment() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot record payments for an invoice in "+invoice.Status.String()+" status")
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	payment, err := billing.NewPayment(invoice.ID, req.Amount, billing.PaymentMethod(req.Method), paidAt, req.Notes)
	if err != nil {
		return nil, err
	}
	payment.MerchantID = invoice.MerchantID

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}

	// refetch the full payment list so totals are derived from stored
	// rows rather than in-memory arithmetic
	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Reconcile(payments)

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, billing.NewPaymentRecordedEvent(payment))
	}
	s.publishDomainEvents(ctx, invoice)
	s.notifyChange(ctx, paymentsTable, shared.ChangeOpInsert, payment.ID)
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpUpdate, invoice.ID)

	return &RecordPaymentResponse{
		Payment: ToPaymentResponse(payment),
		Invoice: ToInvoiceResponse(invoice),
	}, nil
}

// Remove deletes a payment and reconciles the invoice it belonged to.
// A fully paid invoice reopens when a payment is removed.
func (s *PaymentService) Remove(ctx context.Context, paymentID uuid.UUID) (*InvoiceResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, payment.InvoiceID)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Delete(ctx, payment.ID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Reconcile(payments)

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, billing.NewPaymentRemovedEvent(payment))
	}
	s.publishDomainEvents(ctx, invoice)
	s.notifyChange(ctx, paymentsTable, shared.ChangeOpDelete, payment.ID)
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpUpdate, invoice.ID)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves a payment by ID
func (s *PaymentService) GetByID(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	response := ToPaymentResponse(payment)
	return &response, nil
}

// ListByInvoice retrieves all payments for an invoice
func (s *PaymentService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.invoiceRepo.FindByID(ctx, invoiceID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return ToPaymentResponses(payments), nil
}

// List retrieves payments with filtering and pagination
func (s *PaymentService) List(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "paid_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]any),
	}
	if filter.Method != "" {
		domainFilter.Filters["method"] = filter.Method
	}
	if filter.From != "" {
		domainFilter.Filters["paid_from"] = filter.From
	}
	if filter.To != "" {
		domainFilter.Filters["paid_to"] = filter.To
	}

	payments, err := s.paymentRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.paymentRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToPaymentResponses(payments), total, nil
}

// publishDomainEvents publishes all domain events from the invoice
func (s *PaymentService) publishDomainEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	invoice.ClearDomainEvents()
}

func (s *PaymentService) notifyChange(ctx context.Context, table, op string, id uuid.UUID) {
	if s.changeNotifier == nil {
		return
	}
	_ = s.changeNotifier.NotifyChange(ctx, table, op, id)
}
