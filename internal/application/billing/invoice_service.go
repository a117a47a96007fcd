package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/partner"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	invoicesTable = "invoices"
	paymentsTable = "payments"
)

// InvoiceService handles invoice-related business operations
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	merchantRepo   partner.MerchantRepository
	eventPublisher shared.EventPublisher
	changeNotifier shared.ChangeNotifier
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	merchantRepo partner.MerchantRepository,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		merchantRepo: merchantRepo,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetChangeNotifier sets the change notifier for the change stream
func (s *InvoiceService) SetChangeNotifier(notifier shared.ChangeNotifier) {
	s.changeNotifier = notifier
}

// Create creates a new invoice for a merchant, assigning the next
// INV-YYYYMMDD-NNNNN number for the issue date.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	merchant, err := s.merchantRepo.FindByID(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsActive() {
		return nil, shared.NewDomainError("MERCHANT_NOT_ACTIVE", "Cannot create invoices for an inactive merchant")
	}

	issueDate := time.Now()
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}

	seq, err := s.invoiceRepo.NextSequenceForDate(ctx, issueDate)
	if err != nil {
		return nil, err
	}
	invoiceNumber := fmt.Sprintf("INV-%s-%05d", issueDate.Format("20060102"), seq)

	invoice, err := billing.NewInvoice(
		invoiceNumber,
		merchant.ID,
		req.Amount,
		issueDate,
		req.DueDate,
		toLineItems(req.LineItems),
		req.Notes,
		req.Draft,
	)
	if err != nil {
		return nil, err
	}
	invoice.MerchantName = merchant.Name

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, invoice)
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpInsert, invoice.ID)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves an invoice with its payments
func (s *InvoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDetailResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	return &InvoiceDetailResponse{
		InvoiceResponse: ToInvoiceResponse(invoice),
		Payments:        ToPaymentResponses(payments),
	}, nil
}

// GetByNumber retrieves an invoice by its invoice number
func (s *InvoiceService) GetByNumber(ctx context.Context, invoiceNumber string) (*InvoiceDetailResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	return &InvoiceDetailResponse{
		InvoiceResponse: ToInvoiceResponse(invoice),
		Payments:        ToPaymentResponses(payments),
	}, nil
}

// List retrieves a list of invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "issue_date"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.MerchantID != "" {
		merchantID, err := uuid.Parse(filter.MerchantID)
		if err != nil {
			return nil, 0, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID is not a valid UUID")
		}
		domainFilter.Filters["merchant_id"] = merchantID
	}
	if filter.From != "" {
		from, err := time.Parse("2006-01-02", filter.From)
		if err != nil {
			return nil, 0, shared.NewDomainError("INVALID_DATE_RANGE", "From date must be YYYY-MM-DD")
		}
		domainFilter.Filters["issued_from"] = from
	}
	if filter.To != "" {
		to, err := time.Parse("2006-01-02", filter.To)
		if err != nil {
			return nil, 0, shared.NewDomainError("INVALID_DATE_RANGE", "To date must be YYYY-MM-DD")
		}
		// exclusive upper bound, the day after the requested date
		domainFilter.Filters["issued_to"] = to.AddDate(0, 0, 1)
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToInvoiceResponses(invoices), total, nil
}

// Update updates an invoice's mutable details
func (s *InvoiceService) Update(ctx context.Context, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	amount := invoice.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	dueDate := invoice.DueDate
	if req.DueDate != nil {
		dueDate = req.DueDate
	}
	lineItems := invoice.LineItems
	if req.LineItems != nil {
		lineItems = toLineItems(req.LineItems)
	}
	notes := invoice.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	if err := invoice.Update(amount, dueDate, lineItems, notes); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, invoice)
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpUpdate, invoice.ID)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// Issue moves a draft invoice into circulation
func (s *InvoiceService) Issue(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Issue(); err != nil {
		return nil, err
	}

	// issued invoices pick up payments that were recorded while drafted
	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Reconcile(payments)

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, invoice)
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpUpdate, invoice.ID)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// Cancel cancels an invoice
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Cancel(req.Reason); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, invoice)
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpUpdate, invoice.ID)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// Delete deletes an invoice. Its payments are removed by the database
// cascade.
func (s *InvoiceService) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}

	if err := s.invoiceRepo.Delete(ctx, invoice.ID); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, billing.NewInvoiceDeletedEvent(invoice))
	}
	s.notifyChange(ctx, invoicesTable, shared.ChangeOpDelete, invoice.ID)

	return nil
}

// publishDomainEvents publishes all domain events from the invoice
func (s *InvoiceService) publishDomainEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
	invoice.ClearDomainEvents()
}

func (s *InvoiceService) notifyChange(ctx context.Context, table, op string, id uuid.UUID) {
	if s.changeNotifier == nil {
		return
	}
	_ = s.changeNotifier.NotifyChange(ctx, table, op, id)
}
