package billing

import (
	"time"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Invoice DTOs
// =============================================================================

// LineItemRequest represents a single invoice line in a request
type LineItemRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	Total       decimal.Decimal `json:"total" binding:"required"`
}

// CreateInvoiceRequest represents a request to create a new invoice
type CreateInvoiceRequest struct {
	MerchantID uuid.UUID         `json:"merchant_id" binding:"required"`
	Amount     decimal.Decimal   `json:"amount" binding:"required"`
	IssueDate  *time.Time        `json:"issue_date"`
	DueDate    *time.Time        `json:"due_date"`
	LineItems  []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
	Notes      string            `json:"notes"`
	Draft      bool              `json:"draft"`
}

// UpdateInvoiceRequest represents a request to update an invoice
type UpdateInvoiceRequest struct {
	Amount    *decimal.Decimal  `json:"amount"`
	DueDate   *time.Time        `json:"due_date"`
	LineItems []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
	Notes     *string           `json:"notes"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// InvoiceListFilter represents filter options for listing invoices
type InvoiceListFilter struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir"`
	Search     string `form:"search"`
	MerchantID string `form:"merchant_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=draft pending partially_paid paid overdue cancelled"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// LineItemResponse represents a single invoice line in responses
type LineItemResponse struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                uuid.UUID          `json:"id"`
	InvoiceNumber     string             `json:"invoice_number"`
	MerchantID        uuid.UUID          `json:"merchant_id"`
	MerchantName      string             `json:"merchant_name"`
	Amount            decimal.Decimal    `json:"amount"`
	PaidAmount        decimal.Decimal    `json:"paid_amount"`
	RemainingAmount   decimal.Decimal    `json:"remaining_amount"`
	PaymentPercentage decimal.Decimal    `json:"payment_percentage"`
	Status            string             `json:"status"`
	IssueDate         time.Time          `json:"issue_date"`
	DueDate           *time.Time         `json:"due_date"`
	LineItems         []LineItemResponse `json:"line_items"`
	Notes             string             `json:"notes"`
	PaidAt            *time.Time         `json:"paid_at"`
	CancelledAt       *time.Time         `json:"cancelled_at"`
	CancelReason      string             `json:"cancel_reason,omitempty"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// InvoiceDetailResponse is an invoice with its payments
type InvoiceDetailResponse struct {
	InvoiceResponse
	Payments []PaymentResponse `json:"payments"`
}

// ToInvoiceResponse converts a domain invoice to a response DTO
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, LineItemResponse{
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}

	return InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		MerchantID:        inv.MerchantID,
		MerchantName:      inv.MerchantName,
		Amount:            inv.Amount,
		PaidAmount:        inv.PaidAmount,
		RemainingAmount:   inv.RemainingAmount,
		PaymentPercentage: inv.PaymentPercentage().Round(2),
		Status:            string(inv.Status),
		IssueDate:         inv.IssueDate,
		DueDate:           inv.DueDate,
		LineItems:         items,
		Notes:             inv.Notes,
		PaidAt:            inv.PaidAt,
		CancelledAt:       inv.CancelledAt,
		CancelReason:      inv.CancelReason,
		Version:           inv.GetVersion(),
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

// ToInvoiceResponses converts a slice of domain invoices to response DTOs
func ToInvoiceResponses(invoices []billing.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, ToInvoiceResponse(&invoices[i]))
	}
	return responses
}

// toLineItems converts request line items to the domain representation
func toLineItems(items []LineItemRequest) billing.LineItems {
	if len(items) == 0 {
		return nil
	}
	result := make(billing.LineItems, 0, len(items))
	for _, item := range items {
		result = append(result, billing.LineItem{
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	return result
}

// =============================================================================
// Payment DTOs
// =============================================================================

// RecordPaymentRequest represents a request to record a payment against an invoice
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required,oneof=cash bank_transfer cheque credit_card"`
	PaidAt *time.Time      `json:"paid_at"`
	Notes  string          `json:"notes"`
}

// PaymentListFilter represents filter options for listing payments
type PaymentListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Method   string `form:"method" binding:"omitempty,oneof=cash bank_transfer cheque credit_card"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	PaidAt     time.Time       `json:"paid_at"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RecordPaymentResponse is the payment together with the reconciled invoice
type RecordPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// ToPaymentResponse converts a domain payment to a response DTO
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		MerchantID: p.MerchantID,
		Amount:     p.Amount,
		Method:     string(p.Method),
		PaidAt:     p.PaidAt,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
	}
}

// ToPaymentResponses converts a slice of domain payments to response DTOs
func ToPaymentResponses(payments []billing.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, ToPaymentResponse(&payments[i]))
	}
	return responses
}

// =============================================================================
// Stats DTOs
// =============================================================================

// StatusCount is a count of invoices in one status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// OverallStatsResponse aggregates billing figures across all merchants
type OverallStatsResponse struct {
	MerchantCount    int64           `json:"merchant_count"`
	InvoiceCount     int64           `json:"invoice_count"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	StatusCounts     []StatusCount   `json:"status_counts"`
}

// MerchantStatsResponse aggregates billing figures for one merchant
type MerchantStatsResponse struct {
	MerchantID       uuid.UUID       `json:"merchant_id"`
	InvoiceCount     int64           `json:"invoice_count"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	PaidPercentage   decimal.Decimal `json:"paid_percentage"`
	StatusCounts     []StatusCount   `json:"status_counts"`
}

// =============================================================================
// Resync DTOs
// =============================================================================

// ResyncResult summarizes a maintenance resync run
type ResyncResult struct {
	InvoicesChecked int `json:"invoices_checked"`
	AmountsFixed    int `json:"amounts_fixed"`
	StatusesFixed   int `json:"statuses_fixed"`
	MarkedOverdue   int `json:"marked_overdue"`
}
