package partner

import (
	"time"

	"github.com/daftar/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// CreateMerchantRequest represents a request to create a new merchant
type CreateMerchantRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Category string `json:"category" binding:"required,oneof=retail wholesale services"`
	Phone    string `json:"phone" binding:"max=50"`
	Email    string `json:"email" binding:"omitempty,email,max=200"`
	Address  string `json:"address" binding:"max=500"`
	Notes    string `json:"notes"`
}

// UpdateMerchantRequest represents a request to update a merchant
type UpdateMerchantRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Category *string `json:"category" binding:"omitempty,oneof=retail wholesale services"`
	Phone    *string `json:"phone" binding:"omitempty,max=50"`
	Email    *string `json:"email" binding:"omitempty,email,max=200"`
	Address  *string `json:"address" binding:"omitempty,max=500"`
	Notes    *string `json:"notes"`
}

// UpdateMerchantStatusRequest represents a request to change a merchant's status
type UpdateMerchantStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended inactive"`
}

// MerchantListFilter represents filter options for listing merchants
type MerchantListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active suspended inactive"`
	Category string `form:"category" binding:"omitempty,oneof=retail wholesale services"`
}

// MerchantResponse represents a merchant in API responses
type MerchantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at"`
	Notes     string    `json:"notes"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToMerchantResponse converts a domain merchant to a response DTO
func ToMerchantResponse(m *partner.Merchant) MerchantResponse {
	return MerchantResponse{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Email:     m.Email,
		Address:   m.Address,
		Category:  string(m.Category),
		Status:    string(m.Status),
		JoinedAt:  m.JoinedAt,
		Notes:     m.Notes,
		Version:   m.GetVersion(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToMerchantResponses converts a slice of domain merchants to response DTOs
func ToMerchantResponses(merchants []partner.Merchant) []MerchantResponse {
	responses := make([]MerchantResponse, 0, len(merchants))
	for i := range merchants {
		responses = append(responses, ToMerchantResponse(&merchants[i]))
	}
	return responses
}
