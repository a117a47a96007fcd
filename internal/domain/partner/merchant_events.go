package partner

import (
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeMerchant = "Merchant"

// Event type constants
const (
	EventTypeMerchantCreated       = "MerchantCreated"
	EventTypeMerchantUpdated       = "MerchantUpdated"
	EventTypeMerchantStatusChanged = "MerchantStatusChanged"
	EventTypeMerchantDeleted       = "MerchantDeleted"
)

// MerchantCreatedEvent is published when a new merchant is created
type MerchantCreatedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID        `json:"merchant_id"`
	Name       string           `json:"name"`
	Category   MerchantCategory `json:"category"`
}

// NewMerchantCreatedEvent creates a new MerchantCreatedEvent
func NewMerchantCreatedEvent(merchant *Merchant) *MerchantCreatedEvent {
	return &MerchantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantCreated, AggregateTypeMerchant, merchant.ID),
		MerchantID:      merchant.ID,
		Name:            merchant.Name,
		Category:        merchant.Category,
	}
}

// MerchantUpdatedEvent is published when a merchant is updated
type MerchantUpdatedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID        `json:"merchant_id"`
	Name       string           `json:"name"`
	Category   MerchantCategory `json:"category"`
	Phone      string           `json:"phone,omitempty"`
	Email      string           `json:"email,omitempty"`
}

// NewMerchantUpdatedEvent creates a new MerchantUpdatedEvent
func NewMerchantUpdatedEvent(merchant *Merchant) *MerchantUpdatedEvent {
	return &MerchantUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantUpdated, AggregateTypeMerchant, merchant.ID),
		MerchantID:      merchant.ID,
		Name:            merchant.Name,
		Category:        merchant.Category,
		Phone:           merchant.Phone,
		Email:           merchant.Email,
	}
}

// MerchantStatusChangedEvent is published when a merchant's status changes
type MerchantStatusChangedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID      `json:"merchant_id"`
	Name       string         `json:"name"`
	OldStatus  MerchantStatus `json:"old_status"`
	NewStatus  MerchantStatus `json:"new_status"`
}

// NewMerchantStatusChangedEvent creates a new MerchantStatusChangedEvent
func NewMerchantStatusChangedEvent(merchant *Merchant, oldStatus, newStatus MerchantStatus) *MerchantStatusChangedEvent {
	return &MerchantStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantStatusChanged, AggregateTypeMerchant, merchant.ID),
		MerchantID:      merchant.ID,
		Name:            merchant.Name,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// MerchantDeletedEvent is published when a merchant is deleted
type MerchantDeletedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID `json:"merchant_id"`
	Name       string    `json:"name"`
}

// NewMerchantDeletedEvent creates a new MerchantDeletedEvent
func NewMerchantDeletedEvent(merchant *Merchant) *MerchantDeletedEvent {
	return &MerchantDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantDeleted, AggregateTypeMerchant, merchant.ID),
		MerchantID:      merchant.ID,
		Name:            merchant.Name,
	}
}
