package partner

import (
	"regexp"
	"time"

	"github.com/daftar/backend/internal/domain/shared"
)

// MerchantStatus represents the status of a merchant
type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "active"
	MerchantStatusSuspended MerchantStatus = "suspended" // Suspended due to unsettled balances
	MerchantStatusInactive  MerchantStatus = "inactive"
)

// IsValid checks if the merchant status is a known value
func (s MerchantStatus) IsValid() bool {
	switch s {
	case MerchantStatusActive, MerchantStatusSuspended, MerchantStatusInactive:
		return true
	}
	return false
}

// MerchantCategory represents the line of business of a merchant
type MerchantCategory string

const (
	MerchantCategoryRetail    MerchantCategory = "retail"
	MerchantCategoryWholesale MerchantCategory = "wholesale"
	MerchantCategoryServices  MerchantCategory = "services"
)

// IsValid checks if the merchant category is a known value
func (c MerchantCategory) IsValid() bool {
	switch c {
	case MerchantCategoryRetail, MerchantCategoryWholesale, MerchantCategoryServices:
		return true
	}
	return false
}

// Merchant represents a merchant in the partner context.
// It is the aggregate root for merchant-related operations.
type Merchant struct {
	shared.BaseAggregateRoot
	Name     string           `gorm:"type:varchar(200);not null;index"`
	Phone    string           `gorm:"type:varchar(50);index"`
	Email    string           `gorm:"type:varchar(200);index"`
	Address  string           `gorm:"type:text"`
	Category MerchantCategory `gorm:"type:varchar(20);not null;default:'retail'"`
	Status   MerchantStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	JoinedAt time.Time        `gorm:"not null"`
	Notes    string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Merchant) TableName() string {
	return "merchants"
}

// NewMerchant creates a new merchant with required fields
func NewMerchant(name string, category MerchantCategory) (*Merchant, error) {
	if err := validateMerchantName(name); err != nil {
		return nil, err
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Merchant category must be 'retail', 'wholesale', or 'services'")
	}

	merchant := &Merchant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Category:          category,
		Status:            MerchantStatusActive,
		JoinedAt:          time.Now(),
	}

	merchant.AddDomainEvent(NewMerchantCreatedEvent(merchant))

	return merchant, nil
}

// Update updates the merchant's basic information
func (m *Merchant) Update(name string, category MerchantCategory) error {
	if err := validateMerchantName(name); err != nil {
		return err
	}
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", "Merchant category must be 'retail', 'wholesale', or 'services'")
	}

	m.Name = name
	m.Category = category
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMerchantUpdatedEvent(m))

	return nil
}

// SetContact sets the merchant's contact information
func (m *Merchant) SetContact(phone, email, address string) error {
	if phone != "" {
		if err := validateMerchantPhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateMerchantEmail(email); err != nil {
			return err
		}
	}
	if address != "" && len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}

	m.Phone = phone
	m.Email = email
	m.Address = address
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}

// SetNotes sets the merchant's notes
func (m *Merchant) SetNotes(notes string) {
	m.Notes = notes
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}

// Activate activates the merchant
func (m *Merchant) Activate() error {
	if m.Status == MerchantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Merchant is already active")
	}

	oldStatus := m.Status
	m.Status = MerchantStatusActive
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMerchantStatusChangedEvent(m, oldStatus, MerchantStatusActive))

	return nil
}

// Suspend suspends the merchant
func (m *Merchant) Suspend() error {
	if m.Status == MerchantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Merchant is already suspended")
	}

	oldStatus := m.Status
	m.Status = MerchantStatusSuspended
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMerchantStatusChangedEvent(m, oldStatus, MerchantStatusSuspended))

	return nil
}

// Deactivate deactivates the merchant
func (m *Merchant) Deactivate() error {
	if m.Status == MerchantStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Merchant is already inactive")
	}

	oldStatus := m.Status
	m.Status = MerchantStatusInactive
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMerchantStatusChangedEvent(m, oldStatus, MerchantStatusInactive))

	return nil
}

// IsActive returns true if the merchant is active
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}

// IsSuspended returns true if the merchant is suspended
func (m *Merchant) IsSuspended() bool {
	return m.Status == MerchantStatusSuspended
}

// Validation functions

func validateMerchantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Merchant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Merchant name cannot exceed 200 characters")
	}
	return nil
}

func validateMerchantPhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	if !validPhone.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	return nil
}

func validateMerchantEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
