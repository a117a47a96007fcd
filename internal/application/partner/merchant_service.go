package partner

import (
	"context"

	"github.com/daftar/backend/internal/domain/partner"
	"github.com/daftar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const merchantsTable = "merchants"

// MerchantService handles merchant-related business operations
type MerchantService struct {
	merchantRepo   partner.MerchantRepository
	eventPublisher shared.EventPublisher
	changeNotifier shared.ChangeNotifier
}

// NewMerchantService creates a new MerchantService
func NewMerchantService(merchantRepo partner.MerchantRepository) *MerchantService {
	return &MerchantService{
		merchantRepo: merchantRepo,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *MerchantService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetChangeNotifier sets the change notifier for the change stream
func (s *MerchantService) SetChangeNotifier(notifier shared.ChangeNotifier) {
	s.changeNotifier = notifier
}

// Create creates a new merchant
func (s *MerchantService) Create(ctx context.Context, req CreateMerchantRequest) (*MerchantResponse, error) {
	exists, err := s.merchantRepo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Merchant with this name already exists")
	}

	merchant, err := partner.NewMerchant(req.Name, partner.MerchantCategory(req.Category))
	if err != nil {
		return nil, err
	}

	if req.Phone != "" || req.Email != "" || req.Address != "" {
		if err := merchant.SetContact(req.Phone, req.Email, req.Address); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		merchant.SetNotes(req.Notes)
	}

	if err := s.merchantRepo.Save(ctx, merchant); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, merchant)
	s.notifyChange(ctx, shared.ChangeOpInsert, merchant.ID)

	response := ToMerchantResponse(merchant)
	return &response, nil
}

// GetByID retrieves a merchant by ID
func (s *MerchantService) GetByID(ctx context.Context, merchantID uuid.UUID) (*MerchantResponse, error) {
	merchant, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	response := ToMerchantResponse(merchant)
	return &response, nil
}

// List retrieves a list of merchants with filtering and pagination
func (s *MerchantService) List(ctx context.Context, filter MerchantListFilter) ([]MerchantResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
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
	if filter.Category != "" {
		domainFilter.Filters["category"] = filter.Category
	}

	merchants, err := s.merchantRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.merchantRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToMerchantResponses(merchants), total, nil
}

// Update updates a merchant
func (s *MerchantService) Update(ctx context.Context, merchantID uuid.UUID, req UpdateMerchantRequest) (*MerchantResponse, error) {
	merchant, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Category != nil {
		name := merchant.Name
		category := merchant.Category
		if req.Name != nil {
			if *req.Name != merchant.Name {
				exists, err := s.merchantRepo.ExistsByName(ctx, *req.Name)
				if err != nil {
					return nil, err
				}
				if exists {
					return nil, shared.NewDomainError("ALREADY_EXISTS", "Merchant with this name already exists")
				}
			}
			name = *req.Name
		}
		if req.Category != nil {
			category = partner.MerchantCategory(*req.Category)
		}
		if err := merchant.Update(name, category); err != nil {
			return nil, err
		}
	}

	if req.Phone != nil || req.Email != nil || req.Address != nil {
		phone := merchant.Phone
		email := merchant.Email
		address := merchant.Address
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = *req.Email
		}
		if req.Address != nil {
			address = *req.Address
		}
		if err := merchant.SetContact(phone, email, address); err != nil {
			return nil, err
		}
	}

	if req.Notes != nil {
		merchant.SetNotes(*req.Notes)
	}

	if err := s.merchantRepo.SaveWithLock(ctx, merchant); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, merchant)
	s.notifyChange(ctx, shared.ChangeOpUpdate, merchant.ID)

	response := ToMerchantResponse(merchant)
	return &response, nil
}

// UpdateStatus transitions a merchant to the requested status
func (s *MerchantService) UpdateStatus(ctx context.Context, merchantID uuid.UUID, req UpdateMerchantStatusRequest) (*MerchantResponse, error) {
	merchant, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	switch partner.MerchantStatus(req.Status) {
	case partner.MerchantStatusActive:
		err = merchant.Activate()
	case partner.MerchantStatusSuspended:
		err = merchant.Suspend()
	case partner.MerchantStatusInactive:
		err = merchant.Deactivate()
	default:
		err = shared.NewDomainError("INVALID_STATUS", "Unknown merchant status")
	}
	if err != nil {
		return nil, err
	}

	if err := s.merchantRepo.SaveWithLock(ctx, merchant); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, merchant)
	s.notifyChange(ctx, shared.ChangeOpUpdate, merchant.ID)

	response := ToMerchantResponse(merchant)
	return &response, nil
}

// Delete deletes a merchant. Invoices and payments belonging to the
// merchant are removed by the database cascade.
func (s *MerchantService) Delete(ctx context.Context, merchantID uuid.UUID) error {
	merchant, err := s.merchantRepo.FindByID(ctx, merchantID)
	if err != nil {
		return err
	}

	if err := s.merchantRepo.Delete(ctx, merchant.ID); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, partner.NewMerchantDeletedEvent(merchant))
	}
	s.notifyChange(ctx, shared.ChangeOpDelete, merchant.ID)

	return nil
}

// publishDomainEvents publishes all domain events from the merchant
func (s *MerchantService) publishDomainEvents(ctx context.Context, merchant *partner.Merchant) {
	if s.eventPublisher == nil {
		return
	}
	events := merchant.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
	merchant.ClearDomainEvents()
}

func (s *MerchantService) notifyChange(ctx context.Context, op string, id uuid.UUID) {
	if s.changeNotifier == nil {
		return
	}
	_ = s.changeNotifier.NotifyChange(ctx, merchantsTable, op, id)
}
