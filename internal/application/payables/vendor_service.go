package payables

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/ledgerline/backend/internal/domain/payables"
	"github.com/ledgerline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// VendorService owns the small vendor surface the payables engine needs
type VendorService struct {
	repos  domain.Repositories
	logger *zap.Logger
}

// NewVendorService creates a new VendorService
func NewVendorService(repos domain.Repositories, logger *zap.Logger) *VendorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VendorService{repos: repos, logger: logger}
}

// CreateVendor registers a vendor for the business
func (s *VendorService) CreateVendor(ctx context.Context, businessID, actorID uuid.UUID, name, notes string) (*domain.Vendor, error) {
	vendor, err := domain.NewVendor(businessID, name)
	if err != nil {
		return nil, err
	}
	vendor.SetCreatedBy(actorID)
	if notes != "" {
		vendor.SetNotes(notes)
	}
	if err := s.repos.Vendors.Save(ctx, vendor); err != nil {
		return nil, fmt.Errorf("failed to save vendor: %w", err)
	}
	return vendor, nil
}

// GetVendor returns one vendor
func (s *VendorService) GetVendor(ctx context.Context, businessID, vendorID uuid.UUID) (*domain.Vendor, error) {
	vendor, err := s.repos.Vendors.FindByIDForBusiness(ctx, businessID, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor: %w", err)
	}
	if vendor == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Vendor not found")
	}
	return vendor, nil
}

// ListVendors lists the business's vendors
func (s *VendorService) ListVendors(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]domain.Vendor, error) {
	if filter.Page < 1 {
		filter = shared.DefaultFilter()
	}
	vendors, err := s.repos.Vendors.FindAllForBusiness(ctx, businessID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, nil
}
