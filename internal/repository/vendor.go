package repository

import (
	"context"
	"time"

	"coiapi/internal/model"
)

// COIState is the vendor-side result of a certificate upload.
type COIState struct {
	Status       model.DocumentStatus
	Expiry       model.Optional[time.Time]
	ExpirySource model.ExpirySource
}

// VendorRepository persists vendors and their document status fields.
type VendorRepository interface {
	// Create inserts a vendor. Vendors start with both documents MISSING unless set.
	Create(ctx context.Context, v *model.Vendor) (*model.Vendor, error)

	// FindByID returns a vendor or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Vendor, error)

	// ListWithCOIExpiry returns non-exempt vendors that have a COI expiry on record.
	ListWithCOIExpiry(ctx context.Context) ([]model.Vendor, error)

	// SetW9Status updates the W-9 status of a vendor.
	SetW9Status(ctx context.Context, id string, status model.DocumentStatus) error

	// SetCOIState updates the COI status, expiry and expiry provenance of a vendor.
	SetCOIState(ctx context.Context, id string, state COIState) error
}
