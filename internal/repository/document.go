package repository

import (
	"context"
	"errors"

	"coiapi/internal/model"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentRepository defines data access for uploaded vendor documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record, including its parse results and violations.
	// Returns the stored document (may include values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByVendor returns a vendor's documents, newest first, with the total count.
	ListByVendor(ctx context.Context, vendorID string, pq PageQuery) (*PageResult[model.Document], error)

	// LatestByVendor returns the most recent document of the given type for a vendor.
	LatestByVendor(ctx context.Context, vendorID string, docType model.DocumentType) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
