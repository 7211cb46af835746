package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"coiapi/internal/model"
	"coiapi/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// Parse results and violations are stored as JSONB next to the file metadata.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, vendor_id, type, filename, storage_path, size, content_type,
		parsed_data, violations, compliance_status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var (
		d          model.Document
		parsed     []byte
		violations []byte
	)
	if err := s.Scan(
		&d.ID,
		&d.VendorID,
		&d.Type,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&parsed,
		&violations,
		&d.ComplianceStatus,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(parsed) > 0 && string(parsed) != "null" {
		d.ParsedData = &model.ParsedCertificate{}
		if err := json.Unmarshal(parsed, d.ParsedData); err != nil {
			return nil, fmt.Errorf("decode parsed_data: %w", err)
		}
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &d.Violations); err != nil {
			return nil, fmt.Errorf("decode violations: %w", err)
		}
	}
	if d.Violations == nil {
		d.Violations = []model.Violation{}
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + documentColumns

	var parsed any
	if doc.ParsedData != nil {
		b, err := marshalJSONB(doc.ParsedData)
		if err != nil {
			return nil, err
		}
		parsed = b
	}
	violations := doc.Violations
	if violations == nil {
		violations = []model.Violation{}
	}
	vb, err := marshalJSONB(violations)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.VendorID,
		doc.Type,
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		parsed,
		vb,
		doc.ComplianceStatus,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return d, err
}

// LatestByVendor returns the vendor's newest document of the given type.
func (r *DocumentPostgres) LatestByVendor(ctx context.Context, vendorID string, docType model.DocumentType) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + `
		FROM documents
		WHERE vendor_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, vendorID, docType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return d, err
}

// ListByVendor returns a vendor's documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) ListByVendor(ctx context.Context, vendorID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE vendor_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, vendorID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + documentColumns + `
		FROM documents
		WHERE vendor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, qList, vendorID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
