package postgres

import (
	"context"
	"database/sql"
	"errors"

	"coiapi/internal/model"
	"coiapi/internal/repository"
)

// VendorPostgres stores vendors and their W-9/COI status fields.
type VendorPostgres struct {
	db *sql.DB
}

// NewVendorPostgres creates a new VendorPostgres repository.
func NewVendorPostgres(db *sql.DB) *VendorPostgres {
	return &VendorPostgres{db: db}
}

var _ repository.VendorRepository = (*VendorPostgres)(nil)

const vendorColumns = `id, account_id, name, email, w9_status, coi_status,
		coi_expiry, coi_expiry_source, is_exempt, created_at`

func scanVendor(s rowScanner) (*model.Vendor, error) {
	var (
		v      model.Vendor
		expiry sql.NullTime
	)
	if err := s.Scan(
		&v.ID,
		&v.AccountID,
		&v.Name,
		&v.Email,
		&v.W9Status,
		&v.COIStatus,
		&expiry,
		&v.COIExpirySource,
		&v.IsExempt,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	v.COIExpiry = optionalTime(expiry)
	return &v, nil
}

// Create inserts a vendor. Empty statuses default to MISSING.
func (r *VendorPostgres) Create(ctx context.Context, v *model.Vendor) (*model.Vendor, error) {
	const q = `
		INSERT INTO vendors (` + vendorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + vendorColumns

	w9, coi := v.W9Status, v.COIStatus
	if w9 == "" {
		w9 = model.DocumentStatusMissing
	}
	if coi == "" {
		coi = model.DocumentStatusMissing
	}
	row := r.db.QueryRowContext(ctx, q,
		v.ID,
		v.AccountID,
		v.Name,
		v.Email,
		w9,
		coi,
		nullable(v.COIExpiry),
		v.COIExpirySource,
		v.IsExempt,
		v.CreatedAt,
	)
	return scanVendor(row)
}

// FindByID fetches a vendor by ID.
func (r *VendorPostgres) FindByID(ctx context.Context, id string) (*model.Vendor, error) {
	const q = `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	v, err := scanVendor(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return v, err
}

// ListWithCOIExpiry returns non-exempt vendors with a recorded COI expiry, soonest first.
func (r *VendorPostgres) ListWithCOIExpiry(ctx context.Context) ([]model.Vendor, error) {
	const q = `SELECT ` + vendorColumns + `
		FROM vendors
		WHERE coi_expiry IS NOT NULL AND NOT is_exempt
		ORDER BY coi_expiry ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// SetW9Status updates a vendor's W-9 status.
func (r *VendorPostgres) SetW9Status(ctx context.Context, id string, status model.DocumentStatus) error {
	const q = `UPDATE vendors SET w9_status = $2 WHERE id = $1`
	return execOne(ctx, r.db, q, id, status)
}

// SetCOIState records the outcome of a certificate upload on the vendor.
func (r *VendorPostgres) SetCOIState(ctx context.Context, id string, state repository.COIState) error {
	const q = `
		UPDATE vendors
		SET coi_status = $2, coi_expiry = $3, coi_expiry_source = $4
		WHERE id = $1`
	return execOne(ctx, r.db, q, id, state.Status, nullable(state.Expiry), state.ExpirySource)
}

// execOne runs an update that must touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
