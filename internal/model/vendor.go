package model

import "time"

// DocumentStatus is the simplified per-document-type state kept on a Vendor.
type DocumentStatus string

const (
	DocumentStatusMissing  DocumentStatus = "MISSING"
	DocumentStatusReceived DocumentStatus = "RECEIVED"
	DocumentStatusExpired  DocumentStatus = "EXPIRED"
)

// ExpirySource records where a vendor's COI expiry came from.
type ExpirySource string

const (
	ExpirySourceNone      ExpirySource = ""
	ExpirySourceExtracted ExpirySource = "extracted"
	ExpirySourceFallback  ExpirySource = "fallback"
)

// Vendor is a payee whose W-9 and COI are tracked. Vendors are never deleted,
// only marked exempt.
type Vendor struct {
	ID              string              `json:"id"`
	AccountID       string              `json:"account_id"`
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	W9Status        DocumentStatus      `json:"w9_status"`
	COIStatus       DocumentStatus      `json:"coi_status"`
	COIExpiry       Optional[time.Time] `json:"coi_expiry"`
	COIExpirySource ExpirySource        `json:"coi_expiry_source,omitempty"`
	IsExempt        bool                `json:"is_exempt"`
	CreatedAt       time.Time           `json:"created_at"`
}

// DocumentsReceived reports whether both the W-9 and the COI are on file.
func (v *Vendor) DocumentsReceived() bool {
	return v.W9Status == DocumentStatusReceived && v.COIStatus == DocumentStatusReceived
}
