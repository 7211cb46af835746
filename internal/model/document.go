package model

import "time"

// DocumentType identifies which vendor document an upload represents.
type DocumentType string

const (
	DocumentTypeW9  DocumentType = "W9"
	DocumentTypeCOI DocumentType = "COI"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	return t == DocumentTypeW9 || t == DocumentTypeCOI
}

// Document represents one uploaded vendor file and its evaluation results.
// A new upload always creates a new Document; earlier ones are kept as history.
type Document struct {
	ID               string             `json:"id"`
	VendorID         string             `json:"vendor_id"`
	Type             DocumentType       `json:"type"`
	Filename         string             `json:"filename"`
	StoragePath      string             `json:"storage_path"`
	Size             int64              `json:"size"`
	ContentType      string             `json:"content_type"`
	ParsedData       *ParsedCertificate `json:"parsed_data,omitempty"`
	Violations       []Violation        `json:"violations"`
	ComplianceStatus ComplianceStatus   `json:"compliance_status,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}
