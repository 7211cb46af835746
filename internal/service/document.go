package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coiapi/internal/coi"
	"coiapi/internal/compliance"
	"coiapi/internal/discount"
	"coiapi/internal/extractor"
	"coiapi/internal/metrics"
	"coiapi/internal/model"
	"coiapi/internal/repository"
	"coiapi/internal/storage"
)

var (
	ErrIDRequired     = errors.New("id is required")
	ErrNotFound       = errors.New("document not found")
	ErrReaderNil      = errors.New("reader is nil")
	ErrVendorNotFound = errors.New("vendor not found")
	ErrInvalidType    = errors.New("document type must be W9 or COI")
	ErrTooLarge       = errors.New("document exceeds the upload size limit")
	// ErrFileMissing means the document row exists but its stored file does not.
	ErrFileMissing    = errors.New("document file is missing from storage")
)

// DefaultMaxUploadSize caps a single upload when none is configured.
const DefaultMaxUploadSize int64 = 20 << 20

// fallbackValidity is assumed for a certificate whose expiry could not be read.
const fallbackValidity = 1 // years

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// UploadInput describes one W-9 or COI file received for a vendor.
type UploadInput struct {
	VendorID    string
	Type        model.DocumentType
	Reader      io.Reader
	Filename    string
	ContentType string
}

// UploadResult is the stored document plus whatever discounts the upload unlocked.
type UploadResult struct {
	Document          *model.Document `json:"document"`
	DiscountsCaptured decimal.Decimal `json:"discounts_captured"`
}

// ComplianceSummary is a vendor's current document standing, re-evaluated at request time.
type ComplianceSummary struct {
	VendorID        string                    `json:"vendor_id"`
	W9Status        model.DocumentStatus      `json:"w9_status"`
	COIStatus       model.DocumentStatus      `json:"coi_status"`
	COIExpiry       model.Optional[time.Time] `json:"coi_expiry"`
	COIExpirySource model.ExpirySource        `json:"coi_expiry_source,omitempty"`
	DaysUntilExpiry *int                      `json:"days_until_expiry,omitempty"`
	DocumentID      string                    `json:"document_id,omitempty"`
	Status          model.ComplianceStatus    `json:"status"`
	Violations      []model.Violation         `json:"violations"`
}

// Download is an open stored file and the document it belongs to. Callers close Body.
type Download struct {
	Document *model.Document
	Body     io.ReadCloser
	Size     int64
}

// DocumentService defines the document compliance use cases.
type DocumentService interface {
	// Upload stores the file, evaluates a COI against the account rules, records the
	// document, updates the vendor's status and attempts discount capture.
	// Storage is rolled back if the document cannot be recorded.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// ListByVendor returns a vendor's documents using limit/offset and a total count.
	ListByVendor(ctx context.Context, vendorID string, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Open streams the stored file of a document.
	Open(ctx context.Context, id string) (*Download, error)

	// DownloadURL returns a time-limited link to the stored file.
	DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error)

	// Delete removes a document by ID from both storage and repository.
	Delete(ctx context.Context, id string) error

	// Compliance re-evaluates the vendor's latest COI against current rules and time.
	Compliance(ctx context.Context, vendorID string) (*ComplianceSummary, error)

	// CaptureDiscounts runs discount capture for a vendor on demand.
	CaptureDiscounts(ctx context.Context, vendorID string) (decimal.Decimal, error)
}

// Deps are the collaborators of the document service.
type Deps struct {
	Store         storage.Storage
	Documents     repository.DocumentRepository
	Vendors       repository.VendorRepository
	Accounts      repository.AccountRepository
	Extractor     extractor.Extractor
	Discounts     discount.Capturer
	Metrics       *metrics.Pipeline
	Logger        *zap.Logger
	Now           func() time.Time
	MaxUploadSize int64
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	vendors   repository.VendorRepository
	accounts  repository.AccountRepository
	extract   extractor.Extractor
	discounts discount.Capturer
	metrics   *metrics.Pipeline
	logger    *zap.Logger
	now       func() time.Time
	maxSize   int64
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(d Deps) DocumentService {
	s := &documentService{
		store:     d.Store,
		repo:      d.Documents,
		vendors:   d.Vendors,
		accounts:  d.Accounts,
		extract:   d.Extractor,
		discounts: d.Discounts,
		metrics:   d.Metrics,
		logger:    d.Logger,
		now:       d.Now,
		maxSize:   d.MaxUploadSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxSize <= 0 {
		s.maxSize = DefaultMaxUploadSize
	}
	return s
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if in.VendorID == "" {
		return nil, ErrIDRequired
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidType
	}

	vendor, err := s.vendors.FindByID(ctx, in.VendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("load vendor: %w", err)
	}

	// The body is needed twice (storage and extraction), so it is buffered once.
	data, err := io.ReadAll(io.LimitReader(in.Reader, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	now := s.now().UTC()
	genName := uuid.New().String() + strings.ToLower(filepath.Ext(in.Filename))
	key := storage.DocumentKey(vendor.ID, string(in.Type), genName)

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    storage.DocumentMetadata(vendor.ID, string(in.Type), in.Filename),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		VendorID:    vendor.ID,
		Type:        in.Type,
		Filename:    in.Filename,
		StoragePath: objInfo.Key,
		Size:        int64(len(data)),
		ContentType: contentType,
		Violations:  []model.Violation{},
		CreatedAt:   now,
	}

	var transcript string
	if in.Type == model.DocumentTypeCOI {
		transcript = s.transcribe(ctx, doc, data)
		parsed := coi.Parse(transcript)
		rules, err := s.ruleSet(ctx, vendor.AccountID)
		if err != nil {
			return nil, s.rollback(ctx, key, fmt.Errorf("load compliance rules: %w", err))
		}
		doc.ParsedData = &parsed
		doc.Violations = compliance.Evaluate(parsed, rules, now)
		doc.ComplianceStatus = compliance.Status(doc.Violations)
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, s.rollback(ctx, key, fmt.Errorf("db save failed: %w", err))
	}

	if err := s.updateVendor(ctx, vendor.ID, stored, now); err != nil {
		return nil, fmt.Errorf("update vendor status: %w", err)
	}
	s.metrics.DocumentProcessed(stored.Type, stored.ComplianceStatus, stored.Violations)
	s.logger.Info("document processed",
		zap.String("vendor_id", vendor.ID),
		zap.String("document_id", stored.ID),
		zap.String("type", string(stored.Type)),
		zap.String("compliance_status", string(stored.ComplianceStatus)),
		zap.Int("violations", len(stored.Violations)),
	)

	res := &UploadResult{Document: stored, DiscountsCaptured: decimal.Zero}
	// A COI only unlocks capture once extraction produced something to evaluate.
	if in.Type == model.DocumentTypeW9 || strings.TrimSpace(transcript) != "" {
		res.DiscountsCaptured = s.captureAfterUpload(ctx, vendor.ID)
	}
	return res, nil
}

// transcribe never fails the upload: an unreadable file degrades to an empty
// transcript, which the evaluator reports as missing fields.
func (s *documentService) transcribe(ctx context.Context, doc *model.Document, data []byte) string {
	if s.extract == nil {
		return ""
	}
	text, err := s.extract.Extract(ctx, data, doc.ContentType)
	if err != nil {
		s.metrics.ExtractionFailed()
		s.logger.Warn("text extraction failed",
			zap.String("vendor_id", doc.VendorID),
			zap.String("content_type", doc.ContentType),
			zap.Error(err),
		)
		return ""
	}
	return text
}

func (s *documentService) ruleSet(ctx context.Context, accountID string) (model.RuleSet, error) {
	rules, err := s.accounts.RuleSet(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RuleSet{}, nil
	}
	return rules, err
}

func (s *documentService) rollback(ctx context.Context, key string, cause error) error {
	if delErr := s.store.Delete(ctx, key); delErr != nil {
		return fmt.Errorf("%v; rollback delete failed: %v", cause, delErr)
	}
	return cause
}

func (s *documentService) updateVendor(ctx context.Context, vendorID string, doc *model.Document, now time.Time) error {
	if doc.Type == model.DocumentTypeW9 {
		return s.vendors.SetW9Status(ctx, vendorID, model.DocumentStatusReceived)
	}
	return s.vendors.SetCOIState(ctx, vendorID, coiState(doc.ParsedData, now))
}

// coiState derives the vendor's COI fields from a parsed certificate. Without an
// extracted expiry the certificate is assumed valid for a year and tagged as such.
func coiState(parsed *model.ParsedCertificate, now time.Time) repository.COIState {
	if parsed != nil {
		if expiry, ok := parsed.ExpiryDate.Get(); ok {
			status := model.DocumentStatusReceived
			// Same day rule as the evaluator: the expiry day itself is still valid.
			if compliance.DaysUntil(expiry, now) < 0 {
				status = model.DocumentStatusExpired
			}
			return repository.COIState{Status: status, Expiry: model.Some(expiry), ExpirySource: model.ExpirySourceExtracted}
		}
	}
	return repository.COIState{
		Status:       model.DocumentStatusReceived,
		Expiry:       model.Some(now.AddDate(fallbackValidity, 0, 0)),
		ExpirySource: model.ExpirySourceFallback,
	}
}

func (s *documentService) captureAfterUpload(ctx context.Context, vendorID string) decimal.Decimal {
	if s.discounts == nil {
		return decimal.Zero
	}
	total, err := s.discounts.CaptureEligibleDiscounts(ctx, vendorID)
	if err != nil {
		s.logger.Warn("discount capture failed", zap.String("vendor_id", vendorID), zap.Error(err))
	}
	return total
}

// ListByVendor returns paginated documents without exposing repository types.
func (s *documentService) ListByVendor(ctx context.Context, vendorID string, limit, offset int) (*DocumentListResult, error) {
	if vendorID == "" {
		return nil, ErrIDRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListByVendor(ctx, vendorID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Open(ctx context.Context, id string) (*Download, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	body, info, err := s.store.Get(ctx, doc.StoragePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrFileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return &Download{Document: doc, Body: body, Size: info.Size}, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, ttl)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", ErrFileMissing
	}
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return u, nil
}

// Delete removes a document from storage, then deletes its record.
// Vendor status is left as is; a later upload supersedes it.
func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	// Delete from storage first; if this fails, keep DB row to avoid orphaned storage reference loss
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *documentService) Compliance(ctx context.Context, vendorID string) (*ComplianceSummary, error) {
	if vendorID == "" {
		return nil, ErrIDRequired
	}
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("load vendor: %w", err)
	}
	rules, err := s.ruleSet(ctx, vendor.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load compliance rules: %w", err)
	}

	sum := &ComplianceSummary{
		VendorID:        vendor.ID,
		W9Status:        vendor.W9Status,
		COIStatus:       vendor.COIStatus,
		COIExpiry:       vendor.COIExpiry,
		COIExpirySource: vendor.COIExpirySource,
	}
	now := s.now()
	if expiry, ok := vendor.COIExpiry.Get(); ok {
		days := compliance.DaysUntil(expiry, now)
		sum.DaysUntilExpiry = &days
	}

	// With no certificate on file the empty certificate is evaluated, which fails closed.
	var parsed model.ParsedCertificate
	latest, err := s.repo.LatestByVendor(ctx, vendorID, model.DocumentTypeCOI)
	switch {
	case err == nil:
		sum.DocumentID = latest.ID
		if latest.ParsedData != nil {
			parsed = *latest.ParsedData
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load latest certificate: %w", err)
	}
	sum.Violations = compliance.Evaluate(parsed, rules, now)
	sum.Status = compliance.Status(sum.Violations)
	return sum, nil
}

func (s *documentService) CaptureDiscounts(ctx context.Context, vendorID string) (decimal.Decimal, error) {
	if vendorID == "" {
		return decimal.Zero, ErrIDRequired
	}
	if s.discounts == nil {
		return decimal.Zero, nil
	}
	total, err := s.discounts.CaptureEligibleDiscounts(ctx, vendorID)
	if errors.Is(err, discount.ErrVendorNotFound) {
		return decimal.Zero, ErrVendorNotFound
	}
	return total, err
}
