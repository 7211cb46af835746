package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coiapi/internal/model"
	"coiapi/internal/service"
	serviceMocks "coiapi/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, r io.Reader) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func multipartBody(t *testing.T, docType, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if docType != "" {
		require.NoError(t, writer.WriteField("type", docType))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, _ = part.Write([]byte(content))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadDocument(t *testing.T) {
	vendorID := uuid.NewString()
	path := "/vendors/" + vendorID + "/documents"

	tests := []struct {
		name       string
		path       string
		docType    string
		filename   string
		setupMocks func(m *serviceMocks.MockDocumentService)
		wantStatus int
		wantCode   string
	}{
		{
			name:     "success",
			path:     path,
			docType:  "coi",
			filename: "coi.pdf",
			setupMocks: func(m *serviceMocks.MockDocumentService) {
				m.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
					return in.VendorID == vendorID && in.Type == model.DocumentTypeCOI && in.Filename == "coi.pdf" && in.Reader != nil
				})).Return(&service.UploadResult{
					Document:          &model.Document{ID: "doc-1", Type: model.DocumentTypeCOI},
					DiscountsCaptured: decimal.RequireFromString("12.5"),
				}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid vendor id",
			path:       "/vendors/not-a-uuid/documents",
			docType:    "W9",
			filename:   "w9.pdf",
			setupMocks: func(m *serviceMocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_ID",
		},
		{
			name:       "invalid type",
			path:       path,
			docType:    "1099",
			filename:   "f.pdf",
			setupMocks: func(m *serviceMocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_TYPE",
		},
		{
			name:       "no file",
			path:       path,
			docType:    "W9",
			setupMocks: func(m *serviceMocks.MockDocumentService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE_REQUIRED",
		},
		{
			name:     "vendor not found",
			path:     path,
			docType:  "W9",
			filename: "w9.pdf",
			setupMocks: func(m *serviceMocks.MockDocumentService) {
				m.On("Upload", mock.Anything, mock.Anything).Return(nil, service.ErrVendorNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "VENDOR_NOT_FOUND",
		},
		{
			name:     "too large",
			path:     path,
			docType:  "W9",
			filename: "w9.pdf",
			setupMocks: func(m *serviceMocks.MockDocumentService) {
				m.On("Upload", mock.Anything, mock.Anything).Return(nil, service.ErrTooLarge).Once()
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE_TOO_LARGE",
		},
		{
			name:     "service error",
			path:     path,
			docType:  "W9",
			filename: "w9.pdf",
			setupMocks: func(m *serviceMocks.MockDocumentService) {
				m.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("upload failed")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDocumentService)
			tt.setupMocks(mockSvc)
			app := fiber.New()
			app.Post("/vendors/:id/documents", UploadDocument(mockSvc))

			body, ct := multipartBody(t, tt.docType, tt.filename, "content")
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", ct)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp.Body).Error.Code)
			} else {
				var res struct {
					Document          model.Document `json:"document"`
					DiscountsCaptured string         `json:"discounts_captured"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
				assert.Equal(t, "doc-1", res.Document.ID)
				assert.Equal(t, "12.5", res.DiscountsCaptured)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestListVendorDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/vendors/:id/documents", ListVendorDocuments(mockSvc))
	vendorID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.DocumentListResult{
			Items: []model.Document{{ID: uuid.NewString(), Filename: "coi.pdf"}},
			Total: 1,
		}
		mockSvc.On("ListByVendor", mock.Anything, vendorID, 10, 0).Return(expectedRes, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/vendors/"+vendorID+"/documents?limit=10&offset=0", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result service.DocumentListResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/vendors/"+vendorID+"/documents?limit=abc", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/vendors/"+vendorID+"/documents?offset=x", nil))
		require.NoError(t, err)

		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("ListByVendor", mock.Anything, vendorID, 10, 0).Return(nil, errors.New("service error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/vendors/"+vendorID+"/documents", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestVendorCompliance(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/vendors/:id/compliance", VendorCompliance(mockSvc))
	vendorID := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Compliance", mock.Anything, vendorID).Return(&service.ComplianceSummary{
			VendorID: vendorID,
			Status:   model.ComplianceStatusExpiring,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/vendors/"+vendorID+"/compliance", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var sum map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
		assert.Equal(t, "EXPIRING", sum["status"])
	})

	t.Run("vendor not found", func(t *testing.T) {
		mockSvc.On("Compliance", mock.Anything, vendorID).Return(nil, service.ErrVendorNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/vendors/"+vendorID+"/compliance", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "VENDOR_NOT_FOUND", decodeError(t, resp.Body).Error.Code)
	})
}

func TestCaptureDiscounts(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/vendors/:id/discounts/capture", CaptureDiscounts(mockSvc))
	vendorID := uuid.NewString()

	mockSvc.On("CaptureDiscounts", mock.Anything, vendorID).Return(decimal.RequireFromString("50"), nil).Once()

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/vendors/"+vendorID+"/discounts/capture", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "50.00", body["captured"])
	assert.Equal(t, vendorID, body["vendor_id"])
	mockSvc.AssertExpectations(t)
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, id).Return(&model.Document{ID: id, Filename: "coi.pdf"}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/file", DownloadDocument(mockSvc))
	id := uuid.NewString()

	mockSvc.On("Open", mock.Anything, id).Return(&service.Download{
		Document: &model.Document{ID: id, Filename: "coi.txt", ContentType: "text/plain"},
		Body:     io.NopCloser(strings.NewReader("certificate")),
		Size:     11,
	}, nil).Once()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/file", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="coi.txt"`)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "certificate", string(body))

	t.Run("file missing from storage", func(t *testing.T) {
		missing := uuid.NewString()
		mockSvc.On("Open", mock.Anything, missing).Return(nil, service.ErrFileMissing).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+missing+"/file", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "FILE_MISSING", decodeError(t, resp.Body).Error.Code)
	})
}

func TestDocumentURL(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/url", DocumentURL(mockSvc))
	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("DownloadURL", mock.Anything, id, 60*time.Second).Return("https://minio/k?sig", nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/url?ttl=60", nil))
		require.NoError(t, err)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "https://minio/k?sig", body["url"])
	})

	t.Run("invalid ttl", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/url?ttl=-5", nil))
		require.NoError(t, err)

		assert.Equal(t, "INVALID_TTL", decodeError(t, resp.Body).Error.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, id).Return(errors.New("delete error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockDocumentService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("health without db", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "too large", err: fiber.ErrRequestEntityTooLarge, wantStatus: http.StatusRequestEntityTooLarge, wantCode: "FILE_TOO_LARGE"},
		{name: "unsupported media", err: fiber.ErrUnsupportedMediaType, wantStatus: http.StatusUnsupportedMediaType, wantCode: "UNSUPPORTED_MEDIA_TYPE"},
		{name: "wrapped fiber error", err: fmt.Errorf("read body: %w", fiber.ErrBadRequest), wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "unmapped status", err: fiber.ErrTeapot, wantStatus: http.StatusTeapot, wantCode: "INTERNAL_ERROR"},
		{name: "plain error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp.Body).Error.Code)
		})
	}
}
