package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"

	"coiapi/docs"
	"coiapi/internal/model"
	"coiapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate between HTTP and the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/swagger/*", SwaggerUI())

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	vendors := app.Group("/vendors/:id")
	vendors.Post("/documents", UploadDocument(docSvc))
	vendors.Get("/documents", ListVendorDocuments(docSvc))
	vendors.Get("/compliance", VendorCompliance(docSvc))
	vendors.Post("/discounts/capture", CaptureDiscounts(docSvc))

	app.Get("/documents/:id", GetDocument(docSvc))
	app.Get("/documents/:id/file", DownloadDocument(docSvc))
	app.Get("/documents/:id/url", DocumentURL(docSvc))
	app.Delete("/documents/:id", DeleteDocument(docSvc))
}

// SwaggerUI serves the API docs with the host and scheme of the incoming request.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}

// HealthCheck checks DB connectivity only.
//
// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if db == nil || db.PingContext(ctx) != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a dependency-free liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadDocument accepts a W-9 or COI for a vendor.
//
// @Summary Upload a vendor document
// @Tags documents
// @Accept multipart/form-data
// @Param id path string true "Vendor ID"
// @Param type formData string true "W9 or COI"
// @Param file formData file true "Document file"
// @Success 201 {object} service.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Router /vendors/{id}/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		docType := model.DocumentType(strings.ToUpper(strings.TrimSpace(c.FormValue("type"))))
		if !docType.Valid() {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TYPE", "type must be W9 or COI")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := docSvc.Upload(c.UserContext(), service.UploadInput{
			VendorID:    vendorID,
			Type:        docType,
			Reader:      f,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListVendorDocuments lists a vendor's documents with limit & offset.
//
// @Summary List vendor documents
// @Tags documents
// @Param id path string true "Vendor ID"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.DocumentListResult
// @Router /vendors/{id}/documents [get]
func ListVendorDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.ListByVendor(c.UserContext(), vendorID, limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// VendorCompliance reports the vendor's current compliance standing.
//
// @Summary Vendor compliance summary
// @Tags vendors
// @Param id path string true "Vendor ID"
// @Success 200 {object} service.ComplianceSummary
// @Failure 404 {object} errorPayload
// @Router /vendors/{id}/compliance [get]
func VendorCompliance(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		sum, err := docSvc.Compliance(c.UserContext(), vendorID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(sum)
	}
}

// CaptureDiscounts re-runs discount capture for a vendor.
//
// @Summary Capture eligible early-payment discounts
// @Tags vendors
// @Param id path string true "Vendor ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errorPayload
// @Router /vendors/{id}/discounts/capture [post]
func CaptureDiscounts(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		total, err := docSvc.CaptureDiscounts(c.UserContext(), vendorID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"vendor_id": vendorID, "captured": total.StringFixed(2)})
	}
}

// GetDocument returns a document by ID.
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the stored file.
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		dl, err := docSvc.Open(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set(fiber.HeaderContentType, dl.Document.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", dl.Document.Filename))
		// fasthttp closes the body once it has been written.
		return c.SendStream(dl.Body, int(dl.Size))
	}
}

// DocumentURL returns a presigned download link; ttl is in seconds.
func DocumentURL(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		secs, err := strconv.Atoi(c.Query("ttl", "0"))
		if err != nil || secs < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TTL", "invalid ttl")
		}
		u, err := docSvc.DownloadURL(c.UserContext(), id, time.Duration(secs)*time.Second)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"url": u})
	}
}

// DeleteDocument removes a document by ID.
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := uuidParam(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func uuidParam(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
