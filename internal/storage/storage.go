// Package storage contains object storage abstractions for uploaded vendor documents.
// Implementations stream to an S3-compatible backend and never touch local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Get when the key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// Metadata keys stored alongside every vendor document.
const (
	MetaOriginalFilename = "original-filename"
	MetaVendorID         = "vendor-id"
	MetaDocumentType     = "document-type"
)

// MaxPresignExpiry is the longest lifetime S3 SigV4 accepts for a presigned URL.
const MaxPresignExpiry = 7 * 24 * time.Hour

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object storage client.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DocumentKey builds the object key for a vendor document:
// vendors/<vendorID>/<docType>/<name>. Path separators in the parts are dropped.
func DocumentKey(vendorID, docType, name string) string {
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "/", "")
		return strings.ReplaceAll(s, "\\", "")
	}
	return path.Join("vendors", clean(vendorID), strings.ToLower(clean(docType)), clean(name))
}

// DocumentMetadata is the user metadata written with an uploaded document so the
// bucket stays self-describing without the database.
func DocumentMetadata(vendorID, docType, filename string) map[string]string {
	md := map[string]string{
		MetaVendorID:     vendorID,
		MetaDocumentType: docType,
	}
	if filename != "" {
		md[MetaOriginalFilename] = filename
	}
	return md
}

// clampExpiry keeps a presign lifetime within [1s, MaxPresignExpiry].
func clampExpiry(d time.Duration) time.Duration {
	switch {
	case d < time.Second:
		return time.Second
	case d > MaxPresignExpiry:
		return MaxPresignExpiry
	default:
		return d
	}
}
