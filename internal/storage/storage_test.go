package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coiapi/internal/config"
)

func TestDocumentKey(t *testing.T) {
	tests := []struct {
		name                    string
		vendorID, docType, file string
		want                    string
	}{
		{name: "coi", vendorID: "v-1", docType: "COI", file: "abc.pdf", want: "vendors/v-1/coi/abc.pdf"},
		{name: "w9", vendorID: "v-2", docType: "W9", file: "x.txt", want: "vendors/v-2/w9/x.txt"},
		{name: "traversal stripped", vendorID: "../v-3", docType: "COI", file: "../../etc", want: "vendors/..v-3/coi/....etc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentKey(tt.vendorID, tt.docType, tt.file))
		})
	}
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.MinIOConfig
		wantErr string
	}{
		{name: "endpoint", cfg: config.MinIOConfig{}, wantErr: "minio endpoint is required"},
		{name: "credentials", cfg: config.MinIOConfig{Endpoint: "localhost:9000"}, wantErr: "minio credentials are required"},
		{name: "bucket", cfg: config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, wantErr: "minio bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinIO(context.Background(), tt.cfg, nil)
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestDocumentMetadata(t *testing.T) {
	md := DocumentMetadata("v-1", "COI", "acme-coi.pdf")
	assert.Equal(t, map[string]string{
		MetaVendorID:         "v-1",
		MetaDocumentType:     "COI",
		MetaOriginalFilename: "acme-coi.pdf",
	}, md)

	_, ok := DocumentMetadata("v-1", "W9", "")[MetaOriginalFilename]
	assert.False(t, ok, "empty file name is not stored")
}

func TestClampExpiry(t *testing.T) {
	assert.Equal(t, time.Second, clampExpiry(0))
	assert.Equal(t, 15*time.Minute, clampExpiry(15*time.Minute))
	assert.Equal(t, MaxPresignExpiry, clampExpiry(30*24*time.Hour))
}

func TestOriginalFilename(t *testing.T) {
	assert.Equal(t, "a.pdf", originalFilename(map[string]string{"Original-Filename": "a.pdf"}))
	assert.Equal(t, "b.pdf", originalFilename(map[string]string{"X-Amz-Meta-Original-Filename": "b.pdf"}))
	assert.Equal(t, "", originalFilename(map[string]string{"Vendor-Id": "v-1"}))
}
