// Package extractor turns an uploaded document into a plain-text transcript
// for the certificate parser.
package extractor

import (
	"context"
	"errors"
	"mime"
	"strings"
)

var (
	// ErrUnsupportedType is returned for MIME types no extractor handles, including images.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrBinaryContent is returned when a text document is not valid UTF-8.
	ErrBinaryContent = errors.New("document is not valid UTF-8 text")
)

// Extractor produces a transcript from document bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Func adapts a function to the Extractor interface.
type Func func(ctx context.Context, data []byte, mimeType string) (string, error)

func (f Func) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	return f(ctx, data, mimeType)
}

// Mux routes extraction by base MIME type.
type Mux struct {
	routes map[string]Extractor
}

// NewMux returns a Mux serving PDFs and plain text.
func NewMux() *Mux {
	m := &Mux{routes: map[string]Extractor{}}
	m.Handle("application/pdf", PDF{})
	m.Handle("text/plain", PlainText{})
	return m
}

// Handle registers ex for mimeType, replacing any previous handler.
func (m *Mux) Handle(mimeType string, ex Extractor) {
	m.routes[baseType(mimeType)] = ex
}

func (m *Mux) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	ex, ok := m.routes[baseType(mimeType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	return ex.Extract(ctx, data, mimeType)
}

func baseType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
