package extractor

import (
	"context"
	"strings"
	"unicode/utf8"
)

// PlainText accepts UTF-8 text documents as-is.
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrBinaryContent
	}
	return strings.TrimSpace(string(data)), nil
}
