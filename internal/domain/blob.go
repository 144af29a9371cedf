package domain

import (
	"context"
	"io"
)

// BlobWriter uploads exported report objects to object storage.
type BlobWriter interface {
	// Put uploads data as a single object.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	// PutMultipart uploads data in parts, for large bundles.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
