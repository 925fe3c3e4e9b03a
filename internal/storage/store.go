// Package storage defines the blob-storage abstraction that backs
// blob_storage_path: a place for tools to persist output larger
// than a plan step's result field should carry inline. Implementations:
// filestore (local disk, the default) and s3store
// (github.com/aws/aws-sdk-go-v2/service/s3, for a shared/durable
// backend across runner instances).
package storage

import (
	"context"
	"io"
)

// PutOptions carries the metadata a Store needs to place and later
// describe a blob: the MIME type drives filestore's file extension, and
// Metadata is stored alongside the blob for callers that want it echoed
// back (e.g. the artifact's declared content type).
type PutOptions struct {
	MimeType string
	Metadata map[string]string
}

// Store persists and retrieves named blobs of tool output. Put returns
// an implementation-defined reference string (a file:// or s3:// URI)
// for callers to surface; Get/Delete/Exists address blobs by id.
type Store interface {
	Put(ctx context.Context, id string, data io.Reader, opts PutOptions) (string, error)
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Close() error
}
