package blobstore

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies `errors.Is(err, ErrNotFound)`.
var ErrNotFound = os.ErrNotExist

// BlobStore is a read-only source of document dumps.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader over length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// NewReader returns a reader over the whole blob.
func NewReader(ctx context.Context, b Blob) (io.ReadCloser, error) {
	if b.Size() == 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}
	return b.ReadRange(ctx, 0, b.Size())
}

// Location is a parsed source such as "s3://bucket/dumps/users.jsonl.zst".
type Location struct {
	// Scheme is "s3", "minio" or "" for the local file system.
	Scheme string
	// Bucket is empty for local paths.
	Bucket string
	// Name is the object key, or the file path for local sources.
	Name string
}

// ParseLocation splits a source into scheme, bucket and name. Anything that
// is not an s3:// or minio:// URL is a local path.
func ParseLocation(source string) (Location, error) {
	if !strings.HasPrefix(source, "s3://") && !strings.HasPrefix(source, "minio://") {
		return Location{Name: source}, nil
	}
	u, err := url.Parse(source)
	if err != nil {
		return Location{}, err
	}
	return Location{
		Scheme: u.Scheme,
		Bucket: u.Host,
		Name:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}
