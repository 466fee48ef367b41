// Package docio reads and writes document dumps: a JSON array of objects or
// JSON lines, optionally gzip, zstd or lz4 compressed.
package docio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/docquery/blobstore"
	"github.com/hupe1980/docquery/value"
)

// ErrInvalidDump is returned for input that is neither a JSON array of
// objects nor a stream of JSON objects.
var ErrInvalidDump = errors.New("docio: invalid document dump")

// Compression identifies the compression of a dump.
type Compression uint8

const (
	// CompressionNone indicates plain JSON.
	CompressionNone Compression = iota
	// CompressionGzip indicates gzip (.gz).
	CompressionGzip
	// CompressionZstd indicates zstd (.zst).
	CompressionZstd
	// CompressionLZ4 indicates an lz4 frame (.lz4).
	CompressionLZ4
)

var extensions = map[string]Compression{
	".gz":  CompressionGzip,
	".zst": CompressionZstd,
	".lz4": CompressionLZ4,
}

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// DetectCompression returns the compression implied by the extension of
// name.
func DetectCompression(name string) Compression {
	for ext, c := range extensions {
		if strings.HasSuffix(name, ext) {
			return c
		}
	}
	return CompressionNone
}

// NewReader returns a reader decompressing r.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("docio: unknown compression %d", c)
	}
}

// NewWriter returns a writer compressing into w. Close flushes the
// compressor but does not close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("docio: unknown compression %d", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Decode calls fn for every document of an uncompressed dump. The format is
// detected from the first non-space byte: '[' starts an array, anything
// else a stream of objects such as JSON lines.
func Decode(r io.Reader, fn func(value.Document) error) error {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDump, err)
		}
	}

	for n := 0; dec.More(); n++ {
		var doc value.Document
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("%w: document %d: %v", ErrInvalidDump, n, err)
		}
		if doc == nil {
			return fmt.Errorf("%w: document %d is not an object", ErrInvalidDump, n)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}

	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDump, err)
		}
	}
	return nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// ReadAll decodes a possibly compressed dump.
func ReadAll(r io.Reader, c Compression) ([]value.Document, error) {
	rc, err := NewReader(r, c)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var docs []value.Document
	err = Decode(rc, func(doc value.Document) error {
		docs = append(docs, doc)
		return nil
	})
	return docs, err
}

// Load reads the dump name from store, detecting compression from its
// extension.
func Load(ctx context.Context, store blobstore.BlobStore, name string) ([]value.Document, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	r, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return ReadAll(r, DetectCompression(name))
}

// LoadPrefix reads every dump in store whose name starts with prefix. Dumps
// are decoded concurrently; documents are returned in blob name order.
func LoadPrefix(ctx context.Context, store blobstore.BlobStore, prefix string) ([]value.Document, error) {
	names, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no dumps under %q: %w", prefix, blobstore.ErrNotFound)
	}

	parts := make([][]value.Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			docs, err := Load(gctx, store, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			parts[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []value.Document
	for _, p := range parts {
		docs = append(docs, p...)
	}
	return docs, nil
}

// WriteLines encodes docs as JSON lines.
func WriteLines(w io.Writer, docs []value.Document) error {
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}
