// Package blobstore provides read-only access to document dumps.
//
// BlobStore is the interface for opening and listing blobs. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system
//   - MemoryStore: in memory, for tests
//   - s3.Store: Amazon S3 with range reads
//   - minio.Store: MinIO and other S3-compatible storage
//
// ParseLocation splits CLI sources such as "s3://bucket/users.jsonl.zst"
// into the store to use and the blob name.
package blobstore
