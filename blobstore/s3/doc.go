// Package s3 provides a read-only S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("dumps/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// Blobs are fetched with ranged GetObject requests; listing follows
// continuation tokens.
package s3
