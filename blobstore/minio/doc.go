// Package minio provides a read-only BlobStore implementation using the
// MinIO client. It works with MinIO and other S3-compatible storage such as
// Ceph, SeaweedFS and Garage.
//
// # Basic Usage
//
//	store, err := minio.Dial(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "my-bucket", "dumps/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	blob, err := store.Open(ctx, "users.jsonl.zst")
package minio
