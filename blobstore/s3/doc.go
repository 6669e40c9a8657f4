// Package s3 provides an S3-backed blobstore.BlobStore for index
// snapshots, plus a DynamoDB-coordinated variant whose CURRENT pointer is
// committed with conditional writes so concurrent publishers cannot clobber
// each other.
package s3
