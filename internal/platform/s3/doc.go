// Package s3 provides a client for S3-compatible object storage.
//
// It is used to mirror Backup Records to a store reachable inside the
// air-gapped network (MinIO, Ceph RGW and the like), so a host whose disk
// is lost can still be rolled back. Path-style addressing is used because
// such stores rarely have wildcard DNS.
package s3
