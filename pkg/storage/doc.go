// Copyright © 2018 One Concern

// Package storage provides interface to handle backend storage of object blobs.
//
// This package supports the following backends:
//   - GCS (Google)
//   - S3 (AWS)
//   - badger (embedded KV store)
//   - local file system
package storage
