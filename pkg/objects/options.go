package objects

import (
	"github.com/oneconcern/scope/pkg/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultCacheSize is the number of objects kept in memory after a load or a write
	DefaultCacheSize = 4096

	// DefaultConcurrency bounds the fan-out of existence checks against the storage backend
	DefaultConcurrency = 30

	// ObjectsDir is the directory of object blobs, relative to the scope path
	ObjectsDir = "objects"
)

// Option configures a Repository
type Option func(*Repository)

// Logger sets the repository logger
func Logger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.l = l
		}
	}
}

// Metrics sets the repository metrics collectors
func Metrics(m *metrics.M) Option {
	return func(r *Repository) {
		r.m = m
	}
}

// CacheSize sets the size of the object LRU cache
func CacheSize(size int) Option {
	return func(r *Repository) {
		if size > 0 {
			r.cacheSize = size
		}
	}
}

// Concurrency bounds parallel storage calls
func Concurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.concurrency = n
		}
	}
}
