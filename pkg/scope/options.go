package scope

import (
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/network"
)

const (
	// DefaultComponentCacheSize bounds the number of loaded components kept in memory
	DefaultComponentCacheSize = 1000

	// DefaultImportTTL is how long an import is not attempted again for the same id
	DefaultImportTTL = 30 * time.Minute

	// DefaultConcurrency bounds the fan-out of per-component operations
	DefaultConcurrency = 30

	// PendingDir holds the objects pushed by exports which are not persisted yet
	PendingDir = "pending-objects"
)

// Option configures a Scope
type Option func(*Scope)

// Logger sets the logger of the scope and of its loader, importer and remotes
func Logger(l *zap.Logger) Option {
	return func(s *Scope) {
		if l != nil {
			s.l = l
		}
	}
}

// Metrics sets the prometheus collectors
func Metrics(m *metrics.M) Option {
	return func(s *Scope) {
		s.m = m
	}
}

// RemoteHosts configures the remotes of the scope, as a map of alias to host
func RemoteHosts(hosts map[string]string) Option {
	return func(s *Scope) {
		s.remoteHosts = hosts
	}
}

// Dialer sets how remotes are reached. It defaults to a dialer able to open file:// remotes.
func Dialer(d *network.Dialer) Option {
	return func(s *Scope) {
		s.dialer = d
	}
}

// MaxMessageSize limits the size of responses read from remotes
func MaxMessageSize(size int64) Option {
	return func(s *Scope) {
		s.maxMessageSize = size
	}
}

// ComponentCacheSize sets the size of the LRU cache of loaded components
func ComponentCacheSize(size int) Option {
	return func(s *Scope) {
		if size > 0 {
			s.componentCacheSize = size
		}
	}
}

// ImportTTL sets for how long an attempted import is not retried
func ImportTTL(ttl time.Duration) Option {
	return func(s *Scope) {
		if ttl > 0 {
			s.importTTL = ttl
		}
	}
}

// ReadOnly refuses every write coming from remote clients
func ReadOnly(readOnly bool) Option {
	return func(s *Scope) {
		s.readOnly = readOnly
	}
}

// Concurrency bounds parallel per-component operations
func Concurrency(n int) Option {
	return func(s *Scope) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// RebuildIndex discards the index when opening the scope and rebuilds it from the stored objects
func RebuildIndex() Option {
	return func(s *Scope) {
		s.rebuildIndex = true
	}
}
