// Package metrics exposes prometheus collectors for the object repository and the remote protocol.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// LoadCacheHit counts objects served by the in-memory cache
	LoadCacheHit = "cache"

	// LoadStorage counts objects read and inflated from the storage backend
	LoadStorage = "storage"

	// LoadMissing counts lookups for absent objects
	LoadMissing = "missing"

	// LoadCorrupted counts blobs which failed to inflate or parse
	LoadCorrupted = "corrupted"
)

var (
	defaultM *M
	initOnce sync.Once
)

// M holds the collectors used across the scope packages
type M struct {
	ObjectLoads   *prometheus.CounterVec
	ObjectWrites  *prometheus.CounterVec
	ObjectBytes   prometheus.Counter
	IndexWrites   prometheus.Counter
	RemoteActions *prometheus.CounterVec
	RemoteErrors  *prometheus.CounterVec
	Imports       prometheus.Counter
}

// New builds and registers a new set of collectors.
//
// Registering twice against the same registry panics: use Default for process-wide metrics.
func New(opts ...Option) *M {
	s := defaultSettings()
	for _, apply := range opts {
		apply(s)
	}

	m := &M{
		ObjectLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "objects",
			Name:      "loads_total",
			Help:      "Objects loaded from the repository, by result.",
		}, []string{"result"}),
		ObjectWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "objects",
			Name:      "writes_total",
			Help:      "Objects written to the repository, by object type.",
		}, []string{"type"}),
		ObjectBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "objects",
			Name:      "written_bytes_total",
			Help:      "Compressed bytes written to the storage backend.",
		}),
		IndexWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "index",
			Name:      "writes_total",
			Help:      "Writes of the index file.",
		}),
		RemoteActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "remote",
			Name:      "actions_total",
			Help:      "Remote protocol actions issued, by action name.",
		}, []string{"action"}),
		RemoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "remote",
			Name:      "errors_total",
			Help:      "Remote protocol failures, by numeric error code.",
		}, []string{"code"}),
		Imports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: "loader",
			Name:      "imports_total",
			Help:      "Components imported on demand from a remote scope.",
		}),
	}

	s.registerer.MustRegister(
		m.ObjectLoads,
		m.ObjectWrites,
		m.ObjectBytes,
		m.IndexWrites,
		m.RemoteActions,
		m.RemoteErrors,
		m.Imports,
	)
	return m
}

// Default returns the process-wide collectors, registered once with the prometheus default registerer
func Default() *M {
	initOnce.Do(func() {
		defaultM = New()
	})
	return defaultM
}

// RemoteError counts a remote failure by its numeric code
func (m *M) RemoteError(code int) {
	m.RemoteErrors.WithLabelValues(strconv.Itoa(code)).Inc()
}
