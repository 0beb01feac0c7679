package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option defines some options to the metrics initialization
type Option func(*settings)

type settings struct {
	namespace  string
	registerer prometheus.Registerer
}

func defaultSettings() *settings {
	return &settings{
		namespace:  "scope",
		registerer: prometheus.DefaultRegisterer,
	}
}

// WithNamespace defines the prefix of all registered metrics. The default is "scope".
func WithNamespace(namespace string) Option {
	return func(s *settings) {
		s.namespace = namespace
	}
}

// WithRegisterer sets the prometheus registry to register collectors with.
// The default is the prometheus default registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		if reg != nil {
			s.registerer = reg
		}
	}
}
