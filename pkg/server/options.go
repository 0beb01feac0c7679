package server

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a server
type Option func(*Server)

// WithAddr sets the listening address
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithMaxMessageSize limits the size of requests. Zero means no limit.
func WithMaxMessageSize(size int64) Option {
	return func(s *Server) {
		s.maxMessageSize = size
	}
}

// WithMetrics exposes prometheus metrics on /metrics
func WithMetrics(enabled bool) Option {
	return func(s *Server) {
		s.withMetrics = enabled
	}
}

// WithShutdownTimeout sets the grace period to stop serving
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.l = l
		}
	}
}
