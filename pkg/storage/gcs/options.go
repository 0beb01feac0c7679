package gcs

import (
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// Credentials points to a service account json file. Without it, the default application credentials are used.
func Credentials(file string) Option {
	return func(g *gcs) {
		if file != "" {
			g.clientOptions = append(g.clientOptions, option.WithCredentialsFile(file))
		}
	}
}

// ClientOptions adds raw options to the google API client (e.g. endpoint for an emulator)
func ClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) {
		g.clientOptions = append(g.clientOptions, opts...)
	}
}
