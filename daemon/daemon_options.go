package daemon

import (
	"context"

	"github.com/horizenofficial/sctemplate/ulogger"
)

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

func WithContext(ctx context.Context) Option {
	return func(d *Daemon) {
		d.Ctx = ctx
	}
}
