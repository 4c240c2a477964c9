package fiberspace

import "github.com/ember-actors/fiberspace/metrics"

// Option configures a Universe. Use New(opts...) to construct one.
type Option func(*config)

// WithInit sets the bootstrap callback every spawned bundle invokes once,
// in its own goroutine, before its scheduler starts: register named
// helpers or spawn well-known fibers here instead of evaluating a string
// of code at startup.
func WithInit(fn InitFunc) Option {
	return func(c *config) { c.init = fn }
}

// WithMetrics installs a metrics.Provider used to instrument bundle and
// scheduler activity. The default is metrics.NewNoopProvider().
func WithMetrics(p metrics.Provider) Option {
	return func(c *config) {
		if p != nil {
			c.metricsProvider = p
		}
	}
}

// WithDiagnosticSink installs a callback invoked with a FiberFailure
// whenever a fiber body returns an error or panics. This is the hook an
// external logging fiber would subscribe through; fiberspace itself
// never implements that fiber.
func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(c *config) { c.diagnostics = sink }
}

// WithCommandBufferSize sets the buffer depth of every bundle's and the
// coordinator's cross-thread command channel. Default: 256.
func WithCommandBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.commandBufferSize = n
		}
	}
}

// WithInflateFallback sets the bundle count Inflate(fallback) falls back
// to when CPU-core detection is unavailable. Default: 32.
func WithInflateFallback(n uint) Option {
	return func(c *config) {
		if n > 0 {
			c.inflateFallback = n
		}
	}
}
