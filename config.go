package fiberspace

import "github.com/ember-actors/fiberspace/metrics"

// config holds Universe configuration assembled by Option values.
type config struct {
	// init runs once in every spawned bundle's own goroutine, before its
	// scheduler starts: a registry of helper behavior distributed by
	// value to every worker instead of evaluated code.
	init InitFunc

	// metricsProvider instruments bundle/scheduler activity. Defaults to
	// metrics.NewNoopProvider().
	metricsProvider metrics.Provider

	// diagnostics receives FiberFailure values when a fiber body panics.
	// Nil means failures are contained silently (still removed from
	// ready, still leave the bundle running).
	diagnostics DiagnosticSink

	// commandBufferSize sizes every bundle's and the coordinator's
	// command channel. Cross-thread posts are fire-and-forget; a
	// generous buffer keeps posting non-blocking under normal load.
	commandBufferSize int

	// inflateFallback is the bundle count Inflate uses when CPU-count
	// detection is unavailable or yields zero.
	inflateFallback uint
}

func defaultConfig() config {
	return config{
		metricsProvider:   metrics.NewNoopProvider(),
		commandBufferSize: 256,
		inflateFallback:   32,
	}
}
