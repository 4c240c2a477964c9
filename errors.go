package fiberspace

import "errors"

// Namespace prefixes every sentinel error this package defines.
const Namespace = "fiberspace"

var (
	// ErrSchedulerAlreadyRunning is returned by a bundle's run/start on
	// any call after the first; the bundle's scheduler goroutine is
	// invoked exactly once per bundle lifetime.
	ErrSchedulerAlreadyRunning = errors.New(Namespace + ": bundle scheduler already running")

	// ErrUnknownBundle is returned when an operation names a bundle id
	// the coordinator has no record of.
	ErrUnknownBundle = errors.New(Namespace + ": unknown bundle id")

	// ErrUnknownFiber is reported through the diagnostic sink when a
	// relayed message names a receiver that the coordinator or the target
	// bundle's local map does not know; the message is dropped.
	ErrUnknownFiber = errors.New(Namespace + ": unknown fiber in bundle")

	// ErrNoBundles is returned by spawnFiber (and so Universe.SpawnFiber)
	// when no bundle exists to host a fiber.
	ErrNoBundles = errors.New(Namespace + ": no bundles available")

	// ErrUniverseClosed is returned by Universe methods called after Close.
	ErrUniverseClosed = errors.New(Namespace + ": universe is closed")
)
