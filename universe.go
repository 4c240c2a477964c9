package fiberspace

import (
	"sync"
	"sync/atomic"
)

// Universe is the external entry point: construct one with New, grow it
// with SpawnBundles or Inflate, populate it with SpawnFiber, and Close it
// when done. Every other type in this package is reached only through a
// Universe or through the Context a running fiber is given.
type Universe struct {
	space *bundleSpace

	closeOnce sync.Once
	closed    atomic.Bool
}

// New constructs a Universe with no bundles yet; call SpawnBundles or
// Inflate to add capacity before spawning fibers.
func New(opts ...Option) *Universe {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	space := newBundleSpace(cfg)
	go space.run()

	return &Universe{space: space}
}

// SpawnBundles adds n bundles, each running WithInit's callback (if any)
// once before joining the pool of placement targets for SpawnFiber. It
// blocks until every new bundle has finished its init callback (or
// returns the first panic any of them raised), but does not wait for the
// bundles themselves to do anything further: their schedulers run
// forever in the background from this call onward.
func (u *Universe) SpawnBundles(n uint) error {
	if u.isClosed() {
		return ErrUniverseClosed
	}
	return u.space.postSpawnBundles(n)
}

// Inflate spawns one bundle per detected CPU core, or fallback[0] (or the
// value set by WithInflateFallback, default 32) when core detection is
// unavailable. At most one fallback value is read; extras are ignored.
func (u *Universe) Inflate(fallback ...uint) error {
	if u.isClosed() {
		return ErrUniverseClosed
	}
	fb := u.space.cfg.inflateFallback
	if len(fallback) > 0 {
		fb = fallback[0]
	}
	return u.space.postInflate(fb)
}

// SpawnFiber places a new fiber by round-robin across existing bundles.
// It returns ErrNoBundles if no bundle has been spawned yet.
func (u *Universe) SpawnFiber(name string, body FiberBody) error {
	if u.isClosed() {
		return ErrUniverseClosed
	}
	return u.space.postSpawnFiber(name, body)
}

// SpawnFiberFunc adapts fn to FiberBody and delegates to SpawnFiber.
func (u *Universe) SpawnFiberFunc(name string, fn func(ctx *Context) error) error {
	return u.SpawnFiber(name, FiberFunc(fn))
}

// SpawnFiberInBundle places a new fiber in a specific bundle, for
// co-locating fibers that need to run without a coordinator round trip
// between them. It returns ErrUnknownBundle if bundleID was never
// spawned.
func (u *Universe) SpawnFiberInBundle(name string, body FiberBody, bundleID int) error {
	if u.isClosed() {
		return ErrUniverseClosed
	}
	return u.space.postSpawnFiberInSpecificBundle(name, body, bundleID)
}

// Close stops the coordinator's event loop. It does not interrupt
// already-running fibers or bundle schedulers: there is no preemption
// primitive in this design, only cooperative yield, so any fiber
// blocked in ReceiveForever or WaitForever keeps waiting. Close is safe
// to call more than once; only the first call has any effect.
func (u *Universe) Close() error {
	u.closeOnce.Do(func() {
		u.closed.Store(true)
		close(u.space.stop)
	})
	return nil
}

func (u *Universe) isClosed() bool {
	return u.closed.Load()
}
