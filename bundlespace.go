package fiberspace

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ember-actors/fiberspace/metrics"
)

// InitFunc bootstraps a freshly spawned bundle before its scheduler
// starts running, in place of evaluating a string of shared setup code
// in every worker.
type InitFunc func(*BundleInit)

// BundleInit is the capability an InitFunc runs with: it may spawn
// fibers directly into the bundle being initialized.
type BundleInit struct {
	b *bundle
}

// SpawnFiber registers name/body directly into the bundle being
// initialized, without a coordinator round trip for the spawn itself, then
// tells the coordinator which bundle now owns name so the fiber stays
// addressable from other bundles, exactly like a fiber placed through
// Universe.SpawnFiber or Universe.SpawnFiberInBundle.
func (bi *BundleInit) SpawnFiber(name string, body FiberBody) {
	bi.b.spawnFiberLocal(name, body)
	bi.b.coordinator.registerFiber(name, bi.b.id)
}

// BundleID returns the id of the bundle being initialized.
func (bi *BundleInit) BundleID() int { return bi.b.id }

// coordinatorHandle is the narrow view of the bundle space a bundle (or
// a Context) needs to reach the coordinator: post a relay or a spawn
// request, asynchronously.
type coordinatorHandle struct {
	commands chan coordinatorCommand
}

func (h *coordinatorHandle) relayMessage(sender, receiver, typ string, content interface{}) {
	h.commands <- coordinatorCommand{
		kind: cmdRelayMessage, sender: sender, receiver: receiver, typ: typ, content: content,
	}
}

func (h *coordinatorHandle) spawnFiber(name string, body FiberBody) {
	h.commands <- coordinatorCommand{kind: cmdSpawnFiber, fiberName: name, body: body}
}

func (h *coordinatorHandle) spawnFiberInSpecificBundle(name string, body FiberBody, bundleID int) {
	h.commands <- coordinatorCommand{
		kind: cmdSpawnFiberInSpecificBundle, fiberName: name, body: body, bundleID: bundleID,
	}
}

func (h *coordinatorHandle) registerFiber(name string, bundleID int) {
	h.commands <- coordinatorCommand{kind: cmdRegisterFiber, fiberName: name, bundleID: bundleID}
}

// bundleSpace is the coordinator: it runs on its own goroutine, holds
// the global fiber->bundle map and bundle->goroutine registry, and is
// the only goroutine that reads or writes either. Every other goroutine
// reaches it by posting onto commands.
type bundleSpace struct {
	cfg config

	commands chan coordinatorCommand
	stop     chan struct{}

	bundles      map[int]*bundle
	fiberBundles map[string]int
	nextBundleID int
	cursor       int

	relayCounter metrics.Counter

	wg sync.WaitGroup // tracks every bundle goroutine; Close does not wait on it
}

func newBundleSpace(cfg config) *bundleSpace {
	return &bundleSpace{
		cfg:          cfg,
		commands:     make(chan coordinatorCommand, cfg.commandBufferSize),
		stop:         make(chan struct{}),
		bundles:      make(map[int]*bundle),
		fiberBundles: make(map[string]int),
		relayCounter: cfg.metricsProvider.Counter("fiberspace_relays_total"),
	}
}

func (s *bundleSpace) handle() *coordinatorHandle { return &coordinatorHandle{commands: s.commands} }

// run is the coordinator's event loop: read a command, apply it,
// repeat, until stop is closed.
func (s *bundleSpace) run() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		case <-s.stop:
			return
		}
	}
}

func (s *bundleSpace) apply(cmd coordinatorCommand) {
	var err error
	switch cmd.kind {
	case cmdSpawnBundles:
		err = s.spawnBundles(cmd.count)
	case cmdInflate:
		err = s.inflate(cmd.fallback)
	case cmdSpawnFiber:
		err = s.spawnFiber(cmd.fiberName, cmd.body)
	case cmdSpawnFiberInSpecificBundle:
		err = s.spawnFiberInSpecificBundle(cmd.fiberName, cmd.body, cmd.bundleID)
	case cmdRelayMessage:
		s.relayMessage(cmd.sender, cmd.receiver, cmd.typ, cmd.content)
	case cmdRegisterFiber:
		s.fiberBundles[cmd.fiberName] = cmd.bundleID // last-writer-wins on name collision
	}
	if cmd.result != nil {
		cmd.result <- err
	}
}

// postSpawnBundles and the three methods below are the only entry points
// Universe uses to reach the coordinator's admin operations. Each posts a
// command and blocks for its result, so every mutation of bundles,
// fiberBundles, nextBundleID, and cursor stays on the coordinator's own
// goroutine no matter which goroutine called Universe: a fiber posting
// through coordinatorHandle concurrently never races with these.
func (s *bundleSpace) postSpawnBundles(n uint) error {
	result := make(chan error, 1)
	s.commands <- coordinatorCommand{kind: cmdSpawnBundles, count: n, result: result}
	return <-result
}

func (s *bundleSpace) postInflate(fallback uint) error {
	result := make(chan error, 1)
	s.commands <- coordinatorCommand{kind: cmdInflate, fallback: fallback, result: result}
	return <-result
}

func (s *bundleSpace) postSpawnFiber(name string, body FiberBody) error {
	result := make(chan error, 1)
	s.commands <- coordinatorCommand{kind: cmdSpawnFiber, fiberName: name, body: body, result: result}
	return <-result
}

func (s *bundleSpace) postSpawnFiberInSpecificBundle(name string, body FiberBody, bundleID int) error {
	result := make(chan error, 1)
	s.commands <- coordinatorCommand{
		kind: cmdSpawnFiberInSpecificBundle, fiberName: name, body: body, bundleID: bundleID, result: result,
	}
	return <-result
}

// spawnBundles creates n new bundles, each on its own goroutine running
// init (if configured) and then its scheduler loop. Init for the n
// bundles runs concurrently, one per bundle's own goroutine; errgroup
// joins their completion and folds any panic into a single error,
// without waiting for the scheduler loops themselves, which run forever.
func (s *bundleSpace) spawnBundles(n uint) error {
	if n == 0 {
		return nil
	}

	ids := make([]int, n)
	for i := range ids {
		ids[i] = s.nextBundleID
		s.nextBundleID++
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, id := range ids {
		b := newBundle(id, s.handle(), s.cfg.commandBufferSize, s.cfg.metricsProvider, s.cfg.diagnostics)
		s.bundles[id] = b

		ready := make(chan error, 1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = b.start(s.cfg.init, ready)
		}()

		g.Go(func() error { return <-ready })
	}

	return g.Wait()
}

// inflate spawns one bundle per detected CPU core, or fallback if
// detection is unavailable (yields <= 0). runtime.NumCPU() is the Go
// standard library's answer to that question, not a heuristic this
// module implements itself.
func (s *bundleSpace) inflate(fallback uint) error {
	n := runtime.NumCPU()
	if n <= 0 {
		n = int(fallback)
	}
	return s.spawnBundles(uint(n))
}

// spawnFiber places name by round-robin across existing bundles and
// posts the local spawn to that bundle's goroutine.
func (s *bundleSpace) spawnFiber(name string, body FiberBody) error {
	if len(s.bundles) == 0 {
		return ErrNoBundles
	}

	ids := s.bundleIDsSorted()
	id := ids[s.cursor%len(ids)]
	s.cursor++

	return s.placeFiber(name, body, id)
}

// spawnFiberInSpecificBundle places name in bundleID explicitly, for
// co-location.
func (s *bundleSpace) spawnFiberInSpecificBundle(name string, body FiberBody, bundleID int) error {
	if _, ok := s.bundles[bundleID]; !ok {
		return ErrUnknownBundle
	}
	return s.placeFiber(name, body, bundleID)
}

func (s *bundleSpace) placeFiber(name string, body FiberBody, bundleID int) error {
	s.fiberBundles[name] = bundleID // last-writer-wins on name collision
	s.bundles[bundleID].commands <- bundleCommand{kind: cmdSpawnLocalFiber, fiberName: name, body: body}
	return nil
}

// relayMessage looks up receiver's bundle and posts receiveRelayed to
// it. An unknown receiver is dropped silently, surfaced only via the
// diagnostic sink, since relay is fire-and-forget; see DESIGN.md.
func (s *bundleSpace) relayMessage(sender, receiver, typ string, content interface{}) {
	s.relayCounter.Add(1)

	bundleID, ok := s.fiberBundles[receiver]
	if !ok {
		if s.cfg.diagnostics != nil {
			s.cfg.diagnostics(FiberFailure{Fiber: receiver, BundleID: -1, Err: ErrUnknownFiber})
		}
		return
	}

	target, ok := s.bundles[bundleID]
	if !ok {
		return
	}
	target.commands <- bundleCommand{
		kind: cmdReceiveRelayed, sender: sender, receiver: receiver, typ: typ, content: content,
	}
}

// bundleIDsSorted returns bundle ids in ascending order so round-robin
// placement is deterministic regardless of map iteration order.
func (s *bundleSpace) bundleIDsSorted() []int {
	ids := make([]int, 0, len(s.bundles))
	for id := range s.bundles {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
