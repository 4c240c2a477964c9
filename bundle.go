package fiberspace

import (
	"fmt"
	"sync/atomic"

	"github.com/ember-actors/fiberspace/metrics"
)

// bundle owns one fiber set and runs its scheduler on a single goroutine
// standing in for a dedicated worker thread. Every field below is
// touched only by that goroutine or by whichever fiber goroutine
// currently holds the bundle's single execution slot, so none of it
// needs a mutex; see SPEC_FULL.md.
type bundle struct {
	id          int
	coordinator *coordinatorHandle

	fibers map[string]*fiber

	readyOrder []string
	readySet   map[string]bool

	nextLocalPID uint64

	commands chan bundleCommand

	metrics     metrics.Provider
	resumes     metrics.Counter
	passes      metrics.Counter
	readyDepth  metrics.UpDownCounter
	mailboxSize metrics.UpDownCounter

	diagnostics DiagnosticSink

	// started guards run/start against a second invocation. It is a bare
	// atomic compare-and-swap, not a sync.Once: Once.Do blocks a second
	// caller until the wrapped function *returns*, but the scheduler loop
	// never returns, so wrapping it in Once would make a second start()
	// hang forever instead of returning ErrSchedulerAlreadyRunning.
	started atomic.Bool
}

func newBundle(id int, coord *coordinatorHandle, commandBuffer int, provider metrics.Provider, diag DiagnosticSink) *bundle {
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}
	attrs := metrics.WithAttributes(map[string]string{"bundle": fmt.Sprintf("%d", id)})
	return &bundle{
		id:          id,
		coordinator: coord,
		fibers:      make(map[string]*fiber),
		readySet:    make(map[string]bool),
		commands:    make(chan bundleCommand, commandBuffer),
		metrics:     provider,
		resumes:     provider.Counter("fiberspace_bundle_resumes_total", attrs),
		passes:      provider.Counter("fiberspace_bundle_passes_total", attrs),
		readyDepth:  provider.UpDownCounter("fiberspace_bundle_ready_depth", attrs),
		mailboxSize: provider.UpDownCounter("fiberspace_bundle_fibers", attrs),
		diagnostics: diag,
	}
}

// run starts the bundle scheduler directly, with no init callback. It is
// invoked exactly once per bundle lifetime; a second call returns
// ErrSchedulerAlreadyRunning immediately without affecting the running
// scheduler.
func (b *bundle) run() error {
	return b.start(nil, nil)
}

// start runs init (if non-nil) and then the scheduler loop, both on the
// calling goroutine, which becomes the bundle's one and only goroutine
// for the rest of its life. Running init here, rather than on a separate
// errgroup goroutine, keeps bundle state touched by a single goroutine
// at all times, including while init is spawning the bundle's first
// fibers directly. If ready is non-nil it receives exactly one value,
// nil or the error recovered from a panicking init, once init has
// finished and before the scheduler loop begins; a caller that wants to
// know when a bundle's startup settled waits on ready rather than on
// start's return, since start does not return until the bundle stops.
//
// start is invoked exactly once per bundle lifetime; a second call
// returns ErrSchedulerAlreadyRunning immediately (and sends nothing to
// ready) without affecting the running scheduler.
func (b *bundle) start(init InitFunc, ready chan<- error) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrSchedulerAlreadyRunning
	}

	var initErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				initErr = fmt.Errorf("bundle %d init panicked: %v", b.id, r)
			}
		}()
		if init != nil {
			init(&BundleInit{b: b})
		}
	}()
	if ready != nil {
		ready <- initErr
	}

	b.loop()
	return nil
}

func (b *bundle) loop() {
	for {
		for len(b.readyOrder) > 0 {
			snapshot := append([]string(nil), b.readyOrder...)
			for _, name := range snapshot {
				b.resumeOnce(name)
			}
			b.passes.Add(1)
			b.drain()
		}

		// Cooperative drain point: service every command currently
		// queued without blocking, so work arriving mid-drain does not
		// wait for a park/wake round trip.
		b.drain()
		if len(b.readyOrder) > 0 {
			continue
		}

		// Park: block until the coordinator or a host callback posts a
		// command. The channel send/receive pair is the wake protocol;
		// no separate condition variable is needed.
		cmd := <-b.commands
		b.handle(cmd)
	}
}

func (b *bundle) drain() {
	for {
		select {
		case cmd := <-b.commands:
			b.handle(cmd)
		default:
			return
		}
	}
}

func (b *bundle) handle(cmd bundleCommand) {
	switch cmd.kind {
	case cmdSpawnLocalFiber:
		b.spawnFiberLocal(cmd.fiberName, cmd.body)
	case cmdReceiveRelayed:
		b.receiveRelayed(cmd.sender, cmd.receiver, cmd.typ, cmd.content)
	case cmdHostCallback:
		b.send(cmd.sender, cmd.receiver, cmd.typ, cmd.content)
	}
}

// resumeOnce gives fiber name control exactly once: send on its resume
// channel, then block until it yields (or exits). If name is no longer
// registered, or its fiber has already exited, this only drops name from
// the ready set.
func (b *bundle) resumeOnce(name string) {
	f, ok := b.fibers[name]
	if !ok || f.state == Exiting {
		b.removeFromReady(name)
		return
	}
	f.aliveForRescheduling = false
	f.state = Running
	b.resumes.Add(1)

	f.toFiber <- struct{}{}
	<-f.toSched
}

// spawnFiberLocal registers a fiber, starts its goroutine, and gives it
// exactly one guaranteed first schedule: it is marked ready immediately,
// so any unconditional work its body performs before its first receive
// call runs without requiring a message to arrive first. From then on it
// behaves like any other fiber: it stays ready only for as long as its
// mailbox has matching work, or it marks itself alive explicitly.
func (b *bundle) spawnFiberLocal(name string, body FiberBody) {
	f := newFiber(name, b.id, body)
	b.fibers[name] = f // last-writer-wins on name collision; see DESIGN.md
	b.mailboxSize.Add(1)
	b.markReady(name)

	ctx := &Context{f: f, b: b}
	go func() {
		<-f.toFiber // wait for the bundle's first resume

		var runErr error
		func() {
			// Contain a panicking body to this fiber: recover here, in
			// the fiber's own goroutine, so the scheduler (blocked on
			// <-f.toSched in resumeOnce) is always released.
			defer func() {
				if r := recover(); r != nil {
					if b.diagnostics != nil {
						b.diagnostics(FiberFailure{Fiber: name, BundleID: b.id, Recovered: r})
					}
				}
			}()
			runErr = f.body.Run(ctx)
		}()

		f.state = Exiting
		b.removeFromReady(name)
		if runErr != nil && b.diagnostics != nil {
			b.diagnostics(FiberFailure{Fiber: name, BundleID: b.id, Err: runErr})
		}
		f.toSched <- struct{}{}
	}()
}

// send delivers (sender, typ, content) to receiver. A local receiver's
// mailbox is appended to directly and it is marked ready; otherwise the
// send is relayed through the coordinator, asynchronously.
func (b *bundle) send(sender, receiver, typ string, content interface{}) {
	if target, ok := b.fibers[receiver]; ok {
		target.mailbox.Append(sender, typ, content)
		b.markReady(receiver)
		return
	}
	b.coordinator.relayMessage(sender, receiver, typ, content)
}

// receiveRelayed is executed by this bundle's own goroutine (posted by
// the coordinator). If receiver is not locally
// known this is an error, surfaced only as a diagnostic, since the
// post is fire-and-forget and has no reply path.
func (b *bundle) receiveRelayed(sender, receiver, typ string, content interface{}) {
	target, ok := b.fibers[receiver]
	if !ok {
		if b.diagnostics != nil {
			b.diagnostics(FiberFailure{Fiber: receiver, BundleID: b.id, Err: ErrUnknownFiber})
		}
		return
	}
	target.mailbox.Append(sender, typ, content)
	b.markReady(receiver)
}

// createCallback installs a host-thread bridge: calling the returned
// function from any goroutine posts a message (sender=name, type
// "callback", content=args) onto this bundle's command channel; the
// bundle then delivers it like an ordinary send, locally or relayed
// through the coordinator. Used to bridge host event sources into the
// fiber world.
func (b *bundle) createCallback(name, receiver string) func(args interface{}) {
	return func(args interface{}) {
		b.commands <- bundleCommand{
			kind:     cmdHostCallback,
			sender:   name,
			receiver: receiver,
			typ:      "callback",
			content:  args,
		}
	}
}

// newPID mints "{bundleID}_{counter}", unique across the whole bundle
// space because bundle ids are unique and this counter only ever
// advances from the fiber execution slot that currently owns the bundle.
func (b *bundle) newPID() string {
	b.nextLocalPID++
	return fmt.Sprintf("%d_%d", b.id, b.nextLocalPID)
}

func (b *bundle) markReady(name string) {
	if b.readySet[name] {
		return
	}
	b.readySet[name] = true
	b.readyOrder = append(b.readyOrder, name)
	b.readyDepth.Add(1)
}

func (b *bundle) removeFromReady(name string) {
	if !b.readySet[name] {
		return
	}
	delete(b.readySet, name)
	for i, n := range b.readyOrder {
		if n == name {
			b.readyOrder = append(b.readyOrder[:i], b.readyOrder[i+1:]...)
			break
		}
	}
	b.readyDepth.Add(-1)
}
