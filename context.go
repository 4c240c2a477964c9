package fiberspace

import "github.com/ember-actors/fiberspace/mailbox"

// ReceiveOptions selects which pending messages a receive call will
// consume. A nil or empty whitelist accepts every value for that
// dimension. Batch <= 0 means 1.
type ReceiveOptions struct {
	TypeWhitelist   []string
	SenderWhitelist []string
	Batch           int
}

// Context is the capability a FiberBody runs with: message send/receive,
// self-identification, PID minting, and yielding. It is always scoped to
// exactly the fiber it was constructed for, which structurally rules out
// "send/receive outside a fiber" as an error case callers can even
// construct.
type Context struct {
	f *fiber
	b *bundle
}

// Self returns the calling fiber's own name.
func (c *Context) Self() string { return c.f.name }

// NewPID mints a globally-unique identifier as "{bundleID}_{counter}"
// without coordinating with any other bundle.
func (c *Context) NewPID() string { return c.b.newPID() }

// Send delivers (sender=Self(), typ, content) to receiver. If receiver
// is local to this bundle the mailbox is appended to directly; otherwise
// the send is relayed through the coordinator, asynchronously.
func (c *Context) Send(receiver, typ string, content interface{}) {
	c.b.send(c.f.name, receiver, typ, content)
}

// SpawnFiber asks the coordinator to place a new fiber by round-robin
// and returns immediately; the spawn itself happens asynchronously.
func (c *Context) SpawnFiber(name string, body FiberBody) {
	c.b.coordinator.spawnFiber(name, body)
}

// SpawnFiberInBundle asks the coordinator to place a new fiber in a
// specific bundle (co-location), returning immediately.
func (c *Context) SpawnFiberInBundle(name string, body FiberBody, bundleID int) {
	c.b.coordinator.spawnFiberInSpecificBundle(name, body, bundleID)
}

// CreateCallback returns a function that, called from any goroutine
// (typically a host event source outside any fiber), posts
// (sender=Self(), "callback", args) to receiver exactly as if Self() had
// called Send. This is the bridge a host integration uses to wake a
// fiber from outside the fiber world entirely.
func (c *Context) CreateCallback(receiver string) func(args interface{}) {
	return c.b.createCallback(c.f.name, receiver)
}

// ReceiveOnce pops at most one batch of matching messages (or blocks,
// cooperatively, until one arrives) and invokes handle once per message
// in arrival order, then returns.
func (c *Context) ReceiveOnce(opts ReceiveOptions, handle func(Message)) {
	c.receive(opts, handle, false)
}

// ReceiveForever repeats ReceiveOnce's batch-then-handle cycle
// indefinitely, yielding once after each batch for fairness. It never
// returns.
func (c *Context) ReceiveForever(opts ReceiveOptions, handle func(Message)) {
	c.receive(opts, handle, true)
}

func (c *Context) receive(opts ReceiveOptions, handle func(mailbox.Message), forever bool) {
	batch := opts.Batch
	if batch <= 0 {
		batch = 1
	}

	for {
		matched := c.f.mailbox.PopMatching(opts.TypeWhitelist, opts.SenderWhitelist, batch)

		if len(matched) == 0 {
			c.f.state = Waiting
			c.b.removeFromReady(c.f.name)
			c.yieldToScheduler()
			continue // retry after resume: a matching message may now exist
		}

		c.f.state = Running
		for _, m := range matched {
			handle(m)
		}

		if !forever {
			// The unfiltered check is intentional: an enclosing receive
			// loop may still match remaining messages (nested receive).
			if !c.f.mailbox.HasAny() {
				c.b.removeFromReady(c.f.name)
			}
			return
		}

		c.b.markReady(c.f.name)
		c.yieldToScheduler()
	}
}

// WaitForever parks the calling fiber permanently: it yields in a loop
// and leaves its bundle's ready set each time, so the scheduler
// re-enters it only when a message arrives for it. Such a message does
// not end the wait: the loop never checks the mailbox and parks again.
func (c *Context) WaitForever() {
	for {
		c.f.state = Waiting
		c.b.removeFromReady(c.f.name)
		c.yieldToScheduler()
	}
}

// YieldAlive marks the calling fiber ready for another scheduler pass
// without requiring a new message, then yields. Long CPU-bound fibers
// call this voluntarily to share the bundle.
func (c *Context) YieldAlive() {
	c.f.aliveForRescheduling = true
	c.b.markReady(c.f.name)
	c.yieldToScheduler()
}

// yieldToScheduler hands control back to the bundle's scheduler
// goroutine and blocks until it is resumed again. Exactly one of
// {scheduler goroutine, this fiber's goroutine} is unblocked at any
// instant per bundle, which is what makes bundle state safe to touch
// without a mutex.
func (c *Context) yieldToScheduler() {
	c.f.toSched <- struct{}{}
	<-c.f.toFiber
}
