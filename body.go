package fiberspace

// FiberBody is the polymorphic capability a fiber executes: an object
// providing a single Run method parameterized over the Context that
// gives it message send/receive, self-identification, PID minting, and
// yielding.
type FiberBody interface {
	Run(ctx *Context) error
}

// FiberFunc adapts a plain function to FiberBody, the one function
// shape a fiber body needs.
type FiberFunc func(ctx *Context) error

// Run implements FiberBody.
func (f FiberFunc) Run(ctx *Context) error { return f(ctx) }
