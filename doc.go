// Package fiberspace provides Erlang-style actor concurrency on top of
// multiple OS threads.
//
// The unit of concurrency is a fiber: a named, cooperatively-scheduled
// unit of execution with a private mailbox. Fibers communicate only by
// asynchronous message passing; there is no shared memory between them.
// Fibers are partitioned into bundles (one goroutine per bundle, modeling
// one worker thread each); all bundles are tracked by a coordinator
// goroutine (the bundle space) that routes messages across bundles and
// owns the global fiber-to-bundle map. A Universe is the external facade
// around the coordinator.
//
// # Constructors
//
//   - New(opts ...Option): builds a Universe and starts its coordinator.
//
// # Fiber bodies
//
// A fiber body implements FiberBody (or is adapted from a plain function
// via FiberFunc). It receives a *Context giving it Send, ReceiveOnce,
// ReceiveForever, Self, NewPID, WaitForever, and YieldAlive.
//
// # Ordering
//
// Messages from the same sender to the same receiver arrive in send
// order, whether or not sender and receiver share a bundle. There is no
// ordering guarantee between messages from distinct senders.
//
// # Out of scope
//
// Multi-node distribution, preemptive scheduling, delivery
// acknowledgements, supervision trees, and backpressure across the
// routing fabric are not provided.
package fiberspace
