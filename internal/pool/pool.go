// Package pool provides reusable object pools. fiberspace uses it to
// recycle message envelopes so sustained mailbox traffic doesn't churn
// the allocator.
package pool

// Pool is an interface that defines methods on a pool of reusable values.
type Pool interface {
	// Get returns a value from the pool, allocating one if none is free.
	Get() interface{}

	// Put returns a value back to the pool.
	Put(interface{})
}
