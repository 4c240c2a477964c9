package fiberspace

// Cross-thread transport: typed commands posted onto a recipient
// goroutine's buffered channel. Ordinary fiber-to-fiber traffic is
// fire-and-forget; replies are just other messages, never a reply
// channel. Universe's admin calls are the one exception: they post a
// coordinatorCommand carrying a result channel and block on it, so the
// coordinator's own goroutine stays the only mutator of its maps.

// bundleCommandKind tags the worker-side commands a bundle's goroutine
// services at its scheduler's drain points.
type bundleCommandKind int

const (
	cmdSpawnLocalFiber bundleCommandKind = iota
	cmdReceiveRelayed
	cmdHostCallback
)

// bundleCommand is posted onto a bundle's command channel by the
// coordinator (spawnLocalFiber, receiveRelayedMessage) or by a host
// callback created via createCallback.
type bundleCommand struct {
	kind bundleCommandKind

	// cmdSpawnLocalFiber
	fiberName string
	body      FiberBody

	// cmdReceiveRelayed / cmdHostCallback
	sender   string
	receiver string
	typ      string
	content  interface{}
}

// coordinatorCommandKind tags the commands the bundle space's goroutine
// services.
type coordinatorCommandKind int

const (
	cmdSpawnBundles coordinatorCommandKind = iota
	cmdSpawnFiber
	cmdSpawnFiberInSpecificBundle
	cmdRelayMessage
	cmdInflate
	cmdRegisterFiber
)

// coordinatorCommand is posted onto the coordinator's command channel by
// Universe (admin calls), by a bundle relaying a cross-bundle send, or by a
// BundleInit registering a fiber it spawned directly into its own bundle.
type coordinatorCommand struct {
	kind coordinatorCommandKind

	// cmdSpawnBundles / cmdInflate
	count    uint
	fallback uint

	// cmdSpawnFiber / cmdSpawnFiberInSpecificBundle / cmdRegisterFiber
	// (cmdRegisterFiber uses only fiberName and bundleID; body is unused)
	fiberName string
	body      FiberBody
	bundleID  int

	// cmdRelayMessage
	sender   string
	receiver string
	typ      string
	content  interface{}

	// result, when non-nil, receives the error the applied operation
	// returned (nil on success), exactly once. Universe's admin methods
	// (SpawnBundles, Inflate, SpawnFiber, SpawnFiberInBundle) use this to
	// get a synchronous-looking call while keeping every read and write
	// of the coordinator's maps on the coordinator's own goroutine; see
	// bundleSpace.postSpawnBundles and friends.
	result chan<- error
}
