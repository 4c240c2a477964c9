package fiberspace

import "github.com/ember-actors/fiberspace/mailbox"

// State is a fiber's position in its lifecycle.
type State int

const (
	// Running means the fiber's goroutine currently holds control of its
	// bundle's single execution slot.
	Running State = iota
	// Waiting means the fiber yielded at a receive that found no
	// matching message and is not present in its bundle's ready set.
	Waiting
	// Exiting means the fiber's body has returned (or panicked). It is
	// observable but triggers no cleanup beyond removal from the
	// bundle's ready set; see DESIGN.md for why that is enough.
	Exiting
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Exiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// fiber is a named, cooperatively-scheduled unit of execution bound to a
// mailbox and a bundle. Its goroutine is the stackful-green-thread half
// of the resume/yield handshake: the bundle scheduler resumes it by
// sending on toFiber and blocking on toSched until the fiber goroutine
// yields back (or exits).
type fiber struct {
	name     string
	bundleID int
	mailbox  *mailbox.Mailbox
	body     FiberBody

	state State

	toFiber chan struct{} // scheduler -> fiber: "you may run"
	toSched chan struct{} // fiber -> scheduler: "I yielded" (or exited)

	// aliveForRescheduling is set by YieldAlive: the fiber has no new
	// message but wants another pass without being marked Waiting.
	aliveForRescheduling bool
}

func newFiber(name string, bundleID int, body FiberBody) *fiber {
	return &fiber{
		name:     name,
		bundleID: bundleID,
		mailbox:  mailbox.New(),
		body:     body,
		state:    Running,
		toFiber:  make(chan struct{}),
		toSched:  make(chan struct{}),
	}
}
