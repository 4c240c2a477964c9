// Package mailbox implements the per-fiber ordered FIFO of pending
// messages, including the whitelist/batch filtering that selective
// receive needs. A Mailbox is owned by exactly one fiber for its
// lifetime and, per the thread-confinement discipline the rest of
// fiberspace relies on, is touched only by the goroutine currently
// running that fiber or its owning bundle's scheduler, so it needs no
// internal locking.
package mailbox

import "github.com/ember-actors/fiberspace/internal/pool"

// Mailbox is an ordered sequence of messages awaiting a single fiber.
type Mailbox struct {
	items []*Message
	pool  pool.Pool // optional; recycles *Message envelopes when set
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithEnvelopePool recycles *Message envelopes through p instead of
// letting each Append/pop allocate and discard one. Use a dynamic pool
// (pool.NewDynamic) for unbounded traffic or a fixed pool
// (pool.NewFixed) to cap the number of envelopes in existence; with a
// fixed pool, Append blocks while every envelope holds a pending message.
func WithEnvelopePool(p pool.Pool) Option {
	return func(m *Mailbox) { m.pool = p }
}

// New creates an empty Mailbox.
func New(opts ...Option) *Mailbox {
	m := &Mailbox{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mailbox) newEnvelope() *Message {
	if m.pool == nil {
		return &Message{}
	}
	return m.pool.Get().(*Message)
}

func (m *Mailbox) release(msg *Message) {
	if m.pool == nil {
		return
	}
	*msg = Message{}
	m.pool.Put(msg)
}

// Append enqueues a message at the tail of the mailbox.
func (m *Mailbox) Append(sender, typ string, content interface{}) {
	env := m.newEnvelope()
	env.Sender, env.Type, env.Content = sender, typ, content
	m.items = append(m.items, env)
}

// HasAny reports whether the mailbox holds at least one message,
// ignoring any filter.
func (m *Mailbox) HasAny() bool {
	return len(m.items) > 0
}

// PopMatching scans from head to tail, collecting at most batch
// messages whose type is in typeWhitelist (when non-empty) and whose
// sender is in senderWhitelist (when non-empty), removing the matched
// messages in place while preserving the relative order of the
// remainder. A nil or empty whitelist accepts all values for that
// dimension. batch <= 0 is treated as "no limit".
func (m *Mailbox) PopMatching(typeWhitelist, senderWhitelist []string, batch int) []Message {
	if len(m.items) == 0 {
		return nil
	}

	typeSet := toSet(typeWhitelist)
	senderSet := toSet(senderWhitelist)

	var matched []Message
	remaining := m.items[:0:0]

	for _, env := range m.items {
		take := (batch <= 0 || len(matched) < batch) &&
			(typeSet == nil || typeSet[env.Type]) &&
			(senderSet == nil || senderSet[env.Sender])

		if take {
			matched = append(matched, *env)
			m.release(env)
			continue
		}
		remaining = append(remaining, env)
	}

	m.items = remaining
	return matched
}

// Snapshot returns a full, unfiltered, read-only copy of the mailbox
// contents in arrival order. It is intended for tests and diagnostics.
func (m *Mailbox) Snapshot() []Message {
	out := make([]Message, len(m.items))
	for i, env := range m.items {
		out[i] = *env
	}
	return out
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
