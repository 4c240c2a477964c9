package mailbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFOOrder(t *testing.T) {
	m := New()
	m.Append("a", "t1", 1)
	m.Append("a", "t2", 2)
	m.Append("b", "t1", 3)

	got := m.Snapshot()
	require.Equal(t, []Message{
		{Sender: "a", Type: "t1", Content: 1},
		{Sender: "a", Type: "t2", Content: 2},
		{Sender: "b", Type: "t1", Content: 3},
	}, got)
}

func TestMailbox_PopMatching_PreservesRemainderOrder(t *testing.T) {
	m := New()
	m.Append("a", "log", "l1")
	m.Append("b", "reply", "r1")
	m.Append("a", "log", "l2")
	m.Append("b", "reply", "r2")

	matched := m.PopMatching([]string{"reply"}, nil, 0)
	require.Equal(t, []Message{
		{Sender: "b", Type: "reply", Content: "r1"},
		{Sender: "b", Type: "reply", Content: "r2"},
	}, matched)

	// Remainder equals the original with matched entries removed, order otherwise unchanged.
	require.Equal(t, []Message{
		{Sender: "a", Type: "log", Content: "l1"},
		{Sender: "a", Type: "log", Content: "l2"},
	}, m.Snapshot())
}

func TestMailbox_PopMatching_Batch(t *testing.T) {
	m := New()
	for i := 0; i < 5; i++ {
		m.Append("s", "t", i)
	}

	matched := m.PopMatching(nil, nil, 3)
	require.Len(t, matched, 3)
	for i, msg := range matched {
		require.Equal(t, i, msg.Content)
	}

	require.Len(t, m.Snapshot(), 2) // two messages remain, unmatched.
}

func TestMailbox_PopMatching_SenderWhitelist(t *testing.T) {
	m := New()
	m.Append("a", "t", 1)
	m.Append("b", "t", 2)
	m.Append("a", "t", 3)

	matched := m.PopMatching(nil, []string{"a"}, 0)
	require.Equal(t, []Message{
		{Sender: "a", Type: "t", Content: 1},
		{Sender: "a", Type: "t", Content: 3},
	}, matched)
	require.Equal(t, []Message{{Sender: "b", Type: "t", Content: 2}}, m.Snapshot())
}

func TestMailbox_HasAny(t *testing.T) {
	m := New()
	require.False(t, m.HasAny())
	m.Append("a", "t", nil)
	require.True(t, m.HasAny())
	m.PopMatching(nil, nil, 0)
	require.False(t, m.HasAny())
}

func TestMailbox_PopMatching_NoMatchLeavesMailboxIntact(t *testing.T) {
	m := New()
	m.Append("a", "log", 1)
	m.Append("a", "log", 2)

	matched := m.PopMatching([]string{"reply"}, nil, 0)
	require.Empty(t, matched)
	require.Len(t, m.Snapshot(), 2)
}
