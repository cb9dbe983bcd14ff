package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tacmesh/meshnode/model"
)

// TestQueuePriorityOvertake implements scenario S2: a message enqueued
// later at a higher priority (lower number) overtakes one enqueued earlier
// at a lower priority, as long as the earlier one has not yet been popped.
func TestQueuePriorityOvertake(t *testing.T) {
	q := newOutboundQueue()

	m1 := model.TacticalMessage{MsgID: "m1", Priority: model.PriorityRoutine}
	m2 := model.TacticalMessage{MsgID: "m2", Priority: model.PriorityFlash}

	q.Push(m1)
	q.Push(m2)

	first, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, "m2", first.MsgID)

	second, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, "m1", second.MsgID)

	_, ok = q.TryPop()
	require.False(t, ok)
}

// TestQueueFIFOWithinPriority verifies enqueue-order tie-breaking within a
// single priority level.
func TestQueueFIFOWithinPriority(t *testing.T) {
	q := newOutboundQueue()

	q.Push(model.TacticalMessage{MsgID: "a", Priority: model.PriorityImmediate})
	q.Push(model.TacticalMessage{MsgID: "b", Priority: model.PriorityImmediate})
	q.Push(model.TacticalMessage{MsgID: "c", Priority: model.PriorityImmediate})

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, want, got.MsgID)
	}
}
