package runtime

import (
	"container/heap"
	"sync"

	"github.com/tacmesh/meshnode/model"
)

// outboundItem pairs a pending message with its enqueue sequence number, so
// the queue orders strictly by (priority asc, sequence asc).
type outboundItem struct {
	msg      model.TacticalMessage
	sequence uint64
}

// priorityHeap is a container/heap.Interface over outboundItem, ordered by
// (priority, sequence).
type priorityHeap []outboundItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority < h[j].msg.Priority
	}
	return h[i].sequence < h[j].sequence
}

func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *priorityHeap) Push(x any) {
	*h = append(*h, x.(outboundItem))
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// outboundQueue is the single-producer-family, single-consumer priority
// queue feeding the transmit loop. Push is safe for concurrent callers;
// TryPop never blocks, and a consumer waits on notifyCh for the next Push.
type outboundQueue struct {
	mu       sync.Mutex
	heap     priorityHeap
	nextSeq  uint64
	notifyCh chan struct{}
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{notifyCh: make(chan struct{}, 1)}
}

// Push enqueues msg and signals notifyCh to wake a waiting consumer.
func (q *outboundQueue) Push(msg model.TacticalMessage) {
	q.mu.Lock()
	heap.Push(&q.heap, outboundItem{msg: msg, sequence: q.nextSeq})
	q.nextSeq++
	q.mu.Unlock()

	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the highest-priority item if one is present.
func (q *outboundQueue) TryPop() (model.TacticalMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		return model.TacticalMessage{}, false
	}
	item := heap.Pop(&q.heap).(outboundItem)
	return item.msg, true
}

// Len reports the number of pending messages.
func (q *outboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
