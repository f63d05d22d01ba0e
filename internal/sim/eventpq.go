package sim

import "container/heap"

// EventPQ is the main event priority queue: a binary min-heap on
// effective timestamp with insertion order breaking ties. It has a
// single owner (the dispatcher goroutine) and is not safe for
// concurrent use.
type EventPQ struct {
	h eventHeap
}

// NewEventPQ returns an empty queue.
func NewEventPQ() *EventPQ {
	return &EventPQ{}
}

// Push schedules ev.
func (pq *EventPQ) Push(ev Event) {
	heap.Push(&pq.h, queuedEvent{ev: ev, seq: pq.h.nextSeq})
	pq.h.nextSeq++
}

// Pop removes and returns the least-effective-time event. ok is false
// when the queue is empty.
func (pq *EventPQ) Pop() (Event, bool) {
	if len(pq.h.items) == 0 {
		return nil, false
	}
	qe := heap.Pop(&pq.h).(queuedEvent)
	return qe.ev, true
}

// Peek returns the least-effective-time event without removing it.
func (pq *EventPQ) Peek() (Event, bool) {
	if len(pq.h.items) == 0 {
		return nil, false
	}
	return pq.h.items[0].ev, true
}

// Len returns the number of scheduled events.
func (pq *EventPQ) Len() int { return len(pq.h.items) }

// Empty reports whether no events are scheduled.
func (pq *EventPQ) Empty() bool { return len(pq.h.items) == 0 }

type queuedEvent struct {
	ev  Event
	seq uint64
}

type eventHeap struct {
	items   []queuedEvent
	nextSeq uint64
}

func (h *eventHeap) Len() int { return len(h.items) }

func (h *eventHeap) Less(i, j int) bool {
	ti, tj := h.items[i].ev.EffectiveTime(), h.items[j].ev.EffectiveTime()
	if ti != tj {
		return ti < tj
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *eventHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *eventHeap) Push(x any) {
	h.items = append(h.items, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedEvent{}
	h.items = old[:n-1]
	return item
}
