// Implements the EventQueue, the time-ordered priority queue driving a run.

package sim

import "container/heap"

type queuedEvent struct {
	ev  Event
	seq uint64
}

// eventHeap implements heap.Interface with deterministic ordering.
// Order by: timestamp → kind priority → scheduling sequence.
type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	ei, ej := h[i], h[j]

	// Primary: timestamp (lower first)
	if ei.ev.Timestamp() != ej.ev.Timestamp() {
		return ei.ev.Timestamp() < ej.ev.Timestamp()
	}

	// Secondary: kind priority (departures first)
	if ei.ev.Kind() != ej.ev.Kind() {
		return ei.ev.Kind() < ej.ev.Kind()
	}

	// Tertiary: insertion order
	return ei.seq < ej.seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// EventQueue holds scheduled events. Ties on timestamp are broken by kind
// (departure before arrival), then by the order events were scheduled, so a
// run is reproducible for a fixed random stream.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return q.events.Len()
}

// Schedule adds an event to the queue.
func (q *EventQueue) Schedule(e Event) {
	q.nextSeq++
	heap.Push(&q.events, queuedEvent{ev: e, seq: q.nextSeq})
}

// PopNext removes and returns the earliest event, or nil when empty.
func (q *EventQueue) PopNext() Event {
	if q.events.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.events).(queuedEvent).ev
}
