package scheduler

import (
	"container/heap"
	"time"
)

// Kind is the action carried by a queued event.
type Kind int

const (
	// Poll samples ambient light and decides whether a fade is needed.
	Poll Kind = iota
	// FadeStep applies one step of the current fade.
	FadeStep
)

func (k Kind) String() string {
	switch k {
	case Poll:
		return "poll"
	case FadeStep:
		return "fade-step"
	default:
		return "unknown"
	}
}

// Event is an action due at an absolute time.
type Event struct {
	At   time.Time
	Kind Kind
	seq  uint64
}

// Queue orders events by due time. Events due at the same instant come out in
// the order they were pushed.
type Queue struct {
	events eventHeap
	seq    uint64
}

// Push schedules kind at the given time.
func (q *Queue) Push(at time.Time, kind Kind) {
	heap.Push(&q.events, Event{At: at, Kind: kind, seq: q.seq})
	q.seq++
}

// Peek returns the earliest event without removing it.
func (q *Queue) Peek() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0], true
}

// Pop removes and returns the earliest event.
func (q *Queue) Pop() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.events).(Event), true
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Count returns the number of pending events of the given kind.
func (q *Queue) Count(kind Kind) int {
	n := 0
	for _, e := range q.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if !h[i].At.Equal(h[j].At) {
		return h[i].At.Before(h[j].At)
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
