// Package bus implements the deterministic logical clock and event scheduler
// at the heart of a router session. The clock only advances when Tick is
// called; scheduled events deliver to registered targets in strict
// (time_ms, seq) order.
package bus

import (
	"container/heap"
)

type (
	// Event is a scheduled delivery. Delivery order is lexicographic on
	// (TimeMS, Seq); Seq is a monotonically increasing bus counter so ties
	// among equal-time schedules preserve insertion order.
	Event struct {
		// TimeMS is the absolute logical delivery time.
		TimeMS int64
		// Seq orders events scheduled for the same time.
		Seq int64
		// Target names the twin that receives the payload.
		Target string
		// Payload is the delivery body, shaped like the target's tool args.
		Payload map[string]any
	}

	// Target consumes deliveries for a named twin. Deliver is semantically
	// equivalent to the corresponding tool call(s).
	Target interface {
		Deliver(payload map[string]any) (map[string]any, error)
	}

	// Observer is notified of every delivery and of schedules addressed to
	// unknown targets. The router uses it to append trace records.
	Observer interface {
		EventDelivered(ev Event, result map[string]any, err error)
		UnknownTarget(ev Event)
	}

	// TickSummary reports what a Tick drained and what remains queued.
	TickSummary struct {
		Delivered map[string]int
		Pending   map[string]int
	}

	// Bus is the single-threaded cooperative scheduler. It is not safe for
	// concurrent use; a session serializes all access.
	Bus struct {
		clockMS  int64
		seq      int64
		queue    eventHeap
		targets  map[string]Target
		observer Observer
		rng      *RNG
	}
)

// New constructs a bus at logical time zero with a deterministic RNG derived
// from seed.
func New(seed int64) *Bus {
	b := &Bus{
		targets: make(map[string]Target),
		rng:     NewRNG(seed),
	}
	heap.Init(&b.queue)
	return b
}

// ClockMS returns the current logical time.
func (b *Bus) ClockMS() int64 { return b.clockMS }

// RNG returns the session RNG. Twins must draw randomness only through this
// handle so seeds fully determine behavior.
func (b *Bus) RNG() *RNG { return b.rng }

// RegisterTarget binds a delivery target to a name. Later registrations for
// the same name replace earlier ones.
func (b *Bus) RegisterTarget(name string, target Target) {
	b.targets[name] = target
}

// SetObserver installs the delivery observer.
func (b *Bus) SetObserver(obs Observer) { b.observer = obs }

// Schedule inserts an event dtMS ahead of the current clock. Negative deltas
// are treated as zero. Scheduling to an unknown target is recorded through
// the observer but never fails.
func (b *Bus) Schedule(dtMS int64, target string, payload map[string]any) {
	if dtMS < 0 {
		dtMS = 0
	}
	ev := Event{
		TimeMS:  b.clockMS + dtMS,
		Seq:     b.nextSeq(),
		Target:  target,
		Payload: payload,
	}
	if _, ok := b.targets[target]; !ok && b.observer != nil {
		b.observer.UnknownTarget(ev)
	}
	heap.Push(&b.queue, ev)
}

// Tick advances the clock by dtMS and drains every event due at or before
// the new time. Events scheduled during the drain, even at dt=0, carry a seq
// past the drain boundary and are deferred to the next Tick.
func (b *Bus) Tick(dtMS int64) TickSummary {
	if dtMS < 0 {
		dtMS = 0
	}
	b.clockMS += dtMS
	delivered := make(map[string]int)

	// Snapshot the seq boundary: events scheduled during this drain are
	// deferred to the next Tick even when due immediately.
	boundary := b.seq
	for b.queue.Len() > 0 {
		head := b.queue[0]
		if head.TimeMS > b.clockMS || head.Seq > boundary {
			break
		}
		ev := heap.Pop(&b.queue).(Event)
		// Consumed events count as delivered even when no target handles
		// them; the observer has already recorded the unknown target.
		b.dispatch(ev)
		delivered[ev.Target]++
	}
	return TickSummary{Delivered: delivered, Pending: b.Pending()}
}

// Pending counts queued events grouped by target, plus a "total" entry.
func (b *Bus) Pending() map[string]int {
	counts := make(map[string]int)
	total := 0
	for _, ev := range b.queue {
		counts[ev.Target]++
		total++
	}
	counts["total"] = total
	return counts
}

func (b *Bus) dispatch(ev Event) bool {
	target, ok := b.targets[ev.Target]
	if !ok {
		if b.observer != nil {
			b.observer.UnknownTarget(ev)
		}
		return false
	}
	result, err := target.Deliver(ev.Payload)
	if b.observer != nil {
		b.observer.EventDelivered(ev, result, err)
	}
	return true
}

func (b *Bus) nextSeq() int64 {
	b.seq++
	return b.seq
}

// eventHeap is a min-heap ordered by (TimeMS, Seq).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].TimeMS != h[j].TimeMS {
		return h[i].TimeMS < h[j].TimeMS
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
