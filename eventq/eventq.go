// This file is part of Kestrel.
//
// Kestrel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kestrel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Kestrel.  If not, see <https://www.gnu.org/licenses/>.

package eventq

import (
	"sync"
)

// Tick is the unit of simulated time.
type Tick uint64

// Event is a handle to a scheduled function. The handle can be used to
// deschedule the function before it fires.
type Event struct {
	when Tick

	// insertion order. events scheduled for the same tick fire in the order
	// they were scheduled
	seq uint64

	fn func()

	scheduled bool
}

// Scheduled returns true if the event is still waiting to fire.
func (ev *Event) Scheduled() bool {
	return ev != nil && ev.scheduled
}

// Queue is a tick ordered queue of events. The queue itself is safe to use
// from more than one goroutine but events always fire on the goroutine that
// calls Service(), which is the simulator's main goroutine.
type Queue struct {
	crit sync.Mutex

	// signalled when a new event arrives while the service goroutine is
	// waiting in Wait()
	arrival *sync.Cond

	now     Tick
	nextSeq uint64

	// events in no particular order. the queue is small enough that a
	// linear scan for the next event is cheaper than maintaining a heap
	events []*Event
}

// NewQueue is the preferred method of initialisation for the Queue type.
func NewQueue() *Queue {
	q := &Queue{
		events: make([]*Event, 0, 10),
	}
	q.arrival = sync.NewCond(&q.crit)
	return q
}

// Now returns the current simulated time.
func (q *Queue) Now() Tick {
	q.crit.Lock()
	defer q.crit.Unlock()
	return q.now
}

// Schedule fn to run delay ticks into the future. A delay of zero means the
// event fires on the current tick, after any event currently being
// serviced and after any zero delay events scheduled before it.
func (q *Queue) Schedule(delay Tick, fn func()) *Event {
	q.crit.Lock()
	defer q.crit.Unlock()

	ev := &Event{
		when:      q.now + delay,
		seq:       q.nextSeq,
		fn:        fn,
		scheduled: true,
	}
	q.nextSeq++
	q.events = append(q.events, ev)

	q.arrival.Signal()

	return ev
}

// Post schedules fn to run on the current tick. It is the mechanism by
// which a callback from arbitrary simulator code can re-enter a subsystem
// at a well defined point in the event stream.
func (q *Queue) Post(fn func()) *Event {
	return q.Schedule(0, fn)
}

// Deschedule an event. Descheduling an event that has already fired or that
// has already been descheduled is a no-op.
func (q *Queue) Deschedule(ev *Event) {
	if ev == nil {
		return
	}

	q.crit.Lock()
	defer q.crit.Unlock()

	if !ev.scheduled {
		return
	}
	ev.scheduled = false

	for i := range q.events {
		if q.events[i] == ev {
			q.events = append(q.events[:i], q.events[i+1:]...)
			return
		}
	}
}

// Empty returns true if there are no scheduled events.
func (q *Queue) Empty() bool {
	q.crit.Lock()
	defer q.crit.Unlock()
	return len(q.events) == 0
}

// Service fires the next scheduled event, advancing simulated time to the
// event's tick. Returns false if the queue is empty.
func (q *Queue) Service() bool {
	q.crit.Lock()

	if len(q.events) == 0 {
		q.crit.Unlock()
		return false
	}

	// linear scan for the earliest event. ties are broken by insertion
	// order
	idx := 0
	for i := 1; i < len(q.events); i++ {
		e := q.events[i]
		c := q.events[idx]
		if e.when < c.when || (e.when == c.when && e.seq < c.seq) {
			idx = i
		}
	}

	ev := q.events[idx]
	q.events = append(q.events[:idx], q.events[idx+1:]...)
	ev.scheduled = false
	q.now = ev.when

	// the event function runs without the queue lock. it is free to
	// schedule further events
	q.crit.Unlock()

	ev.fn()

	return true
}

// Wait blocks until at least one event is scheduled. Used by the run loop
// when the queue has drained but an external party (the remote debugger's
// accept goroutine for example) may yet post new events.
func (q *Queue) Wait() {
	q.crit.Lock()
	defer q.crit.Unlock()

	for len(q.events) == 0 {
		q.arrival.Wait()
	}
}
