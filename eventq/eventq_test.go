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

package eventq_test

import (
	"testing"

	"github.com/kestrelsim/kestrel/eventq"
	"github.com/kestrelsim/kestrel/test"
)

func TestOrdering(t *testing.T) {
	q := eventq.NewQueue()

	var order []int
	q.Schedule(5, func() { order = append(order, 5) })
	q.Schedule(1, func() { order = append(order, 1) })
	q.Schedule(3, func() { order = append(order, 3) })

	for q.Service() {
	}

	test.Equate(t, len(order), 3)
	test.Equate(t, order[0], 1)
	test.Equate(t, order[1], 3)
	test.Equate(t, order[2], 5)
	test.Equate(t, uint64(q.Now()), uint64(5))
}

func TestPostFIFO(t *testing.T) {
	q := eventq.NewQueue()

	var order []int

	// events posted during another event run on the same tick and in the
	// order they were posted
	q.Schedule(2, func() {
		q.Post(func() { order = append(order, 1) })
		q.Post(func() { order = append(order, 2) })
	})
	q.Schedule(3, func() { order = append(order, 3) })

	for q.Service() {
	}

	test.Equate(t, len(order), 3)
	test.Equate(t, order[0], 1)
	test.Equate(t, order[1], 2)
	test.Equate(t, order[2], 3)
}

func TestDeschedule(t *testing.T) {
	q := eventq.NewQueue()

	fired := false
	ev := q.Schedule(1, func() { fired = true })
	test.ExpectedSuccess(t, ev.Scheduled())

	q.Deschedule(ev)
	test.ExpectedFailure(t, ev.Scheduled())

	for q.Service() {
	}
	test.ExpectedFailure(t, fired)

	// descheduling twice is a no-op
	q.Deschedule(ev)
}

func TestEmpty(t *testing.T) {
	q := eventq.NewQueue()
	test.ExpectedSuccess(t, q.Empty())
	test.ExpectedFailure(t, q.Service())

	q.Schedule(1, func() {})
	test.ExpectedFailure(t, q.Empty())
}
