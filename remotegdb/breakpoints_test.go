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

package remotegdb

import (
	"testing"

	"github.com/kestrelsim/kestrel/curated"
	"github.com/kestrelsim/kestrel/test"
)

func newBreakpointSession(t *testing.T) (*Session, *mockSim, *mockTC) {
	t.Helper()

	sim := &mockSim{}
	tc := newMockTC()

	s := NewSession(sim, mockArch{}, 0)
	if _, err := s.AddThreadContext(tc); err != nil {
		t.Fatalf("AddThreadContext: %v", err)
	}

	return s, sim, tc
}

func TestSoftBreakIdempotence(t *testing.T) {
	s, _, tc := newBreakpointSession(t)

	test.ExpectedSuccess(t, s.insertSoftBreak(0x4000, 4))
	test.Equate(t, len(tc.pcEvents[0x4000]), 1)

	// inserting the same breakpoint again is a no-op
	test.ExpectedSuccess(t, s.insertSoftBreak(0x4000, 4))
	test.Equate(t, len(tc.pcEvents[0x4000]), 1)

	test.ExpectedSuccess(t, s.removeSoftBreak(0x4000, 4))
	test.Equate(t, len(tc.pcEvents[0x4000]), 0)

	// removing an absent breakpoint is an error
	err := s.removeSoftBreak(0x4000, 4)
	test.ExpectedSuccess(t, curated.Is(err, BadRequest))
}

func TestBreakLength(t *testing.T) {
	s, _, _ := newBreakpointSession(t)

	// the mock architecture only accepts a breakpoint kind of 4
	err := s.insertSoftBreak(0x4000, 2)
	test.ExpectedSuccess(t, curated.Is(err, BadRequest))

	err = s.removeSoftBreak(0x4000, 2)
	test.ExpectedSuccess(t, curated.Is(err, BadRequest))
}

func TestHardBreakSeparateTable(t *testing.T) {
	s, _, tc := newBreakpointSession(t)

	// a hard and a soft breakpoint can coexist at the same address. each
	// has its own hook
	test.ExpectedSuccess(t, s.insertSoftBreak(0x4000, 4))
	test.ExpectedSuccess(t, s.insertHardBreak(0x4000, 4))
	test.Equate(t, len(tc.pcEvents[0x4000]), 2)

	test.ExpectedSuccess(t, s.removeSoftBreak(0x4000, 4))
	test.Equate(t, len(tc.pcEvents[0x4000]), 1)

	test.ExpectedSuccess(t, s.removeHardBreak(0x4000, 4))
	test.Equate(t, len(tc.pcEvents[0x4000]), 0)
}

func TestClearBreaks(t *testing.T) {
	s, _, tc := newBreakpointSession(t)

	test.ExpectedSuccess(t, s.insertSoftBreak(0x4000, 4))
	test.ExpectedSuccess(t, s.insertSoftBreak(0x5000, 4))
	test.ExpectedSuccess(t, s.insertHardBreak(0x6000, 4))

	s.clearBreaks()
	test.Equate(t, len(tc.pcEvents), 0)
	test.Equate(t, len(s.softBreaks), 0)
	test.Equate(t, len(s.hardBreaks), 0)
}

func TestTrapSingleUse(t *testing.T) {
	s, sim, _ := newBreakpointSession(t)

	// without an attached client the trap is discarded
	s.trap(0, SigTrap)
	test.Equate(t, len(sim.posted), 0)

	// with a client attached only one trap event can be pending at a time
	s.attached = true
	s.trap(0, SigTrap)
	s.trap(0, SigTrap)
	test.Equate(t, len(sim.posted), 1)
}
