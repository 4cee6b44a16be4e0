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
	"github.com/kestrelsim/kestrel/curated"
	"github.com/kestrelsim/kestrel/logger"
)

// breakKey identifies a breakpoint. No two breakpoints of the same class
// share a key.
type breakKey struct {
	addr   uint64
	length uint64
}

// softBreakpoint is an instruction address hook on the thread context that
// was current when the client installed it.
type softBreakpoint struct {
	key breakKey
	id  ContextID
	tc  ThreadContext
}

// hardBreakpoint has the same external semantics as a softBreakpoint. It
// is a distinct type so that an architecture with real watchpoint
// resources has somewhere to put them; the default implementation uses the
// same instruction address hooks as the soft variant.
type hardBreakpoint struct {
	key breakKey
	id  ContextID
	tc  ThreadContext
}

// insertSoftBreak installs a software breakpoint. Inserting a breakpoint
// that already exists is a no-op.
func (s *Session) insertSoftBreak(addr uint64, length uint64) error {
	if !s.arch.CheckBpLen(length) {
		return curated.Errorf(BadRequest)
	}

	key := breakKey{addr: addr, length: length}
	if _, ok := s.softBreaks[key]; ok {
		return nil
	}

	id := s.curID
	if err := s.tc.SchedulePCEvent(addr, func() { s.trap(id, SigTrap) }); err != nil {
		return curated.Errorf(BadRequest)
	}

	s.softBreaks[key] = &softBreakpoint{key: key, id: id, tc: s.tc}
	logger.Logf(logger.Allow, "gdb", "soft breakpoint inserted at %08x", addr)

	return nil
}

// removeSoftBreak removes a software breakpoint. Removing a breakpoint
// that does not exist is an error.
func (s *Session) removeSoftBreak(addr uint64, length uint64) error {
	if !s.arch.CheckBpLen(length) {
		return curated.Errorf(BadRequest)
	}

	key := breakKey{addr: addr, length: length}
	bp, ok := s.softBreaks[key]
	if !ok {
		return curated.Errorf(BadRequest)
	}

	if err := bp.tc.RemovePCEvent(addr); err != nil {
		return curated.Errorf(BadRequest)
	}
	delete(s.softBreaks, key)
	logger.Logf(logger.Allow, "gdb", "soft breakpoint removed from %08x", addr)

	return nil
}

// insertHardBreak installs a hardware breakpoint.
func (s *Session) insertHardBreak(addr uint64, length uint64) error {
	if !s.arch.CheckBpLen(length) {
		return curated.Errorf(BadRequest)
	}

	key := breakKey{addr: addr, length: length}
	if _, ok := s.hardBreaks[key]; ok {
		return nil
	}

	id := s.curID
	if err := s.tc.SchedulePCEvent(addr, func() { s.trap(id, SigTrap) }); err != nil {
		return curated.Errorf(BadRequest)
	}

	s.hardBreaks[key] = &hardBreakpoint{key: key, id: id, tc: s.tc}
	logger.Logf(logger.Allow, "gdb", "hard breakpoint inserted at %08x", addr)

	return nil
}

// removeHardBreak removes a hardware breakpoint.
func (s *Session) removeHardBreak(addr uint64, length uint64) error {
	if !s.arch.CheckBpLen(length) {
		return curated.Errorf(BadRequest)
	}

	key := breakKey{addr: addr, length: length}
	bp, ok := s.hardBreaks[key]
	if !ok {
		return curated.Errorf(BadRequest)
	}

	if err := bp.tc.RemovePCEvent(addr); err != nil {
		return curated.Errorf(BadRequest)
	}
	delete(s.hardBreaks, key)
	logger.Logf(logger.Allow, "gdb", "hard breakpoint removed from %08x", addr)

	return nil
}

// clearBreaks removes every breakpoint in both tables. Called on detach.
func (s *Session) clearBreaks() {
	for key, bp := range s.softBreaks {
		_ = bp.tc.RemovePCEvent(key.addr)
	}
	for key, bp := range s.hardBreaks {
		_ = bp.tc.RemovePCEvent(key.addr)
	}
	s.softBreaks = make(map[breakKey]*softBreakpoint)
	s.hardBreaks = make(map[breakKey]*hardBreakpoint)
}
