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
	"fmt"
	"strings"

	"github.com/kestrelsim/kestrel/curated"
)

// error patterns for the thread registry.
const (
	DuplicateContext = "gdb: thread context already registered"
	UnknownContext   = "gdb: no thread context with id %d"
)

type threadEntry struct {
	id ContextID
	tc ThreadContext
}

// AddThreadContext registers a thread context with the session, assigning
// the next unused ContextID. The first context to be added becomes the
// current context.
//
// Must be called from the simulation goroutine.
func (s *Session) AddThreadContext(tc ThreadContext) (ContextID, error) {
	for _, e := range s.threads {
		if e.tc == tc {
			return 0, curated.Errorf(DuplicateContext)
		}
	}

	id := ContextID(len(s.threads))
	s.threads = append(s.threads, threadEntry{id: id, tc: tc})

	if s.tc == nil {
		s.tc = tc
		s.curID = id
	}

	return id, nil
}

// ReplaceThreadContext substitutes a new thread context for the one
// registered under id. Used when a simulated CPU migrates a thread.
//
// Must be called from the simulation goroutine.
func (s *Session) ReplaceThreadContext(id ContextID, tc ThreadContext) error {
	for i := range s.threads {
		if s.threads[i].id == id {
			if s.tc == s.threads[i].tc {
				s.tc = tc
				s.regs = nil
			}
			s.threads[i].tc = tc
			return nil
		}
	}
	return curated.Errorf(UnknownContext, int(id))
}

// selectThreadContext makes the identified context current and invalidates
// the register cache. Returns false if the id is not registered.
func (s *Session) selectThreadContext(id ContextID) bool {
	for _, e := range s.threads {
		if e.id == id {
			s.tc = e.tc
			s.curID = e.id
			s.regs = nil
			return true
		}
	}
	return false
}

func (s *Session) findThread(id ContextID) ThreadContext {
	for _, e := range s.threads {
		if e.id == id {
			return e.tc
		}
	}
	return nil
}

// threadInfoReply returns the next page of the thread list for the
// qfThreadInfo/qsThreadInfo pair. Thread IDs are one-based on the wire.
func (s *Session) threadInfoReply() string {
	if s.threadInfoIdx >= len(s.threads) {
		return "l"
	}

	const batchSize = 16

	b := strings.Builder{}
	b.WriteByte('m')
	for n := 0; n < batchSize && s.threadInfoIdx < len(s.threads); n++ {
		if n > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%x", int(s.threads[s.threadInfoIdx].id)+1)
		s.threadInfoIdx++
	}

	return b.String()
}
