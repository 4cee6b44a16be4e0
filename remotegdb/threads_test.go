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

func TestRegistry(t *testing.T) {
	s := NewSession(&mockSim{}, mockArch{}, 0)

	tc := newMockTC()
	id, err := s.AddThreadContext(tc)
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(id), 0)

	// the first context becomes current
	if s.tc != tc {
		t.Errorf("first thread context is not current")
	}

	// registering the same context twice is an error
	_, err = s.AddThreadContext(tc)
	test.ExpectedSuccess(t, curated.Is(err, DuplicateContext))

	id, err = s.AddThreadContext(newMockTC())
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(id), 1)
}

func TestReplaceContext(t *testing.T) {
	s := NewSession(&mockSim{}, mockArch{}, 0)

	tc := newMockTC()
	if _, err := s.AddThreadContext(tc); err != nil {
		t.Fatalf("AddThreadContext: %v", err)
	}

	// replacing the current context substitutes it in place
	migrated := newMockTC()
	test.ExpectedSuccess(t, s.ReplaceThreadContext(0, migrated))
	if s.tc != migrated {
		t.Errorf("current thread context did not follow the migration")
	}

	err := s.ReplaceThreadContext(9, newMockTC())
	test.ExpectedSuccess(t, curated.Is(err, UnknownContext))
}
