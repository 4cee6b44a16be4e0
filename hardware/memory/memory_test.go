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

package memory_test

import (
	"testing"

	"github.com/kestrelsim/kestrel/curated"
	"github.com/kestrelsim/kestrel/hardware/memory"
	"github.com/kestrelsim/kestrel/test"
)

func TestMapped(t *testing.T) {
	m := memory.NewMemory()
	test.ExpectedSuccess(t, m.AddRegion(0x0000, 0x1000))

	test.ExpectedSuccess(t, m.Mapped(0x0000, 4))
	test.ExpectedSuccess(t, m.Mapped(0x0ffc, 4))
	test.ExpectedFailure(t, m.Mapped(0x0ffd, 4))
	test.ExpectedFailure(t, m.Mapped(0x2000, 1))
}

func TestReadWriteWord(t *testing.T) {
	m := memory.NewMemory()
	test.ExpectedSuccess(t, m.AddRegion(0x0000, 0x1000))

	test.ExpectedSuccess(t, m.WriteWord(0x0100, 0xdeadbeef))

	v, err := m.ReadWord(0x0100)
	test.ExpectedSuccess(t, err)
	test.Equate(t, v, uint32(0xdeadbeef))

	// little-endian byte ordering
	b := make([]byte, 4)
	test.ExpectedSuccess(t, m.Read(0x0100, b))
	test.Equate(t, uint32(b[0]), uint32(0xef))
	test.Equate(t, uint32(b[3]), uint32(0xde))
}

func TestUnmapped(t *testing.T) {
	m := memory.NewMemory()
	test.ExpectedSuccess(t, m.AddRegion(0x0000, 0x1000))

	b := make([]byte, 8)
	err := m.Read(0xfffc, b)
	test.ExpectedSuccess(t, curated.Is(err, memory.NotMapped))

	// a write that straddles the end of the region changes nothing
	err = m.Write(0x0ffc, b)
	test.ExpectedSuccess(t, curated.Is(err, memory.NotMapped))
}

func TestOverlap(t *testing.T) {
	m := memory.NewMemory()
	test.ExpectedSuccess(t, m.AddRegion(0x0000, 0x1000))
	test.ExpectedSuccess(t, curated.Is(m.AddRegion(0x0800, 0x1000), memory.Overlap))
	test.ExpectedSuccess(t, m.AddRegion(0x2000, 0x1000))
}
