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

package memory

import (
	"encoding/binary"

	"github.com/kestrelsim/kestrel/curated"
)

// error patterns for the memory package.
const (
	NotMapped = "memory: address range not mapped"
	Overlap   = "memory: region overlaps existing region"
)

// region is a contiguous block of backed RAM.
type region struct {
	origin uint64
	data   []byte
}

func (r region) contains(addr uint64, length uint64) bool {
	return addr >= r.origin && addr+length <= r.origin+uint64(len(r.data))
}

// Memory is the machine's physical address space. Byte values are stored in
// the target's natural ordering, which for the K32 is little-endian.
type Memory struct {
	regions []region
}

// NewMemory is the preferred method of initialisation for the Memory type.
func NewMemory() *Memory {
	return &Memory{
		regions: make([]region, 0, 2),
	}
}

// AddRegion adds a block of RAM to the address space.
func (m *Memory) AddRegion(origin uint64, size uint64) error {
	for _, r := range m.regions {
		if origin < r.origin+uint64(len(r.data)) && r.origin < origin+size {
			return curated.Errorf(Overlap)
		}
	}

	m.regions = append(m.regions, region{
		origin: origin,
		data:   make([]byte, size),
	})

	return nil
}

// Mapped returns true if the entire range [addr, addr+length) is backed by
// a single region. A zero length range is mapped if the address itself is.
func (m *Memory) Mapped(addr uint64, length uint64) bool {
	if length == 0 {
		length = 1
	}
	for _, r := range m.regions {
		if r.contains(addr, length) {
			return true
		}
	}
	return false
}

// Read fills data from the address space. The read is all-or-nothing: if
// any byte of the range is unmapped no bytes are returned.
func (m *Memory) Read(addr uint64, data []byte) error {
	for _, r := range m.regions {
		if r.contains(addr, uint64(len(data))) {
			copy(data, r.data[addr-r.origin:])
			return nil
		}
	}
	return curated.Errorf(NotMapped)
}

// Write stores data into the address space. The write is all-or-nothing: if
// any byte of the range is unmapped the memory is left unchanged.
func (m *Memory) Write(addr uint64, data []byte) error {
	for _, r := range m.regions {
		if r.contains(addr, uint64(len(data))) {
			copy(r.data[addr-r.origin:], data)
			return nil
		}
	}
	return curated.Errorf(NotMapped)
}

// ReadWord reads a little-endian 32-bit value.
func (m *Memory) ReadWord(addr uint64) (uint32, error) {
	var b [4]byte
	if err := m.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// WriteWord writes a little-endian 32-bit value.
func (m *Memory) WriteWord(addr uint64, val uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], val)
	return m.Write(addr, b[:])
}
