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

// Package k32 is the remotegdb architecture port for the K32 core: the
// wire layout of the register file, the target description XML and the
// memory access policy.
package k32

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelsim/kestrel/hardware/cpu"
	"github.com/kestrelsim/kestrel/hardware/memory"
	"github.com/kestrelsim/kestrel/remotegdb"
)

// Arch implements remotegdb.Arch for the K32.
type Arch struct {
	mem *memory.Memory
}

// NewArch is the preferred method of initialisation for the Arch type.
func NewArch(mem *memory.Memory) *Arch {
	return &Arch{mem: mem}
}

// RegCache implements the remotegdb.Arch interface.
func (a *Arch) RegCache(_ remotegdb.ThreadContext) remotegdb.RegCache {
	return newRegCache()
}

// Access implements the remotegdb.Arch interface. The K32 has no address
// translation so validity is simply whether the range is backed by RAM.
func (a *Arch) Access(addr uint64, length uint64) bool {
	return a.mem.Mapped(addr, length)
}

// AvailableFeatures implements the remotegdb.Arch interface.
func (a *Arch) AvailableFeatures() []string {
	return []string{
		"qXfer:features:read+",
		"QStartNoAckMode+",
		"swbreak+",
		"hwbreak+",
	}
}

// XferFeaturesRead implements the remotegdb.Arch interface.
func (a *Arch) XferFeaturesRead(annex string) (string, bool) {
	if annex != "target.xml" {
		return "", false
	}
	return targetXML, true
}

// CheckBpLen implements the remotegdb.Arch interface. The only valid
// breakpoint kind is the K32 instruction width.
func (a *Arch) CheckBpLen(length uint64) bool {
	return length == cpu.InstructionSize
}

// the register cache layout: r0-r15, then pc, then psr, each 32 bits and
// little-endian. the layout must agree with the target description below.
const (
	numCacheRegs = cpu.NumRegs + 2
	regWidth     = 4
	pcRegIdx     = cpu.NumRegs
	psrRegIdx    = cpu.NumRegs + 1
)

type regCache struct {
	data []byte
}

func newRegCache() *regCache {
	return &regCache{
		data: make([]byte, numCacheRegs*regWidth),
	}
}

// Data implements the remotegdb.RegCache interface.
func (rc *regCache) Data() []byte {
	return rc.data
}

// Size implements the remotegdb.RegCache interface.
func (rc *regCache) Size() int {
	return len(rc.data)
}

// Name implements the remotegdb.RegCache interface.
func (rc *regCache) Name() string {
	return "k32"
}

// core recovers the concrete CPU behind a thread context. A thread context
// of the wrong type here means the session has been assembled incorrectly
// and the resulting panic is deliberate.
func core(tc remotegdb.ThreadContext) *cpu.Core {
	return tc.(*cpu.Core)
}

// GetRegs implements the remotegdb.RegCache interface.
func (rc *regCache) GetRegs(tc remotegdb.ThreadContext) {
	c := core(tc)
	for i := 0; i < cpu.NumRegs; i++ {
		binary.LittleEndian.PutUint32(rc.data[i*regWidth:], c.Regs[i])
	}
	binary.LittleEndian.PutUint32(rc.data[pcRegIdx*regWidth:], uint32(c.PC()))
	binary.LittleEndian.PutUint32(rc.data[psrRegIdx*regWidth:], c.PSR)
}

// SetRegs implements the remotegdb.RegCache interface.
func (rc *regCache) SetRegs(tc remotegdb.ThreadContext) {
	c := core(tc)
	for i := 0; i < cpu.NumRegs; i++ {
		c.Regs[i] = binary.LittleEndian.Uint32(rc.data[i*regWidth:])
	}
	c.SetPC(uint64(binary.LittleEndian.Uint32(rc.data[pcRegIdx*regWidth:])))
	c.PSR = binary.LittleEndian.Uint32(rc.data[psrRegIdx*regWidth:])
}

// RegSlice implements the remotegdb.RegSlicer interface, enabling the p
// and P packets.
func (rc *regCache) RegSlice(n int) (int, int, bool) {
	if n < 0 || n >= numCacheRegs {
		return 0, 0, false
	}
	return n * regWidth, regWidth, true
}

// targetXML is the target description served for the target.xml annex.
var targetXML = func() string {
	s := `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target version="1.0">
<feature name="org.kestrel.k32">
`
	for i := 0; i < cpu.NumRegs; i++ {
		s += fmt.Sprintf("<reg name=\"r%d\" bitsize=\"32\" regnum=\"%d\" type=\"int\" group=\"general\"/>\n", i, i)
	}
	s += fmt.Sprintf("<reg name=\"pc\" bitsize=\"32\" regnum=\"%d\" type=\"code_ptr\" group=\"general\"/>\n", pcRegIdx)
	s += fmt.Sprintf("<reg name=\"psr\" bitsize=\"32\" regnum=\"%d\" type=\"int\" group=\"general\"/>\n", psrRegIdx)
	s += `</feature>
</target>
`
	return s
}()
