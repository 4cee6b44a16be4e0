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

package hardware

import (
	"github.com/kestrelsim/kestrel/curated"
	"github.com/kestrelsim/kestrel/eventq"
	"github.com/kestrelsim/kestrel/hardware/cpu"
	"github.com/kestrelsim/kestrel/hardware/memory"
)

// error patterns for the hardware package.
const (
	ProgramTooLarge = "machine: program does not fit in memory: %v"
)

// RAMOrigin and RAMSize describe the machine's single block of RAM.
const (
	RAMOrigin = 0x00000000
	RAMSize   = 0x00080000
)

// Machine is the reference K32 system: one core, a flat block of RAM and
// the event queue that drives them.
type Machine struct {
	Events *eventq.Queue
	Mem    *memory.Memory
	Core   *cpu.Core
}

// NewMachine is the preferred method of initialisation for the Machine
// type.
func NewMachine() (*Machine, error) {
	m := &Machine{
		Events: eventq.NewQueue(),
		Mem:    memory.NewMemory(),
	}

	if err := m.Mem.AddRegion(RAMOrigin, RAMSize); err != nil {
		return nil, err
	}

	m.Core = cpu.NewCore(m.Events, m.Mem)
	m.Core.Reset(RAMOrigin)

	return m, nil
}

// LoadProgram copies a program image into RAM and resets the core to its
// origin.
func (m *Machine) LoadProgram(data []byte, origin uint32) error {
	if err := m.Mem.Write(uint64(origin), data); err != nil {
		return curated.Errorf(ProgramTooLarge, err)
	}
	m.Core.Reset(origin)
	return nil
}

// Run the machine until the event queue drains. If block is true the run
// loop does not end when the queue drains; instead it sleeps until an
// event arrives from elsewhere (a remote debugger connection for example).
func (m *Machine) Run(block bool) {
	m.Core.Start()

	for {
		if !m.Events.Service() {
			if !block {
				return
			}
			m.Events.Wait()
		}
	}
}

// Halt the core. Part of the remote debugger's view of the machine.
func (m *Machine) Halt() {
	m.Core.Stop()
}

// Resume the core. Part of the remote debugger's view of the machine.
func (m *Machine) Resume() {
	m.Core.Start()
}

// Post a function to run on the simulation goroutine at the current tick.
// Part of the remote debugger's view of the machine. Safe to call from any
// goroutine.
func (m *Machine) Post(fn func()) {
	m.Events.Post(fn)
}
