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

package cpu_test

import (
	"testing"

	"github.com/kestrelsim/kestrel/eventq"
	"github.com/kestrelsim/kestrel/hardware/cpu"
	"github.com/kestrelsim/kestrel/hardware/memory"
	"github.com/kestrelsim/kestrel/test"
)

func newCore(t *testing.T) (*eventq.Queue, *memory.Memory, *cpu.Core) {
	t.Helper()
	q := eventq.NewQueue()
	mem := memory.NewMemory()
	test.ExpectedSuccess(t, mem.AddRegion(0x0000, 0x10000))
	return q, mem, cpu.NewCore(q, mem)
}

func load(t *testing.T, mem *memory.Memory, origin uint64, words ...uint32) {
	t.Helper()
	for i, w := range words {
		test.ExpectedSuccess(t, mem.WriteWord(origin+uint64(i*4), w))
	}
}

func TestProgram(t *testing.T) {
	q, mem, core := newCore(t)

	load(t, mem, 0x0000,
		cpu.Movi(1, 20),
		cpu.Movi(2, 22),
		cpu.Add(3, 1, 2),
		cpu.Stw(3, 0, 0x80),
		cpu.Halt(),
	)

	core.Reset(0x0000)
	core.Start()
	for q.Service() {
	}

	test.ExpectedSuccess(t, core.Halted())
	test.Equate(t, core.Regs[3], uint32(42))

	v, err := mem.ReadWord(0x80)
	test.ExpectedSuccess(t, err)
	test.Equate(t, v, uint32(42))
}

func TestPCEvent(t *testing.T) {
	q, mem, core := newCore(t)

	load(t, mem, 0x0000,
		cpu.Nop(),
		cpu.Nop(),
		cpu.Halt(),
	)

	hits := 0
	test.ExpectedSuccess(t, core.SchedulePCEvent(0x0004, func() {
		hits++
		core.Stop()
	}))

	core.Reset(0x0000)
	core.Start()
	for q.Service() {
	}

	// hook fired at fetch. the instruction at the hook address has not
	// executed
	test.Equate(t, hits, 1)
	test.Equate(t, core.PC(), uint64(0x0004))
	test.ExpectedFailure(t, core.Halted())

	// resuming steps over the hook address without re-firing
	core.Start()
	for q.Service() {
	}
	test.Equate(t, hits, 1)
	test.ExpectedSuccess(t, core.Halted())
}

func TestRemovePCEvent(t *testing.T) {
	_, _, core := newCore(t)

	test.ExpectedSuccess(t, core.SchedulePCEvent(0x0004, func() {}))
	test.ExpectedSuccess(t, core.RemovePCEvent(0x0004))
	test.ExpectedFailure(t, core.RemovePCEvent(0x0004))
}

func TestInstCommit(t *testing.T) {
	q, mem, core := newCore(t)

	load(t, mem, 0x0000,
		cpu.Nop(),
		cpu.Nop(),
		cpu.Nop(),
		cpu.Halt(),
	)

	var pcAtCommit uint64
	core.ScheduleInstCommit(1, func() {
		pcAtCommit = core.PC()
		core.Stop()
	})

	core.Reset(0x0000)
	core.Start()
	for q.Service() {
	}

	// exactly one instruction committed before the event fired
	test.Equate(t, pcAtCommit, uint64(0x0004))
	test.ExpectedFailure(t, core.Halted())
}
