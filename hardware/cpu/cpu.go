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

package cpu

import (
	"github.com/kestrelsim/kestrel/curated"
	"github.com/kestrelsim/kestrel/eventq"
	"github.com/kestrelsim/kestrel/logger"
)

// error patterns for the cpu package.
const (
	NoPCEvent = "cpu: no instruction address hook at address"
)

// NumRegs is the number of general purpose registers in the K32 core.
const NumRegs = 16

// InstructionSize is the fixed width of a K32 instruction in bytes.
const InstructionSize = 4

// Bus is the core's window onto the machine's memory.
type Bus interface {
	Read(addr uint64, data []byte) error
	Write(addr uint64, data []byte) error
	ReadWord(addr uint64) (uint32, error)
	WriteWord(addr uint64, val uint32) error
}

// Core is a single K32 thread of execution. The core executes one
// instruction per tick of the event queue, through a self-rescheduling tick
// event.
type Core struct {
	bus Bus
	q   *eventq.Queue

	// architectural state. Regs and PSR are exported for the benefit of the
	// register cache in the remotegdb/k32 package
	Regs [NumRegs]uint32
	PSR  uint32
	pc   uint32

	// halted means the core executed a HALT (or faulted) and will not tick
	// again until Reset()
	halted bool

	// the pending tick event. descheduled by Stop()
	tick *eventq.Event

	// instruction address hooks, fired at fetch before the instruction
	// executes. more than one hook can be installed at the same address
	pcEvents map[uint32][]func()

	// address of the most recent instruction address hook that fired. the
	// hook is suppressed for that address on the first fetch after a
	// resume, otherwise the core could never move past it
	lastHookPC    uint32
	lastHookValid bool

	// countdown to a scheduled instruction commit event
	commitFn        func()
	commitRemaining int
}

// NewCore is the preferred method of initialisation for the Core type.
func NewCore(q *eventq.Queue, bus Bus) *Core {
	return &Core{
		bus:      bus,
		q:        q,
		pcEvents: make(map[uint32][]func()),
	}
}

// Reset the core, setting the program counter to the supplied address.
func (c *Core) Reset(addr uint32) {
	for i := range c.Regs {
		c.Regs[i] = 0
	}
	c.PSR = 0
	c.pc = addr
	c.halted = false
	c.lastHookValid = false
}

// Start ticking. A no-op if the core is already ticking or has halted.
func (c *Core) Start() {
	if c.halted || c.tick.Scheduled() {
		return
	}
	c.tick = c.q.Schedule(1, c.step)
}

// Stop ticking. The architectural state is left as it is; Start() resumes
// from the same point.
func (c *Core) Stop() {
	c.q.Deschedule(c.tick)
}

// Running returns true if the core has a tick event scheduled.
func (c *Core) Running() bool {
	return c.tick.Scheduled()
}

// Halted returns true if the core has executed a HALT instruction.
func (c *Core) Halted() bool {
	return c.halted
}

// step executes a single instruction. It is only ever fired from the event
// queue.
func (c *Core) step() {
	if c.halted {
		return
	}

	// fire instruction address hooks at fetch, before the instruction
	// executes. the hook owner decides whether the machine stops: the next
	// tick is scheduled first so that a Stop() from inside the hook (or
	// from an event the hook posts) lands on a live tick event
	if hooks, ok := c.pcEvents[c.pc]; ok && len(hooks) > 0 {
		if !c.lastHookValid || c.lastHookPC != c.pc {
			c.lastHookPC = c.pc
			c.lastHookValid = true
			c.tick = c.q.Schedule(1, c.step)
			for _, fn := range hooks {
				fn()
			}
			return
		}
	}
	c.lastHookValid = false

	c.execute()

	if !c.halted {
		c.tick = c.q.Schedule(1, c.step)
	}
}

// list of K32 opcodes. the opcode is the top byte of the instruction word.
const (
	opNOP  = 0x00
	opMOVI = 0x01 // rd, imm16
	opADD  = 0x02 // rd, ra, rb
	opSUB  = 0x03 // rd, ra, rb
	opJMP  = 0x04 // word-aligned target in low 24 bits
	opLDW  = 0x05 // rd, ra, imm8
	opSTW  = 0x06 // rd, ra, imm8
	opHALT = 0x07
)

// execute the instruction at the current program counter and commit it.
func (c *Core) execute() {
	word, err := c.bus.ReadWord(uint64(c.pc))
	if err != nil {
		logger.Logf(logger.Allow, "cpu", "fetch fault at %08x: %v", c.pc, err)
		c.halted = true
		return
	}

	op := word >> 24
	rd := (word >> 16) & 0x0f
	ra := (word >> 8) & 0x0f
	rb := word & 0x0f
	imm16 := word & 0xffff
	imm8 := word & 0xff

	switch op {
	case opNOP:
		c.pc += InstructionSize

	case opMOVI:
		c.Regs[rd] = imm16
		c.pc += InstructionSize

	case opADD:
		c.Regs[rd] = c.Regs[ra] + c.Regs[rb]
		c.pc += InstructionSize

	case opSUB:
		c.Regs[rd] = c.Regs[ra] - c.Regs[rb]
		c.pc += InstructionSize

	case opJMP:
		c.pc = (word & 0x00ffffff) << 2

	case opLDW:
		v, err := c.bus.ReadWord(uint64(c.Regs[ra] + imm8))
		if err != nil {
			logger.Logf(logger.Allow, "cpu", "load fault at %08x: %v", c.pc, err)
			c.halted = true
			return
		}
		c.Regs[rd] = v
		c.pc += InstructionSize

	case opSTW:
		if err := c.bus.WriteWord(uint64(c.Regs[ra]+imm8), c.Regs[rd]); err != nil {
			logger.Logf(logger.Allow, "cpu", "store fault at %08x: %v", c.pc, err)
			c.halted = true
			return
		}
		c.pc += InstructionSize

	case opHALT:
		c.halted = true

	default:
		logger.Logf(logger.Allow, "cpu", "illegal instruction %08x at %08x", word, c.pc)
		c.halted = true
	}

	// the instruction has committed
	if c.commitFn != nil {
		c.commitRemaining--
		if c.commitRemaining <= 0 {
			fn := c.commitFn
			c.commitFn = nil
			c.q.Post(fn)
		}
	}
}

// PC returns the current program counter.
func (c *Core) PC() uint64 {
	return uint64(c.pc)
}

// SetPC changes the program counter.
func (c *Core) SetPC(addr uint64) {
	c.pc = uint32(addr)
	c.lastHookValid = false
}

// ReadMem fills data from the core's view of memory.
func (c *Core) ReadMem(addr uint64, data []byte) error {
	return c.bus.Read(addr, data)
}

// WriteMem stores data through the core's view of memory.
func (c *Core) WriteMem(addr uint64, data []byte) error {
	return c.bus.Write(addr, data)
}

// SchedulePCEvent installs an instruction address hook. The hook fires when
// the core fetches an instruction from the given address, before the
// instruction executes.
func (c *Core) SchedulePCEvent(addr uint64, fn func()) error {
	a := uint32(addr)
	c.pcEvents[a] = append(c.pcEvents[a], fn)
	return nil
}

// RemovePCEvent removes one instruction address hook from the given
// address.
func (c *Core) RemovePCEvent(addr uint64) error {
	a := uint32(addr)
	hooks, ok := c.pcEvents[a]
	if !ok || len(hooks) == 0 {
		return curated.Errorf(NoPCEvent)
	}

	if len(hooks) == 1 {
		delete(c.pcEvents, a)
	} else {
		c.pcEvents[a] = hooks[:len(hooks)-1]
	}

	return nil
}

// ScheduleInstCommit arranges for fn to be posted to the event queue after
// delta further instructions have committed. Any previously scheduled
// commit event is replaced.
func (c *Core) ScheduleInstCommit(delta int, fn func()) {
	c.commitFn = fn
	c.commitRemaining = delta
}

// DescheduleInstCommit cancels any pending instruction commit event.
func (c *Core) DescheduleInstCommit() {
	c.commitFn = nil
	c.commitRemaining = 0
}
