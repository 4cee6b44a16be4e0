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

// ContextID identifies a registered thread context within a session. IDs
// are assigned by the session, starting at zero. On the wire thread IDs
// are one-based; the offset is applied at the marshalling boundary and
// nowhere else.
type ContextID int

// ThreadContext is the session's handle to one simulated thread of
// execution: its program counter, its view of memory and its instruction
// hooks. The reference implementation is the cpu.Core type.
//
// Register file access is not part of this interface. Register layout is
// architecture specific and is handled by the RegCache supplied by the
// Arch implementation, which knows the concrete type behind the
// ThreadContext.
type ThreadContext interface {
	PC() uint64
	SetPC(addr uint64)

	ReadMem(addr uint64, data []byte) error
	WriteMem(addr uint64, data []byte) error

	// SchedulePCEvent installs a hook that fires when the thread fetches
	// an instruction from addr, before the instruction executes
	SchedulePCEvent(addr uint64, fn func()) error
	RemovePCEvent(addr uint64) error

	// ScheduleInstCommit arranges for fn to be posted to the event queue
	// after delta instructions have committed
	ScheduleInstCommit(delta int, fn func())
	DescheduleInstCommit()
}

// Sim is the session's view of the simulator as a whole: run control and
// the event queue re-entry primitive. The reference implementation is the
// hardware.Machine type.
type Sim interface {
	// Halt and Resume the simulation. both must be idempotent
	Halt()
	Resume()

	// Post a function to run on the simulation goroutine at the current
	// tick. must be safe to call from any goroutine
	Post(fn func())
}

// Arch describes the simulated architecture to the session: how registers
// are marshalled on the wire, which memory is accessible and what the
// target description looks like. One implementation per architecture.
type Arch interface {
	// RegCache returns a fresh register cache for the thread context
	RegCache(tc ThreadContext) RegCache

	// Access returns true if the address range is valid for the client to
	// read or write
	Access(addr uint64, length uint64) bool

	// AvailableFeatures lists the feature strings advertised in the reply
	// to qSupported, in addition to PacketSize
	AvailableFeatures() []string

	// XferFeaturesRead returns the target description XML for the named
	// annex. The second return value is false if the annex is unknown
	XferFeaturesRead(annex string) (string, bool)

	// CheckBpLen returns true if length is a valid breakpoint kind for
	// this architecture
	CheckBpLen(length uint64) bool
}

// RegCache marshals a thread context's registers into the flat byte buffer
// used by the g and G packets. Each byte of the buffer is encoded as two
// hex digits on the wire.
type RegCache interface {
	// Data returns the raw buffer. the slice is owned by the cache and is
	// valid until the next call to GetRegs
	Data() []byte

	// Size of the raw buffer in bytes
	Size() int

	// GetRegs fills the buffer from the thread context
	GetRegs(tc ThreadContext)

	// SetRegs writes the buffer back into the thread context
	SetRegs(tc ThreadContext)

	// Name of the cache for log messages. a session rebuilds its cache
	// when the current thread context changes
	Name() string
}

// RegSlicer is an optional interface for RegCache implementations that can
// locate single registers within the buffer, enabling the p and P packets.
type RegSlicer interface {
	// RegSlice returns the offset and size of register n within the
	// buffer. ok is false if n is out of range
	RegSlice(n int) (offset int, size int, ok bool)
}
