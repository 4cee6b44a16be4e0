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

// mock implementations of the session's contracts, for tests that drive
// session internals without a machine or a socket.

type mockSim struct {
	halted  bool
	resumes int
	posted  []func()
}

func (m *mockSim) Halt()          { m.halted = true }
func (m *mockSim) Resume()        { m.halted = false; m.resumes++ }
func (m *mockSim) Post(fn func()) { m.posted = append(m.posted, fn) }

// run any posted events, as the event queue would
func (m *mockSim) service() {
	for len(m.posted) > 0 {
		fn := m.posted[0]
		m.posted = m.posted[1:]
		fn()
	}
}

type mockTC struct {
	pc       uint64
	pcEvents map[uint64][]func()

	commitFn    func()
	commitDelta int
}

func newMockTC() *mockTC {
	return &mockTC{pcEvents: make(map[uint64][]func())}
}

func (m *mockTC) PC() uint64        { return m.pc }
func (m *mockTC) SetPC(addr uint64) { m.pc = addr }

func (m *mockTC) ReadMem(addr uint64, data []byte) error  { return nil }
func (m *mockTC) WriteMem(addr uint64, data []byte) error { return nil }

func (m *mockTC) SchedulePCEvent(addr uint64, fn func()) error {
	m.pcEvents[addr] = append(m.pcEvents[addr], fn)
	return nil
}

func (m *mockTC) RemovePCEvent(addr uint64) error {
	hooks := m.pcEvents[addr]
	if len(hooks) == 0 {
		return mockErr
	}
	if len(hooks) == 1 {
		delete(m.pcEvents, addr)
	} else {
		m.pcEvents[addr] = hooks[:len(hooks)-1]
	}
	return nil
}

func (m *mockTC) ScheduleInstCommit(delta int, fn func()) {
	m.commitFn = fn
	m.commitDelta = delta
}

func (m *mockTC) DescheduleInstCommit() {
	m.commitFn = nil
	m.commitDelta = 0
}

type mockError string

func (e mockError) Error() string { return string(e) }

const mockErr = mockError("mock: no hook at address")

type mockArch struct{}

func (a mockArch) RegCache(_ ThreadContext) RegCache { return nil }

func (a mockArch) Access(addr uint64, length uint64) bool { return true }

func (a mockArch) AvailableFeatures() []string {
	return []string{"qXfer:features:read+"}
}

func (a mockArch) XferFeaturesRead(annex string) (string, bool) {
	if annex == "target.xml" {
		return "<target></target>", true
	}
	return "", false
}

func (a mockArch) CheckBpLen(length uint64) bool { return length == 4 }
