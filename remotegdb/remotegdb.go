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
	"io"
	"net"
	"os"

	"github.com/kestrelsim/kestrel/curated"
	"github.com/kestrelsim/kestrel/logger"
)

// error patterns for the remotegdb package.
const (
	PeerClosed  = "gdb: remote connection closed"
	BadRequest  = "gdb: bad request"
	AccessFault = "gdb: memory access fault"
	ListenError = "gdb: %v"
)

// the largest packet payload the session will accept, as advertised to the
// client in the qSupported reply.
const packetSize = 0x1000

// signal numbers used in stop replies.
const (
	SigInt  = 2
	SigTrap = 5
)

// Session is one remote debugging endpoint: a listening port, at most one
// connected client and the debug state for the thread contexts registered
// with it.
//
// All methods except trap() and the token plumbing must be called on the
// simulation goroutine.
type Session struct {
	sim  Sim
	arch Arch
	port int

	listener net.Listener
	conn     net.Conn
	codec    *codec

	// where the listen announcement is printed. defaults to os.Stdout
	announce io.Writer

	// attached is true while a client connection is open. active is true
	// while the target is under the client's control, which is to say the
	// simulation was halted on entry to the packet loop. active is the
	// interlock between the debugger and the simulation: while it is set
	// the simulation is not stepping
	attached bool
	active   bool

	// set when the client switches threads so that the next stop reply
	// makes the new thread visible
	threadSwitching bool

	threads []threadEntry
	tc      ThreadContext
	curID   ContextID
	regs    RegCache

	softBreaks map[breakKey]*softBreakpoint
	hardBreaks map[breakKey]*hardBreakpoint

	lastSignal    int
	threadInfoIdx int

	// a trap has been posted to the event queue but not yet processed.
	// the trap event is single use
	trapPending bool

	// a single step event is armed on the current thread context
	stepPending bool

	// tokens put aside while waiting for something else (an ack during
	// send, a halt during run). consumed before the channel is read again
	pending []token
}

// NewSession is the preferred method of initialisation for the Session
// type.
func NewSession(sim Sim, arch Arch, port int) *Session {
	return &Session{
		sim:        sim,
		arch:       arch,
		port:       port,
		announce:   os.Stdout,
		lastSignal: SigTrap,
		softBreaks: make(map[breakKey]*softBreakpoint),
		hardBreaks: make(map[breakKey]*hardBreakpoint),
	}
}

// Listen binds the session's TCP port and begins accepting connections.
// Incoming connections are handed to the simulation goroutine through the
// event queue.
func (s *Session) Listen() error {
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", s.port))
	if err != nil {
		return curated.Errorf(ListenError, err)
	}
	s.listener = l
	s.port = l.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(s.announce, "Listening for remote gdb connection on port %d\n", s.port)

	go s.accept()

	return nil
}

// Port returns the port the session is listening on. Useful when the
// session was created with port zero.
func (s *Session) Port() int {
	return s.port
}

// Stop listening. Any connected client is left to the codec, which will
// notice the closed connection when the process (or the test) drops it.
func (s *Session) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
}

// accept runs on its own goroutine for the lifetime of the listener.
func (s *Session) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.sim.Post(func() { s.connect(conn) })
	}
}

// connect attaches a new client. Runs on the simulation goroutine.
func (s *Session) connect(conn net.Conn) {
	if s.attached {
		// one client at a time
		logger.Logf(logger.Allow, "gdb", "rejecting connection from %v", conn.RemoteAddr())
		conn.Close()
		return
	}

	if s.tc == nil {
		logger.Log(logger.Allow, "gdb", "no thread contexts: rejecting connection")
		conn.Close()
		return
	}

	logger.Logf(logger.Allow, "gdb", "client connected from %v", conn.RemoteAddr())

	s.conn = conn
	s.codec = newCodec(conn, func() { s.sim.Post(s.poke) })
	s.attached = true
	s.threadSwitching = false
	s.lastSignal = SigTrap

	// the client has control of the target from the moment it connects
	s.sim.Halt()
	s.active = true

	s.serve()
}

// serve is the packet loop. It runs on the simulation goroutine with the
// simulation halted and returns when a handler resumes the simulation or
// the session detaches.
func (s *Session) serve() {
	for {
		tok := s.nextToken()

		switch tok.kind {
		case tokClosed:
			s.detach()
			return

		case tokInterrupt:
			// the target is already halted. report where we are
			s.lastSignal = SigInt
			if err := s.send(s.stopReplyThread()); err != nil {
				s.detach()
				return
			}

		case tokAck, tokNack:
			// stray acknowledgements between commands are uninteresting

		case tokPacket:
			cont, err := s.dispatch(tok.payload)
			if err != nil {
				if curated.Has(err, PeerClosed) {
					s.detach()
					return
				}
				logger.Logf(logger.Allow, "gdb", "dispatch: %v", err)
			}
			if !cont {
				return
			}
		}
	}
}

// dispatch routes one packet to its command handler. Unknown commands
// reply with the empty packet.
func (s *Session) dispatch(payload []byte) (bool, error) {
	if len(payload) == 0 {
		return true, s.send("")
	}

	f, ok := commands[payload[0]]
	if !ok {
		logger.Logf(logger.Allow, "gdb", "unsupported command %c", payload[0])
		return true, s.send("")
	}

	return f(s, payload[1:])
}

// poke drains whatever tokens are available without blocking. It is posted
// to the event queue by the codec on every token arrival and is how the
// session notices interrupts and disconnections while the simulation is
// running.
func (s *Session) poke() {
	if !s.attached || s.active {
		// the packet loop is reading tokens itself
		return
	}

	for {
		select {
		case tok := <-s.codec.tokens:
			switch tok.kind {
			case tokInterrupt:
				s.trap(s.curID, SigInt)
				return

			case tokClosed:
				s.detach()
				return

			case tokPacket:
				// held for the packet loop. the client does not normally
				// send commands while the target runs but a buggy one
				// should not wedge the session
				s.pending = append(s.pending, tok)
			}

		default:
			return
		}
	}
}

// nextToken returns the next token for the packet loop, consuming put
// aside tokens first and then blocking on the codec.
func (s *Session) nextToken() token {
	if len(s.pending) > 0 {
		tok := s.pending[0]
		s.pending = s.pending[1:]
		return tok
	}
	return <-s.codec.tokens
}

// send transmits a reply packet and, when acknowledgements are in use,
// retransmits it until the client accepts it.
func (s *Session) send(payload string) error {
	pkt := encodePacket([]byte(payload))

	for {
		if _, err := s.conn.Write(pkt); err != nil {
			return curated.Errorf(PeerClosed)
		}

		if !s.codec.acking() {
			return nil
		}

		// wait for the acknowledgement, putting aside anything else that
		// arrives in the meantime
		retransmit := false
		for !retransmit {
			tok := <-s.codec.tokens
			switch tok.kind {
			case tokAck:
				return nil
			case tokNack:
				retransmit = true
			case tokClosed:
				return curated.Errorf(PeerClosed)
			default:
				s.pending = append(s.pending, tok)
			}
		}
	}
}

// stopReplySignal is the plain S form of the stop reply, used for the '?'
// query.
func (s *Session) stopReplySignal() string {
	return fmt.Sprintf("S%02x", s.lastSignal)
}

// stopReplyThread is the T form of the stop reply, carrying the thread
// that stopped. Thread IDs are one-based on the wire.
func (s *Session) stopReplyThread() string {
	return fmt.Sprintf("T%02xthread:%x;", s.lastSignal, int(s.curID)+1)
}

// resumeExecution returns control of the target to the simulation, arming
// a single instruction step if requested. The caller (a command handler)
// must exit the packet loop.
func (s *Session) resumeExecution(step bool) {
	s.clearSingleStep()

	if step {
		id := s.curID
		s.tc.ScheduleInstCommit(1, func() { s.trap(id, SigTrap) })
		s.stepPending = true
	}

	s.active = false
	s.sim.Resume()
}

func (s *Session) clearSingleStep() {
	if s.stepPending {
		s.tc.DescheduleInstCommit()
		s.stepPending = false
	}
}

// trap requests delivery of a stop to the client. It is safe to call from
// instruction hooks and other simulator callbacks: delivery happens
// through a single use event posted at the current tick, so the stop reply
// is ordered with respect to every other simulator event.
func (s *Session) trap(id ContextID, signum int) {
	if !s.attached || s.trapPending {
		return
	}

	s.trapPending = true
	s.sim.Post(func() {
		s.trapPending = false
		s.processTrap(id, signum)
	})
}

// processTrap halts the simulation, reports the stop to the client and
// re-enters the packet loop. Runs on the simulation goroutine via the trap
// event.
func (s *Session) processTrap(id ContextID, signum int) {
	if !s.attached || s.active {
		return
	}

	s.sim.Halt()
	s.active = true
	s.clearSingleStep()
	s.lastSignal = signum

	if id != s.curID {
		s.selectThreadContext(id)
	}
	s.threadSwitching = false

	if err := s.send(s.stopReplyThread()); err != nil {
		s.detach()
		return
	}

	s.serve()
}

// detach tears the connection down and returns the session to listening.
// The simulation is resumed and runs free; breakpoints and any armed
// single step are removed first.
func (s *Session) detach() {
	if !s.attached {
		return
	}

	s.clearBreaks()
	s.clearSingleStep()
	s.regs = nil
	s.pending = nil
	s.threadSwitching = false
	s.trapPending = false

	s.conn.Close()
	s.conn = nil
	s.codec = nil
	s.attached = false
	s.active = false

	logger.Log(logger.Allow, "gdb", "client detached")

	s.sim.Resume()
}

// regCache returns the session's register cache, building it if the
// current thread context has changed since it was last used.
func (s *Session) regCache() RegCache {
	if s.regs == nil {
		s.regs = s.arch.RegCache(s.tc)
		logger.Logf(logger.Allow, "gdb", "using register cache %s", s.regs.Name())
	}
	return s.regs
}

// readMem reads a block of simulated memory on behalf of the client. The
// read is all-or-nothing: the entire range must pass the architecture's
// access check.
func (s *Session) readMem(addr uint64, n uint64) ([]byte, error) {
	if !s.arch.Access(addr, n) {
		return nil, curated.Errorf(AccessFault)
	}

	p := make([]byte, n)
	if err := s.tc.ReadMem(addr, p); err != nil {
		return nil, curated.Errorf(AccessFault)
	}

	return p, nil
}

// writeMem writes a block of simulated memory on behalf of the client.
// All-or-nothing in the same way as readMem.
func (s *Session) writeMem(addr uint64, p []byte) error {
	if !s.arch.Access(addr, uint64(len(p))) {
		return curated.Errorf(AccessFault)
	}

	if err := s.tc.WriteMem(addr, p); err != nil {
		return curated.Errorf(AccessFault)
	}

	return nil
}
