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
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kestrelsim/kestrel/logger"
)

// cmdFunc handles one command packet. data is the payload with the command
// byte removed. The returned bool is true if the packet loop should keep
// reading packets; false means the handler has resumed the simulation (or
// torn the session down) and the packet loop must exit.
type cmdFunc func(s *Session, data []byte) (bool, error)

// commands is keyed by the first byte of the packet payload. populated by
// init() rather than a literal to keep the handler functions free to refer
// to the table.
var commands map[byte]cmdFunc

func init() {
	commands = map[byte]cmdFunc{
		'?': cmdSignal,
		'c': cmdCont,
		's': cmdStep,
		'D': cmdDetach,
		'k': cmdKill,
		'g': cmdRegR,
		'G': cmdRegW,
		'p': cmdRegRSingle,
		'P': cmdRegWSingle,
		'm': cmdMemR,
		'M': cmdMemW,
		'X': cmdMemX,
		'H': cmdSetThread,
		'T': cmdThreadAlive,
		'q': cmdQuery,
		'Q': cmdQuery,
		'v': cmdMulti,
		'z': cmdClearBreak,
		'Z': cmdSetBreak,
	}
}

// cmdSignal reports the signal that last stopped the target.
func cmdSignal(s *Session, _ []byte) (bool, error) {
	// a thread switch made while the target is halted is reported here,
	// ahead of any resume
	if s.threadSwitching {
		return true, s.send(s.stopReplyThread())
	}
	return true, s.send(s.stopReplySignal())
}

// cmdCont resumes the target, optionally at a new address.
func cmdCont(s *Session, data []byte) (bool, error) {
	if len(data) > 0 {
		addr, err := strconv.ParseUint(string(data), 16, 64)
		if err != nil {
			return true, s.send("E01")
		}
		s.tc.SetPC(addr)
	}

	s.resumeExecution(false)
	return false, nil
}

// cmdStep executes a single instruction, optionally from a new address.
func cmdStep(s *Session, data []byte) (bool, error) {
	if len(data) > 0 {
		addr, err := strconv.ParseUint(string(data), 16, 64)
		if err != nil {
			return true, s.send("E01")
		}
		s.tc.SetPC(addr)
	}

	s.resumeExecution(true)
	return false, nil
}

// cmdDetach releases the target. The simulation continues free.
func cmdDetach(s *Session, _ []byte) (bool, error) {
	err := s.send("OK")
	s.detach()
	return false, err
}

// cmdKill is treated as a detach. The simulation is not killed; there is
// no sensible way to restart it from the protocol and the client is most
// likely just quitting.
func cmdKill(s *Session, _ []byte) (bool, error) {
	s.detach()
	return false, nil
}

// cmdRegR reads the entire register file.
func cmdRegR(s *Session, _ []byte) (bool, error) {
	rc := s.regCache()
	rc.GetRegs(s.tc)
	return true, s.send(hex.EncodeToString(rc.Data()))
}

// cmdRegW writes the entire register file.
func cmdRegW(s *Session, data []byte) (bool, error) {
	rc := s.regCache()

	if len(data) != rc.Size()*2 {
		return true, s.send("E01")
	}
	if _, err := hex.Decode(rc.Data(), data); err != nil {
		return true, s.send("E01")
	}

	rc.SetRegs(s.tc)
	return true, s.send("OK")
}

// cmdRegRSingle reads one register, if the register cache supports
// locating single registers.
func cmdRegRSingle(s *Session, data []byte) (bool, error) {
	rc := s.regCache()
	slicer, ok := rc.(RegSlicer)
	if !ok {
		return true, s.send("")
	}

	n, err := strconv.ParseUint(string(data), 16, 32)
	if err != nil {
		return true, s.send("E01")
	}

	offset, size, ok := slicer.RegSlice(int(n))
	if !ok {
		return true, s.send("E01")
	}

	rc.GetRegs(s.tc)
	return true, s.send(hex.EncodeToString(rc.Data()[offset : offset+size]))
}

// cmdRegWSingle writes one register.
func cmdRegWSingle(s *Session, data []byte) (bool, error) {
	rc := s.regCache()
	slicer, ok := rc.(RegSlicer)
	if !ok {
		return true, s.send("")
	}

	eq := bytes.IndexByte(data, '=')
	if eq < 0 {
		return true, s.send("E01")
	}

	n, err := strconv.ParseUint(string(data[:eq]), 16, 32)
	if err != nil {
		return true, s.send("E01")
	}

	offset, size, ok := slicer.RegSlice(int(n))
	if !ok {
		return true, s.send("E01")
	}

	val, err := hex.DecodeString(string(data[eq+1:]))
	if err != nil || len(val) != size {
		return true, s.send("E01")
	}

	rc.GetRegs(s.tc)
	copy(rc.Data()[offset:], val)
	rc.SetRegs(s.tc)

	return true, s.send("OK")
}

// cmdMemR reads a block of memory: m<addr>,<length>
func cmdMemR(s *Session, data []byte) (bool, error) {
	addr, n, ok := parseAddrLen(string(data))
	if !ok {
		return true, s.send("E01")
	}

	p, err := s.readMem(addr, n)
	if err != nil {
		return true, s.send("E01")
	}

	return true, s.send(hex.EncodeToString(p))
}

// cmdMemW writes a block of memory: M<addr>,<length>:<hex data>
func cmdMemW(s *Session, data []byte) (bool, error) {
	body := string(data)
	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		return true, s.send("E01")
	}

	addr, n, ok := parseAddrLen(body[:colon])
	if !ok {
		return true, s.send("E01")
	}

	p, err := hex.DecodeString(body[colon+1:])
	if err != nil || uint64(len(p)) != n {
		return true, s.send("E01")
	}

	if err := s.writeMem(addr, p); err != nil {
		return true, s.send("E01")
	}

	return true, s.send("OK")
}

// cmdMemX writes a block of memory with binary payload: X<addr>,<length>:<bin>
//
// The '}' escapes in the binary payload have already been resolved by the
// codec.
func cmdMemX(s *Session, data []byte) (bool, error) {
	colon := bytes.IndexByte(data, ':')
	if colon < 0 {
		return true, s.send("E01")
	}

	addr, n, ok := parseAddrLen(string(data[:colon]))
	if !ok {
		return true, s.send("E01")
	}

	p := data[colon+1:]
	if uint64(len(p)) != n {
		return true, s.send("E01")
	}

	// a zero length write is the client probing for X support
	if n == 0 {
		return true, s.send("OK")
	}

	if err := s.writeMem(addr, p); err != nil {
		return true, s.send("E01")
	}

	return true, s.send("OK")
}

// cmdSetThread selects the current thread: H<op><tid>
func cmdSetThread(s *Session, data []byte) (bool, error) {
	if len(data) < 2 {
		return true, s.send("E01")
	}

	// the operation byte ('c' for step/continue operations, 'g' for
	// everything else) does not matter here: there is one notion of
	// current thread
	tid, err := strconv.ParseInt(string(data[1:]), 16, 32)
	if err != nil {
		return true, s.send("E01")
	}

	// zero means "any thread" and -1 means "all threads". both leave the
	// current selection alone
	if tid <= 0 {
		return true, s.send("OK")
	}

	id := ContextID(tid - 1)
	if id != s.curID {
		if !s.selectThreadContext(id) {
			return true, s.send("E01")
		}

		// the next stop reply must make the switch visible to the client
		s.threadSwitching = true
	}

	return true, s.send("OK")
}

// cmdThreadAlive reports whether a thread is still live: T<tid>
func cmdThreadAlive(s *Session, data []byte) (bool, error) {
	tid, err := strconv.ParseInt(string(data), 16, 32)
	if err != nil || tid < 1 {
		return true, s.send("E01")
	}

	if s.findThread(ContextID(tid-1)) == nil {
		return true, s.send("E01")
	}

	return true, s.send("OK")
}

// cmdQuery routes q and Q packets through the query table.
func cmdQuery(s *Session, data []byte) (bool, error) {
	name := string(data)
	args := ""
	if idx := strings.IndexAny(name, ":,;"); idx >= 0 {
		name = name[:idx]
		args = string(data[idx+1:])
	}

	f, ok := queries[name]
	if !ok {
		logger.Logf(logger.Allow, "gdb", "unsupported query %s", name)
		return true, s.send("")
	}

	return true, f(s, args)
}

// cmdMulti handles the v family of packets. Only vCont and its probe are
// meaningful here.
func cmdMulti(s *Session, data []byte) (bool, error) {
	body := string(data)

	switch {
	case body == "Cont?":
		return true, s.send("vCont;c;s")

	case strings.HasPrefix(body, "Cont;"):
		// the first action is the one that matters in an all-stop, single
		// process world. a thread suffix (":<tid>") is accepted and
		// ignored
		action := body[len("Cont;"):]
		if idx := strings.IndexAny(action, ";:"); idx >= 0 {
			action = action[:idx]
		}

		switch action {
		case "c":
			s.resumeExecution(false)
			return false, nil
		case "s":
			s.resumeExecution(true)
			return false, nil
		}

		return true, s.send("E01")

	case body == "MustReplyEmpty":
		return true, s.send("")
	}

	return true, s.send("")
}

// cmdSetBreak inserts a breakpoint: Z<type>,<addr>,<kind>
func cmdSetBreak(s *Session, data []byte) (bool, error) {
	btype, addr, length, ok := parseBreak(string(data))
	if !ok {
		return true, s.send("E01")
	}

	switch btype {
	case 0:
		if err := s.insertSoftBreak(addr, length); err != nil {
			return true, s.send("E01")
		}
	case 1:
		if err := s.insertHardBreak(addr, length); err != nil {
			return true, s.send("E01")
		}
	default:
		// watchpoints are not supported
		return true, s.send("")
	}

	return true, s.send("OK")
}

// cmdClearBreak removes a breakpoint: z<type>,<addr>,<kind>
func cmdClearBreak(s *Session, data []byte) (bool, error) {
	btype, addr, length, ok := parseBreak(string(data))
	if !ok {
		return true, s.send("E01")
	}

	switch btype {
	case 0:
		if err := s.removeSoftBreak(addr, length); err != nil {
			return true, s.send("E01")
		}
	case 1:
		if err := s.removeHardBreak(addr, length); err != nil {
			return true, s.send("E01")
		}
	default:
		return true, s.send("")
	}

	return true, s.send("OK")
}

// parseAddrLen splits "<addr>,<length>" with both fields in hex.
func parseAddrLen(body string) (uint64, uint64, bool) {
	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		return 0, 0, false
	}

	addr, err1 := strconv.ParseUint(body[:comma], 16, 64)
	n, err2 := strconv.ParseUint(body[comma+1:], 16, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}

	return addr, n, true
}

// parseBreak splits "<type>,<addr>,<kind>" for the z/Z commands.
func parseBreak(body string) (int, uint64, uint64, bool) {
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	btype, err1 := strconv.Atoi(parts[0])
	addr, err2 := strconv.ParseUint(parts[1], 16, 64)
	length, err3 := strconv.ParseUint(parts[2], 16, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}

	return btype, addr, length, true
}
