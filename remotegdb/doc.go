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

// Package remotegdb implements the target side of the GDB remote serial
// protocol, allowing an external GDB to attach to the simulated machine
// over TCP. The protocol is described in the official documentation:
//
//	https://sourceware.org/gdb/current/onlinedocs/gdb/Remote-Protocol.html
//
// A Session is created with a view of the simulator (the Sim interface)
// and a description of the simulated architecture (the Arch interface).
// Thread contexts are registered with AddThreadContext() and the session
// is started with Listen().
//
// The session runs entirely on the simulation goroutine. While the client
// has the target halted, the session blocks inside the packet loop and the
// event queue does not advance; this is the deliberate interlock between
// the debugger and the simulation. While the target is running, bytes from
// the client (notably the 0x03 interrupt byte) are noticed through events
// posted by the framing goroutine.
//
// Stops are delivered through the trap mechanism: a breakpoint hook or
// single-step completion calls trap(), which posts an event at the current
// tick. The stop reply is therefore issued at a well defined point in the
// simulated event stream.
package remotegdb
