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

// Package eventq implements the event queue at the heart of the simulation.
// Everything that happens in the simulated machine happens inside an event
// fired from the queue: CPU ticks, single-step completion, the remote
// debugger's trap delivery.
//
// Scheduling is safe from any goroutine but events only ever fire on the
// goroutine that calls Service(). That goroutine is the simulation thread
// and all simulator state is owned by it.
package eventq
