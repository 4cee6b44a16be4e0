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

// Package statsview serves live runtime statistics for a running machine.
// It is fully built only when the statsview build constraint is present;
// the default build carries a stub Launch() so callers need no constraint
// of their own.
//
// Underlying functionality provided by "github.com/go-echarts/statsview".
// The sampling interval is shortened from the library default so that the
// effect of a remote debugger halting and resuming the simulation is
// visible in the charts.
//
// After launch, graphical statistics are viewable at
//
//	http://<addr>/debug/statsview
//
// and standard Go pprof statistics at
//
//	http://<addr>/debug/pprof/
//
// where <addr> is the address given to Launch() (DefaultAddress if empty,
// or the run mode's -statsaddr flag).
package statsview
