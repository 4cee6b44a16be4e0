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

//go:build statsview
// +build statsview

package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/kestrelsim/kestrel/logger"
)

// DefaultAddress is the listen address used when the caller does not name
// one.
const DefaultAddress = "localhost:12900"

const page = "/debug/statsview"

// collector sampling interval in milliseconds. the stock two second
// interval is too coarse to show the load dropping when a debugger halts
// the machine and picking up again on resume.
const sampleInterval = 500

// Launch the statistics viewer on its own goroutine. The viewer serves
// runtime charts (and the standard pprof endpoints) at addr for as long as
// the process lives; there is no way to stop it short of exiting.
func Launch(output io.Writer, addr string) {
	if addr == "" {
		addr = DefaultAddress
	}

	viewer.SetConfiguration(
		viewer.WithAddr(addr),
		viewer.WithInterval(sampleInterval),
		viewer.WithTimeFormat("15:04:05"),
	)

	go func() {
		statsview.New().Start()
	}()

	logger.Logf(logger.Allow, "statsview", "serving on %s", addr)
	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, page)
}

// Available returns true if a statsview is available to launch.
func Available() bool {
	return true
}
