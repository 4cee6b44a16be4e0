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

//go:build !statsview
// +build !statsview

package statsview

import (
	"io"
)

// DefaultAddress is empty in builds without the statsview constraint:
// there is no server to address.
const DefaultAddress = ""

// Launch is a no-op when the project is built without the statsview build
// constraint.
func Launch(output io.Writer, _ string) {
	output.Write([]byte("statsview not included in this build\n"))
}

// Available returns true if a statsview is available to launch.
func Available() bool {
	return false
}
