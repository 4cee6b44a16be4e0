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

package version

import (
	"runtime/debug"
)

// The name to use when referring to the application.
const ApplicationName = "Kestrel"

// if number is empty then the project was probably not built using the
// makefile.
var number string

// Version contains the current version number of the project.
//
// If the version string is "unreleased" then it means that the project has
// been built from an uncommitted source tree.
var Version string

func init() {
	if number != "" {
		Version = number
		return
	}

	Version = "unreleased"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
}
