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

package modalflag_test

import (
	"testing"

	"github.com/kestrelsim/kestrel/modalflag"
	"github.com/kestrelsim/kestrel/test"
)

func TestDefaultSubMode(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{})
	md.AddSubModes("RUN", "PROBE", "VERSION")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(r), int(modalflag.ParseContinue))
	test.Equate(t, md.Mode(), "RUN")
}

func TestNamedSubMode(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{"probe", "-addr", "localhost:7000"})
	md.AddSubModes("RUN", "PROBE")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(r), int(modalflag.ParseContinue))
	test.Equate(t, md.Mode(), "PROBE")

	// the flags for the PROBE mode have not been parsed yet
	md.NewMode()
	addr := md.AddString("addr", "", "address of stub")
	r, err = md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(r), int(modalflag.ParseContinue))
	test.Equate(t, *addr, "localhost:7000")
}

func TestFlagsAndArgs(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{"-gdb", "7000", "program.bin"})
	gdb := md.AddInt("gdb", 0, "remote gdb port")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(r), int(modalflag.ParseContinue))
	test.Equate(t, *gdb, 7000)
	test.Equate(t, md.GetArg(0), "program.bin")
}
