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

package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/kestrelsim/kestrel/hardware"
	"github.com/kestrelsim/kestrel/hardware/cpu"
	"github.com/kestrelsim/kestrel/logger"
	"github.com/kestrelsim/kestrel/modalflag"
	"github.com/kestrelsim/kestrel/probe"
	"github.com/kestrelsim/kestrel/remotegdb"
	"github.com/kestrelsim/kestrel/remotegdb/k32"
	"github.com/kestrelsim/kestrel/statsview"
	"github.com/kestrelsim/kestrel/version"
)

// the default port for the remote debugging stub.
const defaultGdbPort = 7000

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.AddSubModes("RUN", "PROBE", "VERSION")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		os.Exit(0)
	case modalflag.ParseError:
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "RUN":
		err = runMode(md)
	case "PROBE":
		err = probeMode(md)
	case "VERSION":
		fmt.Printf("%s %s\n", version.ApplicationName, version.Version)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		os.Exit(10)
	}
}

// runMode builds the reference machine and runs it, with the remote
// debugging stub listening unless it has been disabled.
func runMode(md *modalflag.Modes) error {
	md.NewMode()

	gdbPort := md.AddInt("gdb", defaultGdbPort, "port for remote gdb connections (0 to disable)")
	stats := md.AddBool("statsview", false, "run the statistics viewer")
	statsAddr := md.AddString("statsaddr", statsview.DefaultAddress, "listen address for the statistics viewer")
	echoLog := md.AddBool("log", false, "echo log entries to stderr")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		return nil
	case modalflag.ParseError:
		return err
	}

	if *echoLog {
		logger.SetEcho(os.Stderr, true)
	}

	if *stats {
		statsview.Launch(os.Stdout, *statsAddr)
	}

	m, err := hardware.NewMachine()
	if err != nil {
		return err
	}

	if image := md.GetArg(0); image != "" {
		data, err := os.ReadFile(image)
		if err != nil {
			return err
		}
		if err := m.LoadProgram(data, 0); err != nil {
			return err
		}
	} else {
		// without a program the machine idles in a jump-to-self, waiting
		// for a debugger to give it something to do
		var idle [4]byte
		binary.LittleEndian.PutUint32(idle[:], cpu.Jmp(0))
		if err := m.LoadProgram(idle[:], 0); err != nil {
			return err
		}
	}

	var session *remotegdb.Session
	if *gdbPort != 0 {
		session = remotegdb.NewSession(m, k32.NewArch(m.Mem), *gdbPort)
		if _, err := session.AddThreadContext(m.Core); err != nil {
			return err
		}
		if err := session.Listen(); err != nil {
			return err
		}
		defer session.Stop()
	}

	m.Run(session != nil)

	return nil
}

// probeMode runs the interactive packet probe against a listening stub.
func probeMode(md *modalflag.Modes) error {
	md.NewMode()

	addr := md.AddString("addr", fmt.Sprintf("localhost:%d", defaultGdbPort), "address of the stub")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		return nil
	case modalflag.ParseError:
		return err
	}

	return probe.Run(*addr, os.Stdin, os.Stdout)
}
