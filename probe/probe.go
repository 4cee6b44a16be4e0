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

// Package probe is an interactive client for poking at a running remote
// debugging stub. Type a packet payload and press return: the probe frames
// it, appends the checksum and prints whatever comes back.
//
// The controlling terminal is placed in cbreak mode so that ctrl-c can be
// captured and forwarded to the stub as a raw 0x03 interrupt byte rather
// than killing the probe. Quit with ctrl-d.
package probe

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"

	"github.com/kestrelsim/kestrel/curated"
)

// error patterns for the probe package.
const (
	DialError = "probe: %v"
)

const (
	ctrlC = 0x03
	ctrlD = 0x04
)

// Run connects to the stub at addr and relays packets until ctrl-d or the
// stub closes the connection. Input is read from the supplied terminal
// file, output is written to output.
func Run(addr string, input *os.File, output io.Writer) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return curated.Errorf(DialError, err)
	}
	defer conn.Close()

	fmt.Fprintf(output, "connected to %s\n", addr)

	// prepare the attributes for the terminal modes we'll be using and
	// restore the terminal on the way out
	var canAttr unix.Termios
	var cbreakAttr unix.Termios
	if err := termios.Tcgetattr(input.Fd(), &canAttr); err != nil {
		return curated.Errorf(DialError, err)
	}
	cbreakAttr = canAttr
	termios.Cfmakecbreak(&cbreakAttr)

	if err := termios.Tcsetattr(input.Fd(), termios.TCIFLUSH, &cbreakAttr); err != nil {
		return curated.Errorf(DialError, err)
	}
	defer termios.Tcsetattr(input.Fd(), termios.TCIFLUSH, &canAttr)

	// print everything the stub sends as it arrives
	go func() {
		r := bufio.NewReader(conn)
		for {
			b, err := r.ReadByte()
			if err != nil {
				fmt.Fprintf(output, "\nconnection closed\n")
				return
			}
			fmt.Fprintf(output, "%c", b)
		}
	}()

	line := make([]byte, 0, 64)
	in := bufio.NewReader(input)

	for {
		b, err := in.ReadByte()
		if err != nil {
			return nil
		}

		switch b {
		case ctrlD:
			fmt.Fprintf(output, "\n")
			return nil

		case ctrlC:
			// forward the interrupt to the stub
			if _, err := conn.Write([]byte{ctrlC}); err != nil {
				return curated.Errorf(DialError, err)
			}

		case '\r', '\n':
			fmt.Fprintf(output, "\n")
			if len(line) > 0 {
				if err := sendPacket(conn, line); err != nil {
					return err
				}
				line = line[:0]
			}

		case 0x7f, 0x08:
			// backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprintf(output, "\b \b")
			}

		default:
			line = append(line, b)
			fmt.Fprintf(output, "%c", b)
		}
	}
}

// sendPacket frames a payload and transmits it. The +/- acknowledgement
// discipline is left to the user's eyes.
func sendPacket(conn net.Conn, payload []byte) error {
	var sum byte
	for _, b := range payload {
		sum += b
	}

	if _, err := conn.Write([]byte(fmt.Sprintf("$%s#%02x", payload, sum))); err != nil {
		return curated.Errorf(DialError, err)
	}

	return nil
}
