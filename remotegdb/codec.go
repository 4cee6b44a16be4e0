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
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/kestrelsim/kestrel/logger"
)

// a raw 0x03 byte outside of any packet is an asynchronous interrupt
// request from the client.
const interruptByte = 0x03

type tokenKind int

// the codec reduces the byte stream from the client to a stream of tokens.
const (
	tokPacket tokenKind = iota
	tokAck
	tokNack
	tokInterrupt
	tokClosed
)

type token struct {
	kind    tokenKind
	payload []byte
}

// codec frames and unframes RSP packets. A packet on the wire is
//
//	$<payload>#<hh>
//
// where hh is the modulo-256 sum of the payload bytes in two hex digits.
// The bytes #, $, } and * inside a payload are escaped as '}' followed by
// the byte xor 0x20. A '*' in an incoming payload introduces a run-length
// encoded repeat of the preceding character.
//
// The reader goroutine owns the inbound half of the connection. It
// verifies checksums and transmits the +/- acknowledgements for inbound
// packets itself; framing errors never reach the session.
type codec struct {
	conn   net.Conn
	tokens chan token

	// wake is called after each token is queued. the session uses it to
	// post a poll event to the simulation goroutine
	wake func()

	// accessed from both the reader goroutine and the session. non-zero
	// once QStartNoAckMode has been negotiated
	noAck int32
}

func newCodec(conn net.Conn, wake func()) *codec {
	c := &codec{
		conn:   conn,
		tokens: make(chan token, 64),
		wake:   wake,
	}
	go c.reader()
	return c
}

// startNoAck stops the exchange of +/- acknowledgements in both
// directions.
func (c *codec) startNoAck() {
	atomic.StoreInt32(&c.noAck, 1)
}

func (c *codec) acking() bool {
	return atomic.LoadInt32(&c.noAck) == 0
}

func (c *codec) emit(tok token) {
	c.tokens <- tok
	if c.wake != nil {
		c.wake()
	}
}

func (c *codec) reader() {
	r := bufio.NewReader(c.conn)

	for {
		b, err := r.ReadByte()
		if err != nil {
			c.emit(token{kind: tokClosed})
			return
		}

		switch b {
		case '+':
			c.emit(token{kind: tokAck})

		case '-':
			c.emit(token{kind: tokNack})

		case interruptByte:
			c.emit(token{kind: tokInterrupt})

		case '$':
			payload, ok, err := c.readPacket(r)
			if err != nil {
				c.emit(token{kind: tokClosed})
				return
			}
			if !ok {
				// bad checksum. demand a retransmission
				if c.acking() {
					_, _ = c.conn.Write([]byte{'-'})
				}
				continue
			}
			if c.acking() {
				if _, err := c.conn.Write([]byte{'+'}); err != nil {
					c.emit(token{kind: tokClosed})
					return
				}
			}
			c.emit(token{kind: tokPacket, payload: payload})

		default:
			// noise between packets is discarded
		}
	}
}

// readPacket reads the remainder of a packet after the leading '$'. The
// second return value is false if the checksum did not match.
func (c *codec) readPacket(r *bufio.Reader) ([]byte, bool, error) {
	raw := make([]byte, 0, 256)

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, false, err
		}
		if b == '#' {
			break // for loop
		}
		raw = append(raw, b)
	}

	var cs [2]byte
	if _, err := io.ReadFull(r, cs[:]); err != nil {
		return nil, false, err
	}

	want, err := strconv.ParseUint(string(cs[:]), 16, 8)
	if err != nil || uint8(want) != checksum(raw) {
		logger.Logf(logger.Allow, "gdb", "bad checksum on inbound packet (%s)", string(cs[:]))
		return nil, false, nil
	}

	return decodePayload(raw), true, nil
}

// checksum is the unsigned sum of the payload bytes, modulo 256.
func checksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}

// decodePayload resolves '}' escapes and '*' run-length encoding. The
// checksum has already been verified against the undecoded bytes.
func decodePayload(raw []byte) []byte {
	out := make([]byte, 0, len(raw))

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '}':
			i++
			if i < len(raw) {
				out = append(out, raw[i]^0x20)
			}

		case '*':
			i++
			if i < len(raw) && len(out) > 0 {
				// the preceding character appears n-28 additional times
				n := int(raw[i]) - 28
				last := out[len(out)-1]
				for j := 0; j < n; j++ {
					out = append(out, last)
				}
			}

		default:
			out = append(out, raw[i])
		}
	}

	return out
}

// encodePacket frames a payload for transmission. Run-length encoding is
// never produced.
func encodePacket(payload []byte) []byte {
	esc := make([]byte, 0, len(payload)+8)
	for _, b := range payload {
		switch b {
		case '#', '$', '}', '*':
			esc = append(esc, '}', b^0x20)
		default:
			esc = append(esc, b)
		}
	}

	pkt := make([]byte, 0, len(esc)+4)
	pkt = append(pkt, '$')
	pkt = append(pkt, esc...)
	pkt = append(pkt, '#')
	pkt = append(pkt, fmt.Sprintf("%02x", checksum(esc))...)

	return pkt
}
