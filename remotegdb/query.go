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
	"fmt"
	"strconv"
	"strings"
)

// queryFunc handles one q/Q sub-command. args is the text following the
// sub-command name, with any leading separator removed.
type queryFunc func(s *Session, args string) error

// queries is keyed by the sub-token following the q or Q command byte.
// populated by init() rather than a literal to keep the handler functions
// free to refer to the table.
var queries map[string]queryFunc

func init() {
	queries = map[string]queryFunc{
		"C":              queryC,
		"Supported":      querySupported,
		"Xfer":           queryXfer,
		"fThreadInfo":    queryFThreadInfo,
		"sThreadInfo":    querySThreadInfo,
		"Attached":       queryAttached,
		"Offsets":        queryOffsets,
		"StartNoAckMode": queryStartNoAckMode,
	}
}

// queryC reports the current thread ID.
func queryC(s *Session, _ string) error {
	return s.send(fmt.Sprintf("QC%x", int(s.curID)+1))
}

// querySupported negotiates protocol features. The features offered by the
// client are not interesting to us; the reply is the packet size limit
// plus whatever the architecture advertises.
func querySupported(s *Session, _ string) error {
	features := []string{fmt.Sprintf("PacketSize=%x", packetSize)}
	features = append(features, s.arch.AvailableFeatures()...)
	return s.send(strings.Join(features, ";"))
}

// queryXfer serves qXfer:features:read requests, paging through the target
// description XML.
//
//	qXfer:features:read:<annex>:<offset>,<length>
func queryXfer(s *Session, args string) error {
	parts := strings.Split(args, ":")
	if len(parts) != 4 || parts[0] != "features" || parts[1] != "read" {
		return s.send("")
	}

	body, ok := s.arch.XferFeaturesRead(parts[2])
	if !ok {
		return s.send("E00")
	}

	offlen := strings.SplitN(parts[3], ",", 2)
	if len(offlen) != 2 {
		return s.send("E01")
	}
	offset, err1 := strconv.ParseUint(offlen[0], 16, 64)
	length, err2 := strconv.ParseUint(offlen[1], 16, 64)
	if err1 != nil || err2 != nil {
		return s.send("E01")
	}

	return s.send(encodeXferResponse(body, offset, length))
}

// encodeXferResponse slices the requested window out of an annex body. The
// reply is prefixed 'm' when more data remains and 'l' on the final
// window. An offset at or beyond the end of the body produces a bare 'l'.
// Escaping of the body is handled at the framing layer.
func encodeXferResponse(body string, offset uint64, length uint64) string {
	if offset >= uint64(len(body)) {
		return "l"
	}

	end := offset + length
	prefix := "m"
	if end >= uint64(len(body)) {
		end = uint64(len(body))
		prefix = "l"
	}

	return prefix + body[offset:end]
}

// queryFThreadInfo begins paging through the thread list.
func queryFThreadInfo(s *Session, _ string) error {
	s.threadInfoIdx = 0
	return s.send(s.threadInfoReply())
}

// querySThreadInfo continues paging through the thread list.
func querySThreadInfo(s *Session, _ string) error {
	return s.send(s.threadInfoReply())
}

// queryAttached reports that the debugger attached to an existing process
// rather than spawning one.
func queryAttached(s *Session, _ string) error {
	return s.send("1")
}

// queryOffsets reports relocation offsets. The simulated program is loaded
// where its image says it is.
func queryOffsets(s *Session, _ string) error {
	return s.send("Text=0;Data=0;Bss=0")
}

// queryStartNoAckMode disables the +/- acknowledgement exchange.
func queryStartNoAckMode(s *Session, _ string) error {
	err := s.send("OK")
	s.codec.startNoAck()
	return err
}
