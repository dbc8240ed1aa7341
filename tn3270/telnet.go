// This file is part of a tn3270 core controller derived from
// https://github.com/racingmars/go3270/telnet.go in the manner
// described in DESIGN.md. Licensed under the MIT license.

package tn3270

import "io"

// NegotiateTelnet performs the naive (non-response-checking) TELNET
// option negotiation a tn3270 session needs: terminal type, binary
// transmission, and end-of-record, adapted from the teacher's
// original negotiation sequence.
func NegotiateTelnet(conn io.ReadWriter) error {
	rbuf := make([]byte, 255)

	conn.Write([]byte{0xff, 0xfd, 0x18}) // DO TermType
	conn.Read(rbuf)
	conn.Write([]byte{0xff, 0xfa, 0x18, 0x01, 0xff, 0xf0}) // TermType suboptions
	conn.Read(rbuf)
	conn.Write([]byte{0xff, 0xfd, 0x19}) // DO EOR
	conn.Read(rbuf)
	conn.Write([]byte{0xff, 0xfd, 0x00}) // DO Binary
	conn.Read(rbuf)

	conn.Write([]byte{0xff, 0xfb, 0x19, 0xff, 0xfb, 0x00}) // WILL binary, eor
	conn.Read(rbuf)

	return nil
}

// SplitTelnetRecords splits a raw TELNET stream on IAC EOR (0xFF 0xEF)
// markers, un-escaping IAC IAC (0xFF 0xFF) within each record. Spec
// §7 requires the core never buffer partial orders across record
// boundaries; this is the boundary it relies on, kept as a transport-
// adjacent helper rather than folded into the decoder itself.
func SplitTelnetRecords(buf []byte) (records [][]byte, remainder []byte) {
	var cur []byte
	i := 0
	for i < len(buf) {
		if buf[i] == 0xff && i+1 < len(buf) {
			switch buf[i+1] {
			case 0xef: // EOR
				records = append(records, cur)
				cur = nil
				i += 2
				continue
			case 0xff: // escaped IAC
				cur = append(cur, 0xff)
				i += 2
				continue
			}
		}
		cur = append(cur, buf[i])
		i++
	}
	return records, cur
}
