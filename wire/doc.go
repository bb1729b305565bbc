// Copyright (c) 2013-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the parts of the bitcoin wire protocol needed to
open a connection: the network address and version message codecs, variable
length integers and strings, and the 24 byte message framing shared by every
command.

# Message Overview

Every message is a fixed header followed by a payload:

	magic (4, LE) | command (12, zero padded) | length (4, LE) | checksum (4)

The checksum is the first four bytes of the double sha256 of the payload.
All integers are little endian except the port of a network address, which
is big endian.

# Reading Messages

ReadFrameN reads a header and payload from a stream and verifies the payload
against the header.  The returned Frame can then be decoded with
DecodeMessage.  Only the version and verack commands have a message type in
this package; DecodeMessage returns ErrUnknownMessage for any other command
so callers can keep such frames around undecoded.  ReadMessageHeaderN and
ReadPayloadN split the same read in two, so a frame can be refused by its
header before its payload is allocated.

	_, frame, err := wire.ReadFrameN(conn)
	if err != nil {
		// Log and handle the error
	}
	if frame.Header.Magic != wire.MainNet {
		// Wrong network
	}
	msg, err := wire.DecodeMessage(frame, wire.ProtocolVersion)

# Writing Messages

	nonce, err := wire.RandomUint64()
	msg := wire.NewMsgVersion(me, you, nonce, 0)
	_, err = wire.WriteMessageN(conn, msg, wire.ProtocolVersion, wire.MainNet)

# Errors

Errors returned by this package are either io errors from the underlying
reader or writer, or a *MessageError.  Every MessageError carries an
ErrorCode which can be matched with errors.Is:

	if errors.Is(err, wire.ErrChecksumMismatch) {
		...
	}
*/
package wire
