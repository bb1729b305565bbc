// Copyright (c) 2013-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// makeHeader is a convenience function to make a message header in the form of
// a byte slice.  It is used to force errors when reading messages.
func makeHeader(btcnet BitcoinNet, command string,
	payloadLen uint32, checksum uint32) []byte {

	// The length of a bitcoin message header is 24 bytes.
	// 4 byte magic number of the bitcoin network + 12 byte command + 4 byte
	// payload length + 4 byte checksum.
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf, uint32(btcnet))
	copy(buf[4:], []byte(command))
	binary.LittleEndian.PutUint32(buf[16:], payloadLen)
	binary.LittleEndian.PutUint32(buf[20:], checksum)
	return buf
}

// TestMessage tests the WriteMessageN, ReadFrameN and DecodeMessage API.
func TestMessage(t *testing.T) {
	pver := ProtocolVersion

	tests := []struct {
		in     Message    // Value to encode
		out    Message    // Expected decoded value
		pver   uint32     // Protocol version for wire encoding
		btcnet BitcoinNet // Network to use for wire encoding
		bytes  int        // Expected num bytes read/written
	}{
		{baseVersion, baseVersion, pver, MainNet, 120},
		{NewMsgVerAck(), NewMsgVerAck(), pver, MainNet, 24},
		{baseVersion, baseVersion, pver, TestNet3, 120},
		{NewMsgVerAck(), NewMsgVerAck(), pver, SimNet, 24},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to wire format.
		var buf bytes.Buffer
		nw, err := WriteMessageN(&buf, test.in, test.pver, test.btcnet)
		if err != nil {
			t.Errorf("WriteMessageN #%d error %v", i, err)
			continue
		}

		// Ensure the number of bytes written match the expected value.
		if nw != test.bytes {
			t.Errorf("WriteMessageN #%d unexpected num bytes "+
				"written - got %d, want %d", i, nw, test.bytes)
		}

		// Read the frame back.
		rbuf := bytes.NewReader(buf.Bytes())
		nr, frame, err := ReadFrameN(rbuf)
		if err != nil {
			t.Errorf("ReadFrameN #%d error %v, frame %v", i, err,
				spew.Sdump(frame))
			continue
		}
		if nr != test.bytes {
			t.Errorf("ReadFrameN #%d unexpected num bytes read - "+
				"got %d, want %d", i, nr, test.bytes)
		}
		if frame.Header.Magic != test.btcnet {
			t.Errorf("ReadFrameN #%d wrong magic - got %v, want %v",
				i, frame.Header.Magic, test.btcnet)
		}
		if frame.Command() != test.in.Command() {
			t.Errorf("ReadFrameN #%d wrong command - got %v, want %v",
				i, frame.Command(), test.in.Command())
		}
		if !bytes.Equal(frame.Bytes(), buf.Bytes()) {
			t.Errorf("Frame.Bytes #%d\n got: %s want: %s", i,
				spew.Sdump(frame.Bytes()), spew.Sdump(buf.Bytes()))
		}

		msg, err := DecodeMessage(frame, test.pver)
		if err != nil {
			t.Errorf("DecodeMessage #%d error %v", i, err)
			continue
		}
		if !reflect.DeepEqual(msg, test.out) {
			t.Errorf("DecodeMessage #%d\n got: %v want: %v", i,
				spew.Sdump(msg), spew.Sdump(test.out))
			continue
		}
	}
}

// TestMessageHeader exercises header construction, encoding and parsing.
func TestMessageHeader(t *testing.T) {
	verackFrame, _ := hex.DecodeString("f9beb4d976657261636b000000000000" +
		"000000005df6e0e2")

	hdr, err := NewMessageHeader(MainNet, CmdVerAck, nil)
	if err != nil {
		t.Fatalf("NewMessageHeader: unexpected error %v", err)
	}
	if !bytes.Equal(hdr.Bytes(), verackFrame) {
		t.Fatalf("Bytes:\n got: %s want: %s", spew.Sdump(hdr.Bytes()),
			spew.Sdump(verackFrame))
	}

	parsed, err := ParseHeader(verackFrame)
	if err != nil {
		t.Fatalf("ParseHeader: unexpected error %v", err)
	}
	if !reflect.DeepEqual(parsed, hdr) {
		t.Errorf("ParseHeader:\n got: %s want: %s", spew.Sdump(parsed),
			spew.Sdump(hdr))
	}
	if err := VerifyPayload(parsed, nil); err != nil {
		t.Errorf("VerifyPayload: unexpected error %v", err)
	}

	b, err := BuildMessage(MainNet, CmdVerAck, []byte{})
	if err != nil {
		t.Fatalf("BuildMessage: unexpected error %v", err)
	}
	if !bytes.Equal(b, verackFrame) {
		t.Errorf("BuildMessage:\n got: %s want: %s", spew.Sdump(b),
			spew.Sdump(verackFrame))
	}

	// A command of exactly CommandSize bytes fits.
	if _, err := NewMessageHeader(MainNet, "abcdefghijkl", nil); err != nil {
		t.Errorf("NewMessageHeader: unexpected error %v", err)
	}
	_, err = NewMessageHeader(MainNet, "abcdefghijklm", nil)
	if !errors.Is(err, ErrCommandTooLong) {
		t.Errorf("NewMessageHeader: wrong error got: %v, want: %v",
			err, ErrCommandTooLong)
	}
	_, err = BuildMessage(MainNet, "abcdefghijklm", nil)
	if !errors.Is(err, ErrCommandTooLong) {
		t.Errorf("BuildMessage: wrong error got: %v, want: %v",
			err, ErrCommandTooLong)
	}

	// Commands must be printable ASCII both when built and when parsed.
	badCommands := []string{"v\xffrsion", "ver\x00ack", "tab\tbed", "\x7f"}
	for _, cmd := range badCommands {
		_, err := NewMessageHeader(MainNet, cmd, nil)
		if !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("NewMessageHeader(%q): wrong error got: %v, "+
				"want: %v", cmd, err, ErrInvalidCommand)
		}

		raw := make([]byte, len(verackFrame))
		copy(raw, verackFrame)
		copy(raw[4:4+CommandSize], make([]byte, CommandSize))
		copy(raw[4:], cmd)
		_, err = ParseHeader(raw)
		if !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("ParseHeader(%q): wrong error got: %v, want: %v",
				cmd, err, ErrInvalidCommand)
		}
	}

	for i := 0; i < MessageHeaderSize; i++ {
		_, err := ParseHeader(verackFrame[:i])
		if !errors.Is(err, ErrShortRead) {
			t.Errorf("ParseHeader(%d bytes): wrong error got: %v, "+
				"want: %v", i, err, ErrShortRead)
		}
	}
}

// TestVerifyPayload ensures every single bit flip of a payload is caught by
// the checksum and that the length is checked independently.
func TestVerifyPayload(t *testing.T) {
	payload := make([]byte, len(baseVersionEncoded))
	copy(payload, baseVersionEncoded)
	hdr, err := NewMessageHeader(MainNet, CmdVersion, payload)
	if err != nil {
		t.Fatalf("NewMessageHeader: unexpected error %v", err)
	}
	wantSum := [4]byte{0x1d, 0x0d, 0x74, 0x85}
	if hdr.Checksum != wantSum {
		t.Fatalf("Checksum: got %x, want %x", hdr.Checksum, wantSum)
	}
	if err := VerifyPayload(hdr, payload); err != nil {
		t.Fatalf("VerifyPayload: unexpected error %v", err)
	}

	for i := 0; i < len(payload)*8; i++ {
		payload[i/8] ^= 1 << uint(i%8)
		err := VerifyPayload(hdr, payload)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("VerifyPayload(bit %d): wrong error got: %v, "+
				"want: %v", i, err, ErrChecksumMismatch)
		}
		payload[i/8] ^= 1 << uint(i%8)
	}

	// Correct checksum with a forged length.
	forged := *hdr
	forged.Length++
	err = VerifyPayload(&forged, payload)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("VerifyPayload: wrong error got: %v, want: %v", err,
			ErrLengthMismatch)
	}
}

// TestReadFrameErrors performs negative tests against reading frames to
// confirm error paths work correctly.
func TestReadFrameErrors(t *testing.T) {
	verack, err := BuildMessage(MainNet, CmdVerAck, nil)
	if err != nil {
		t.Fatalf("BuildMessage: unexpected error %v", err)
	}

	// Header announcing a payload over the max.
	tooLarge := makeHeader(MainNet, CmdVersion, MaxMessagePayload+1, 0)

	// Valid header for a 4 byte payload with only 2 payload bytes.
	shortPayload := append(makeHeader(MainNet, "ping", 4, 0),
		0x01, 0x02)

	// Valid header with a payload that doesn't match the checksum.
	badChecksum := append(makeHeader(MainNet, "ping", 4, 0xdeadbeef),
		0x01, 0x02, 0x03, 0x04)

	tests := []struct {
		buf   []byte // Wire encoding
		err   error  // Expected read error
		bytes int    // Expected num bytes read
	}{
		// Nothing to read.
		{nil, io.EOF, 0},
		// Partial header.
		{verack[:10], io.ErrUnexpectedEOF, 10},
		// Payload over the max.
		{tooLarge, ErrPayloadTooLarge, 24},
		// Payload shorter than the header claims.
		{shortPayload, io.ErrUnexpectedEOF, 26},
		// Checksum mismatch.
		{badChecksum, ErrChecksumMismatch, 28},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		r := bytes.NewReader(test.buf)
		n, _, err := ReadFrameN(r)
		if !errors.Is(err, test.err) {
			t.Errorf("ReadFrameN #%d wrong error got: %v, want: %v",
				i, err, test.err)
			continue
		}
		if n != test.bytes {
			t.Errorf("ReadFrameN #%d unexpected num bytes read - "+
				"got %d, want %d", i, n, test.bytes)
		}
	}
}

// TestReadHeaderThenPayload ensures a frame can be read in two steps, and
// that an oversized header is refused without consuming the payload.
func TestReadHeaderThenPayload(t *testing.T) {
	ping, err := BuildMessage(SimNet, "ping", []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("BuildMessage: unexpected error %v", err)
	}
	tooLarge := makeHeader(SimNet, "ping", MaxMessagePayload+1, 0)

	r := bytes.NewReader(append(ping, tooLarge...))
	n, hdr, err := ReadMessageHeaderN(r)
	if err != nil {
		t.Fatalf("ReadMessageHeaderN: unexpected error %v", err)
	}
	if n != MessageHeaderSize || hdr.Command != "ping" || hdr.Length != 8 {
		t.Fatalf("ReadMessageHeaderN: got %d bytes, header %v", n,
			spew.Sdump(hdr))
	}
	n, frame, err := ReadPayloadN(r, hdr)
	if err != nil {
		t.Fatalf("ReadPayloadN: unexpected error %v", err)
	}
	if n != 8 || !bytes.Equal(frame.Bytes(), ping) {
		t.Fatalf("ReadPayloadN: got %d bytes, frame %x", n,
			frame.Bytes())
	}

	_, hdr, err = ReadMessageHeaderN(r)
	if err != nil {
		t.Fatalf("ReadMessageHeaderN: unexpected error %v", err)
	}
	n, _, err = ReadPayloadN(r, hdr)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("ReadPayloadN: wrong error got: %v, want: %v", err,
			ErrPayloadTooLarge)
	}
	if n != 0 || r.Len() != 0 {
		t.Errorf("ReadPayloadN: read %d bytes, %d left", n, r.Len())
	}
}

// TestDecodeMessageErrors ensures frames that can't be decoded into a message
// are rejected with the expected kind.
func TestDecodeMessageErrors(t *testing.T) {
	pver := ProtocolVersion

	unknown := &Frame{Header: MessageHeader{Command: CmdSendHeaders}}
	_, err := DecodeMessage(unknown, pver)
	if !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("DecodeMessage: wrong error got: %v, want: %v", err,
			ErrUnknownMessage)
	}

	// A verack must not carry a payload.
	oversize := &Frame{
		Header:  MessageHeader{Command: CmdVerAck, Length: 1},
		Payload: []byte{0x00},
	}
	_, err = DecodeMessage(oversize, pver)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("DecodeMessage: wrong error got: %v, want: %v", err,
			ErrPayloadTooLarge)
	}

	// Truncated version payload.
	truncated := &Frame{
		Header:  MessageHeader{Command: CmdVersion},
		Payload: baseVersionEncoded[:50],
	}
	_, err = DecodeMessage(truncated, pver)
	if !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("DecodeMessage: wrong error got: %v, want: %v", err,
			ErrTruncatedPayload)
	}
}

// TestWriteMessageWireErrors performs negative tests against wire encoding
// of messages to confirm error paths work correctly.
func TestWriteMessageWireErrors(t *testing.T) {
	pver := ProtocolVersion

	// Fail encoding with a user agent that is too long.
	longUA := baseVersion.WithUserAgent(string(make([]byte,
		MaxUserAgentLen+1)))
	var buf bytes.Buffer
	n, err := WriteMessageN(&buf, longUA, pver, MainNet)
	if !errors.Is(err, ErrUserAgentTooLong) {
		t.Errorf("WriteMessageN: wrong error got: %v, want: %v", err,
			ErrUserAgentTooLong)
	}
	if n != 0 || buf.Len() != 0 {
		t.Errorf("WriteMessageN: wrote %d bytes on error", n)
	}

	// Fail writing to the transport.
	w := newFixedWriter(10)
	_, err = WriteMessageN(w, NewMsgVerAck(), pver, MainNet)
	if err != io.ErrShortWrite {
		t.Errorf("WriteMessageN: wrong error got: %v, want: %v", err,
			io.ErrShortWrite)
	}
}
