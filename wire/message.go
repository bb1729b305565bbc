// Copyright (c) 2013-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MessageHeaderSize is the number of bytes in a bitcoin message header.
// Bitcoin network (magic) 4 bytes + command 12 bytes + payload length 4 bytes +
// checksum 4 bytes.
const MessageHeaderSize = 24

// CommandSize is the fixed size of all commands in the common bitcoin message
// header.  Shorter commands must be zero padded.
const CommandSize = 12

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = (1024 * 1024 * 32) // 32MB

// Commands used in bitcoin message headers which describe the type of message.
// Only version and verack are decoded by this package.  The rest are commonly
// sent by peers right after their verack and are named for logging.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdGetAddr     = "getaddr"
	CmdAddr        = "addr"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdSendHeaders = "sendheaders"
	CmdFeeFilter   = "feefilter"
	CmdSendAddrV2  = "sendaddrv2"
	CmdWTxIdRelay  = "wtxidrelay"
)

// Message is an interface that describes a bitcoin message.  A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
//
// The set of messages is closed: only types defined in this package implement
// it.
type Message interface {
	BtcDecode(io.Reader, uint32) error
	BtcEncode(io.Writer, uint32) error
	Command() string
	MaxPayloadLength(uint32) uint32

	wireMessage()
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdVersion:
		msg = &MsgVersion{}

	case CmdVerAck:
		msg = &MsgVerAck{}

	default:
		str := fmt.Sprintf("no message type for command [%s]", command)
		return nil, messageError("makeEmptyMessage", ErrUnknownMessage,
			str)
	}
	return msg, nil
}

// MessageHeader defines the header structure for all bitcoin protocol
// messages.
type MessageHeader struct {
	Magic    BitcoinNet // 4 bytes
	Command  string     // 12 bytes
	Length   uint32     // 4 bytes
	Checksum [4]byte    // 4 bytes
}

// Checksum returns the first four bytes of the double sha256 of payload.
func Checksum(payload []byte) [4]byte {
	var sum [4]byte
	copy(sum[:], chainhash.DoubleHashB(payload)[0:4])
	return sum
}

// validCommand returns whether every byte of command is printable ASCII.
func validCommand(command string) bool {
	for i := 0; i < len(command); i++ {
		if command[i] < 0x20 || command[i] > 0x7e {
			return false
		}
	}
	return true
}

// NewMessageHeader returns the header for payload sent as command on the
// given network.  ErrCommandTooLong is returned when command does not fit in
// CommandSize bytes and ErrInvalidCommand when it is not printable ASCII.
func NewMessageHeader(btcnet BitcoinNet, command string,
	payload []byte) (*MessageHeader, error) {

	if len(command) > CommandSize {
		str := fmt.Sprintf("command [%s] is too long [max %v]",
			command, CommandSize)
		return nil, messageError("NewMessageHeader", ErrCommandTooLong,
			str)
	}
	if !validCommand(command) {
		str := fmt.Sprintf("command %q is not printable ASCII", command)
		return nil, messageError("NewMessageHeader", ErrInvalidCommand,
			str)
	}

	return &MessageHeader{
		Magic:    btcnet,
		Command:  command,
		Length:   uint32(len(payload)),
		Checksum: Checksum(payload),
	}, nil
}

// Bytes returns the 24 byte wire encoding of the header.  The command is zero
// padded to CommandSize bytes.
func (h *MessageHeader) Bytes() []byte {
	var command [CommandSize]byte
	copy(command[:], h.Command)

	// Writes to a bytes.Buffer never fail.
	hw := bytes.NewBuffer(make([]byte, 0, MessageHeaderSize))
	_ = writeElements(hw, h.Magic, command, h.Length, h.Checksum)
	return hw.Bytes()
}

// ParseHeader decodes a message header from the first MessageHeaderSize bytes
// of b.  ErrShortRead is returned when fewer bytes are supplied and
// ErrInvalidCommand when the command, once its zero padding is removed, is
// not printable ASCII.
func ParseHeader(b []byte) (*MessageHeader, error) {
	if len(b) < MessageHeaderSize {
		str := fmt.Sprintf("message header requires %d bytes, got %d",
			MessageHeaderSize, len(b))
		return nil, messageError("ParseHeader", ErrShortRead, str)
	}

	var hdr MessageHeader
	var command [CommandSize]byte
	hr := bytes.NewReader(b[:MessageHeaderSize])
	err := readElements(hr, &hdr.Magic, &command, &hdr.Length,
		&hdr.Checksum)
	if err != nil {
		return nil, err
	}

	// Strip trailing zeros from command string.
	hdr.Command = string(bytes.TrimRight(command[:], "\x00"))
	if !validCommand(hdr.Command) {
		str := fmt.Sprintf("command %q is not printable ASCII",
			hdr.Command)
		return nil, messageError("ParseHeader", ErrInvalidCommand, str)
	}

	return &hdr, nil
}

// VerifyPayload checks payload against the checksum and length carried in
// hdr.  Both checks are always performed and the payload must not be trusted
// unless this returns nil.
func VerifyPayload(hdr *MessageHeader, payload []byte) error {
	checksum := Checksum(payload)
	if checksum != hdr.Checksum {
		str := fmt.Sprintf("payload checksum failed - header "+
			"indicates %x, but actual checksum is %x.",
			hdr.Checksum, checksum)
		return messageError("VerifyPayload", ErrChecksumMismatch, str)
	}

	if uint64(hdr.Length) != uint64(len(payload)) {
		str := fmt.Sprintf("payload length mismatch - header "+
			"indicates %d bytes, but payload is %d bytes",
			hdr.Length, len(payload))
		return messageError("VerifyPayload", ErrLengthMismatch, str)
	}

	return nil
}

// BuildMessage returns the header for payload followed by payload itself.
func BuildMessage(btcnet BitcoinNet, command string,
	payload []byte) ([]byte, error) {

	hdr, err := NewMessageHeader(btcnet, command, payload)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, MessageHeaderSize+len(payload))
	msg = append(msg, hdr.Bytes()...)
	return append(msg, payload...), nil
}

// Frame is a message read off the wire whose payload has been verified
// against its header but not decoded.
type Frame struct {
	Header  MessageHeader
	Payload []byte
}

// Command returns the command carried in the frame header.
func (f *Frame) Command() string {
	return f.Header.Command
}

// Bytes returns the wire encoding of the frame.
func (f *Frame) Bytes() []byte {
	b := make([]byte, 0, MessageHeaderSize+len(f.Payload))
	b = append(b, f.Header.Bytes()...)
	return append(b, f.Payload...)
}

// ReadMessageHeaderN reads and parses the next message header from r.  It
// returns the number of bytes read along with the header.
func ReadMessageHeaderN(r io.Reader) (int, *MessageHeader, error) {
	// Read the entire header into a buffer first in case there is a short
	// read so the proper amount of read bytes are known.
	var headerBytes [MessageHeaderSize]byte
	n, err := io.ReadFull(r, headerBytes[:])
	if err != nil {
		return n, nil, err
	}
	hdr, err := ParseHeader(headerBytes[:])
	if err != nil {
		return n, nil, err
	}
	return n, hdr, nil
}

// ReadPayloadN reads the payload announced by hdr from r and verifies it.  It
// returns the number of bytes read along with the frame.  Headers announcing
// more than MaxMessagePayload bytes are rejected with ErrPayloadTooLarge
// before anything is read.
func ReadPayloadN(r io.Reader, hdr *MessageHeader) (int, *Frame, error) {
	// Enforce maximum message payload.
	if hdr.Length > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - header "+
			"indicates %d bytes, but max message payload is %d "+
			"bytes.", hdr.Length, MaxMessagePayload)
		return 0, nil, messageError("ReadPayloadN",
			ErrPayloadTooLarge, str)
	}

	payload := make([]byte, hdr.Length)
	n, err := io.ReadFull(r, payload)
	if err != nil {
		return n, nil, err
	}

	if err := VerifyPayload(hdr, payload); err != nil {
		return n, nil, err
	}

	return n, &Frame{Header: *hdr, Payload: payload}, nil
}

// ReadFrameN reads the next message header and payload from r and verifies
// the payload.  It returns the number of bytes read along with the frame.
// Callers which need to inspect the header before the payload is allocated
// use ReadMessageHeaderN and ReadPayloadN instead.
func ReadFrameN(r io.Reader) (int, *Frame, error) {
	totalBytes, hdr, err := ReadMessageHeaderN(r)
	if err != nil {
		return totalBytes, nil, err
	}
	n, frame, err := ReadPayloadN(r, hdr)
	totalBytes += n
	return totalBytes, frame, err
}

// DecodeMessage decodes the payload of a verified frame into the message type
// named by its command.  ErrUnknownMessage is returned for commands this
// package has no type for.
func DecodeMessage(frame *Frame, pver uint32) (Message, error) {
	msg, err := makeEmptyMessage(frame.Header.Command)
	if err != nil {
		return nil, err
	}

	// Check for maximum length based on the message type as a malicious
	// client could otherwise create a well-formed header and set the
	// length to max numbers in order to exhaust the machine's memory.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(len(frame.Payload)) > mpl {
		str := fmt.Sprintf("payload exceeds max length - frame "+
			"holds %v bytes, but max payload size for messages "+
			"of type [%v] is %v.", len(frame.Payload),
			frame.Header.Command, mpl)
		return nil, messageError("DecodeMessage", ErrPayloadTooLarge,
			str)
	}

	// NOTE: This must be a *bytes.Buffer since the MsgVersion BtcDecode
	// function requires it.
	err = msg.BtcDecode(bytes.NewBuffer(frame.Payload), pver)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// EncodeMessage encodes msg and frames it for the given network.
func EncodeMessage(msg Message, pver uint32, btcnet BitcoinNet) ([]byte, error) {
	var bw bytes.Buffer
	err := msg.BtcEncode(&bw, pver)
	if err != nil {
		return nil, err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	// Enforce maximum message payload based on the message type.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload size for "+
			"messages of type [%s] is %d.", lenp, msg.Command(), mpl)
		return nil, messageError("EncodeMessage", ErrPayloadTooLarge, str)
	}

	return BuildMessage(btcnet, msg.Command(), payload)
}

// WriteMessageN writes a bitcoin Message to w including the necessary header
// information and returns the number of bytes written.
func WriteMessageN(w io.Writer, msg Message, pver uint32,
	btcnet BitcoinNet) (int, error) {

	b, err := EncodeMessage(msg, pver, btcnet)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}
