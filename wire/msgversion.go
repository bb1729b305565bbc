// Copyright (c) 2013-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in a
// version message (MsgVersion).
const MaxUserAgentLen = 256

// DefaultUserAgent is the user agent advertised by version messages created
// with NewMsgVersion.
const DefaultUserAgent = "/lnwire:0.1.0/"

// MsgVersion implements the Message interface and represents a bitcoin version
// message.  It is used for a peer to advertise itself as soon as an outbound
// connection is made.  The remote peer then uses this information along with
// its own to negotiate.  The remote peer must then respond with a version
// message of its own containing the negotiated values followed by a verack
// message (MsgVerAck).  This exchange must take place before any further
// communication is allowed to proceed.
//
// The fields of a MsgVersion are not changed once it has been sent.  Use the
// With* methods to derive a copy with a single field replaced.
type MsgVersion struct {
	// Version of the protocol the node is using.
	ProtocolVersion int32

	// Bitfield which identifies the enabled services.
	Services ServiceFlag

	// Time the message was generated.  This is encoded as an int64 on the
	// wire.
	Timestamp time.Time

	// Address of the remote peer.
	AddrRecv NetAddress

	// Address of the local peer.
	AddrFrom NetAddress

	// Unique value associated with message that is used to detect self
	// connections.
	Nonce uint64

	// The user agent that generated the message.  This is encoded as a
	// varString on the wire.  This has a max length of MaxUserAgentLen.
	UserAgent string

	// Last block seen by the generator of the version message.
	StartHeight int32

	// Don't announce transactions to peer.  The relay flag carried on the
	// wire is the negation of this field and is only present when
	// ProtocolVersion >= BIP0037Version.  Older versions always relay, so
	// the field has no meaning for them and decodes as false.
	DisableRelayTx bool
}

// HasService returns whether the specified service is supported by the peer
// that generated the message.
func (msg *MsgVersion) HasService(service ServiceFlag) bool {
	return msg.Services&service == service
}

// AddService adds service as a supported service by the peer generating the
// message.
func (msg *MsgVersion) AddService(service ServiceFlag) {
	msg.Services |= service
}

// hasRelayField returns whether the relay flag is part of the encoding for
// the protocol version announced by the message itself.
func (msg *MsgVersion) hasRelayField() bool {
	return msg.ProtocolVersion >= int32(BIP0037Version)
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
// The version message is self describing, so the layout is selected by the
// decoded protocol version rather than pver.
//
// The passed io.Reader must be a *bytes.Buffer so the remaining length can be
// checked for the optional relay field and for length prefixes that claim
// more bytes than remain.
//
// This is part of the Message interface implementation.
func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	buf, ok := r.(*bytes.Buffer)
	if !ok {
		return fmt.Errorf("MsgVersion.BtcDecode reader is not a " +
			"*bytes.Buffer")
	}

	var sec int64
	err := readElements(buf, &msg.ProtocolVersion, &msg.Services, &sec)
	if err != nil {
		return truncatedField("protocol version, services and timestamp",
			err)
	}
	msg.Timestamp = time.Unix(sec, 0)

	if buf.Len() < NetAddressSize {
		return truncatedField("receiving address", io.ErrUnexpectedEOF)
	}
	if err := ReadNetAddress(buf, &msg.AddrRecv); err != nil {
		return err
	}

	if buf.Len() < NetAddressSize {
		return truncatedField("sending address", io.ErrUnexpectedEOF)
	}
	if err := ReadNetAddress(buf, &msg.AddrFrom); err != nil {
		return err
	}

	if err := readElement(buf, &msg.Nonce); err != nil {
		return truncatedField("nonce", err)
	}

	userAgent, err := ReadVarString(buf, pver)
	if err != nil {
		return truncatedField("user agent length", err)
	}
	err = validateUserAgent(userAgent)
	if err != nil {
		return err
	}
	msg.UserAgent = userAgent

	if err := readElement(buf, &msg.StartHeight); err != nil {
		return truncatedField("start height", err)
	}

	// There was no relay transactions field before BIP0037Version.  Some
	// peers omit it even after that, in which case relaying is assumed.
	msg.DisableRelayTx = false
	if msg.hasRelayField() && buf.Len() > 0 {
		var relayTx bool
		if err := readElement(buf, &relayTx); err != nil {
			return err
		}
		msg.DisableRelayTx = !relayTx
	}

	return nil
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// The relay flag is written only when the message's own protocol version is
// at least BIP0037Version.
//
// This is part of the Message interface implementation.
func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	err := validateUserAgent(msg.UserAgent)
	if err != nil {
		return err
	}

	err = writeElements(w, msg.ProtocolVersion, msg.Services,
		msg.Timestamp.Unix())
	if err != nil {
		return err
	}

	err = WriteNetAddress(w, &msg.AddrRecv)
	if err != nil {
		return err
	}

	err = WriteNetAddress(w, &msg.AddrFrom)
	if err != nil {
		return err
	}

	err = writeElement(w, msg.Nonce)
	if err != nil {
		return err
	}

	err = WriteVarString(w, pver, msg.UserAgent)
	if err != nil {
		return err
	}

	err = writeElement(w, msg.StartHeight)
	if err != nil {
		return err
	}

	if msg.hasRelayField() {
		err = writeElement(w, !msg.DisableRelayTx)
		if err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	// Protocol version 4 bytes + services 8 bytes + timestamp 8 bytes +
	// remote and local net addresses + nonce 8 bytes + length of user
	// agent (varInt) + max allowed useragent length + start height 4 bytes
	// + relay transactions flag 1 byte.
	return 20 + (NetAddressSize * 2) + 8 + MaxVarIntPayload +
		MaxUserAgentLen + 4 + 1
}

func (msg *MsgVersion) wireMessage() {}

// WithAddrRecv returns a copy of the message with the receiving address
// replaced.
func (msg MsgVersion) WithAddrRecv(na NetAddress) *MsgVersion {
	msg.AddrRecv = na
	return &msg
}

// WithAddrFrom returns a copy of the message with the sending address
// replaced.
func (msg MsgVersion) WithAddrFrom(na NetAddress) *MsgVersion {
	msg.AddrFrom = na
	return &msg
}

// WithNonce returns a copy of the message with the nonce replaced.
func (msg MsgVersion) WithNonce(nonce uint64) *MsgVersion {
	msg.Nonce = nonce
	return &msg
}

// WithUserAgent returns a copy of the message with the user agent replaced.
func (msg MsgVersion) WithUserAgent(userAgent string) *MsgVersion {
	msg.UserAgent = userAgent
	return &msg
}

// WithTimestamp returns a copy of the message with the timestamp replaced,
// truncated to one second precision.
func (msg MsgVersion) WithTimestamp(ts time.Time) *MsgVersion {
	msg.Timestamp = time.Unix(ts.Unix(), 0)
	return &msg
}

// WithStartHeight returns a copy of the message with the start height
// replaced.
func (msg MsgVersion) WithStartHeight(height int32) *MsgVersion {
	msg.StartHeight = height
	return &msg
}

// WithProtocolVersion returns a copy of the message announcing pver.  Relay
// is re-enabled when pver predates BIP0037Version since such messages have no
// way to disable it.
func (msg MsgVersion) WithProtocolVersion(pver uint32) *MsgVersion {
	msg.ProtocolVersion = int32(pver)
	if !msg.hasRelayField() {
		msg.DisableRelayTx = false
	}
	return &msg
}

// WithRelay returns a copy of the message announcing whether the sender
// wants transactions relayed to it.  Relay can only be disabled for protocol
// versions of at least BIP0037Version.
func (msg MsgVersion) WithRelay(relay bool) *MsgVersion {
	msg.DisableRelayTx = !relay && msg.hasRelayField()
	return &msg
}

// NewMsgVersion returns a new bitcoin version message that conforms to the
// Message interface using the passed parameters and defaults for the remaining
// fields.
func NewMsgVersion(me *NetAddress, you *NetAddress, nonce uint64,
	startHeight int32) *MsgVersion {

	// Limit the timestamp to one second precision since the protocol
	// doesn't support better.
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        0,
		Timestamp:       time.Unix(time.Now().Unix(), 0),
		AddrRecv:        *you,
		AddrFrom:        *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		StartHeight:     startHeight,
		DisableRelayTx:  false,
	}
}

// validateUserAgent checks userAgent length against MaxUserAgentLen
func validateUserAgent(userAgent string) error {
	if len(userAgent) > MaxUserAgentLen {
		str := fmt.Sprintf("user agent too long [len %v, max %v]",
			len(userAgent), MaxUserAgentLen)
		return messageError("MsgVersion", ErrUserAgentTooLong, str)
	}
	return nil
}

// AddUserAgent adds a user agent to the user agent string for the version
// message.  The version string is not defined to any strict format, although
// it is recommended to use the form "major.minor.revision" e.g. "2.6.41".
func (msg *MsgVersion) AddUserAgent(name string, version string,
	comments ...string) error {

	newUserAgent := fmt.Sprintf("%s:%s", name, version)
	if len(comments) != 0 {
		newUserAgent = fmt.Sprintf("%s(%s)", newUserAgent,
			strings.Join(comments, "; "))
	}
	newUserAgent = fmt.Sprintf("%s%s/", msg.UserAgent, newUserAgent)
	err := validateUserAgent(newUserAgent)
	if err != nil {
		return err
	}
	msg.UserAgent = newUserAgent
	return nil
}

// truncatedField converts errors caused by running off the end of a version
// payload into an ErrTruncatedPayload MessageError.  Errors which already
// carry a kind are returned unchanged.
func truncatedField(field string, err error) error {
	if !isTruncation(err) {
		return err
	}
	str := fmt.Sprintf("payload ended while reading %s", field)
	return messageError("MsgVersion.BtcDecode", ErrTruncatedPayload, str)
}
