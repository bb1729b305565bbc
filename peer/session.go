// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"

	"github.com/btcsuite/lightnode/wire"
)

// MaxPendingFrames is the maximum number of frames other than version and
// verack which are buffered while a handshake is in progress.  A peer which
// sends more fails the handshake with ErrUnexpectedMessage.
const MaxPendingFrames = 64

// MaxPendingBytes is the maximum combined payload size of the frames buffered
// while a handshake is in progress.  A frame whose header would take the
// buffer past it fails the handshake with ErrUnexpectedMessage before its
// payload is read.
const MaxPendingBytes = 1 << 20

// session is the state of a single handshake.  It is owned by the goroutine
// negotiating the handshake and never shared, so it has no locking.
//
// The handshake is established once the three legs tracked by
// peerVersionReceived, localVerAckSent and peerVerAckReceived hold, in
// whatever order they completed.
type session struct {
	cfg *Config

	localNonce uint64
	peerNonce  uint64

	peerVersionReceived bool
	localVerAckSent     bool
	peerVerAckReceived  bool

	peerVersion       *wire.MsgVersion
	negotiatedVersion uint32

	pending      []*wire.Frame
	pendingBytes int
}

// frameLimit is a snapshot of what a session accepts next, taken by the
// negotiating goroutine and handed to the reader so a frame can be refused
// from its header alone.
type frameLimit struct {
	btcnet        wire.BitcoinNet
	pver          uint32
	strict        bool
	pendingFrames int
	pendingBytes  int
}

// frameLimit returns the limits for the next frame read by the session.
func (s *session) frameLimit() frameLimit {
	return frameLimit{
		btcnet:        s.cfg.ChainParams.Net,
		pver:          s.cfg.ProtocolVersion,
		strict:        s.cfg.StrictHandshake,
		pendingFrames: MaxPendingFrames - len(s.pending),
		pendingBytes:  MaxPendingBytes - s.pendingBytes,
	}
}

// check returns an error when the frame announced by hdr must not be read.
func (l frameLimit) check(hdr *wire.MessageHeader) error {
	if hdr.Magic != l.btcnet {
		str := fmt.Sprintf("%s message for network %v, expected %v",
			hdr.Command, hdr.Magic, l.btcnet)
		return handshakeError(ErrNetworkMismatch, str, nil)
	}

	var maxPayload uint32
	switch hdr.Command {
	case wire.CmdVersion:
		maxPayload = (&wire.MsgVersion{}).MaxPayloadLength(l.pver)
	case wire.CmdVerAck:
		maxPayload = (&wire.MsgVerAck{}).MaxPayloadLength(l.pver)
	default:
		return l.checkPending(hdr)
	}
	if hdr.Length > maxPayload {
		str := fmt.Sprintf("%s payload of %d bytes exceeds the max of "+
			"%d bytes", hdr.Command, hdr.Length, maxPayload)
		err := &wire.MessageError{
			Func:        "frameLimit.check",
			ErrorCode:   wire.ErrPayloadTooLarge,
			Description: str,
		}
		return handshakeError(ErrMalformedMessage,
			fmt.Sprintf("invalid %s message", hdr.Command), err)
	}
	return nil
}

// checkPending returns an error when a frame other than version and verack
// can not be buffered.
func (l frameLimit) checkPending(hdr *wire.MessageHeader) error {
	switch {
	case l.strict:
		str := fmt.Sprintf("received %s message before the handshake "+
			"completed", hdr.Command)
		return handshakeError(ErrUnexpectedMessage, str, nil)

	case l.pendingFrames <= 0:
		str := fmt.Sprintf("received more than %d messages before the "+
			"handshake completed", MaxPendingFrames)
		return handshakeError(ErrUnexpectedMessage, str, nil)

	case int64(hdr.Length) > int64(l.pendingBytes):
		str := fmt.Sprintf("received %s message of %d bytes with %d "+
			"of %d bytes left for messages sent before the "+
			"handshake completed", hdr.Command, hdr.Length,
			l.pendingBytes, MaxPendingBytes)
		return handshakeError(ErrUnexpectedMessage, str, nil)
	}
	return nil
}

// newSession returns a session for a handshake which announced localNonce.
func newSession(cfg *Config, localNonce uint64) *session {
	return &session{
		cfg:        cfg,
		localNonce: localNonce,
	}
}

// established returns whether all legs of the handshake have completed.
func (s *session) established() bool {
	return s.peerVersionReceived && s.localVerAckSent && s.peerVerAckReceived
}

// needsRead returns whether the handshake still waits on frames from the
// peer.
func (s *session) needsRead() bool {
	return !s.peerVersionReceived || !s.peerVerAckReceived
}

// handleFrame advances the session with a verified inbound frame.  The
// decoded message is returned for version and verack frames, in which case
// the caller must answer a version with a verack and then call
// verAckSent.  Nil is returned for frames which were buffered.
func (s *session) handleFrame(frame *wire.Frame) (wire.Message, error) {
	if err := s.frameLimit().check(&frame.Header); err != nil {
		return nil, err
	}

	switch frame.Command() {
	case wire.CmdVersion:
		return s.handleVersion(frame)

	case wire.CmdVerAck:
		return s.handleVerAck(frame)
	}

	s.pending = append(s.pending, frame)
	s.pendingBytes += len(frame.Payload)
	return nil, nil
}

// handleVersion decodes and validates the peer's version message.
func (s *session) handleVersion(frame *wire.Frame) (wire.Message, error) {
	if s.peerVersionReceived {
		return nil, handshakeError(ErrDuplicateVersion,
			"peer sent a second version message", nil)
	}

	msg, err := wire.DecodeMessage(frame, s.cfg.ProtocolVersion)
	if err != nil {
		return nil, handshakeError(ErrMalformedMessage,
			"invalid version message", err)
	}
	verMsg := msg.(*wire.MsgVersion)

	// Detect self connections.
	if verMsg.Nonce == s.localNonce || (s.cfg.NonceCache != nil &&
		s.cfg.NonceCache.Exists(verMsg.Nonce)) {

		str := fmt.Sprintf("peer announced our own nonce %d",
			verMsg.Nonce)
		return nil, handshakeError(ErrSelfConnection, str, nil)
	}

	// Reject peers that have a protocol version that is too old.
	if verMsg.ProtocolVersion < int32(s.cfg.MinProtocolVersion) {
		str := fmt.Sprintf("protocol version must be %d or greater, "+
			"peer announced %d", s.cfg.MinProtocolVersion,
			verMsg.ProtocolVersion)
		return nil, handshakeError(ErrObsoleteVersion, str, nil)
	}

	s.peerVersion = verMsg
	s.peerNonce = verMsg.Nonce
	s.peerVersionReceived = true

	// Negotiate the protocol version.
	s.negotiatedVersion = s.cfg.ProtocolVersion
	if uint32(verMsg.ProtocolVersion) < s.negotiatedVersion {
		s.negotiatedVersion = uint32(verMsg.ProtocolVersion)
	}
	return verMsg, nil
}

// handleVerAck records the peer's acknowledgement of our version.
func (s *session) handleVerAck(frame *wire.Frame) (wire.Message, error) {
	msg, err := wire.DecodeMessage(frame, s.cfg.ProtocolVersion)
	if err != nil {
		return nil, handshakeError(ErrMalformedMessage,
			"invalid verack message", err)
	}
	s.peerVerAckReceived = true
	return msg, nil
}

// verAckSent records that our verack for the peer's version was written.
func (s *session) verAckSent() {
	s.localVerAckSent = true
}

// result returns the outcome of an established session.
func (s *session) result() *Result {
	return &Result{
		PeerVersion:       s.peerVersion,
		NegotiatedVersion: s.negotiatedVersion,
		LocalNonce:        s.localNonce,
		Pending:           s.pending,
	}
}
