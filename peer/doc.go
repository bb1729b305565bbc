// Copyright (c) 2015-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package peer negotiates the version handshake which promotes a raw connection
to a bitcoin peer into one other messages can be exchanged over.

Both ends of a connection run the same exchange.  Each side writes a version
message announcing its protocol version, services, addresses and a random
nonce without waiting for the other, answers the peer's version with a verack,
and considers the handshake established once it holds the peer's version and
verack in whatever order they arrived.  The negotiated protocol version is the
lower of the two announced ones.

A Handshake fails, closing its transport, when the peer sends a malformed
frame, a frame for another network, its own nonce back, an obsolete protocol
version or a second version, when the transport fails, when the negotiation
timeout expires or when the caller's context is done.  Every failure is a
*HandshakeError whose ErrorCode can be matched with errors.Is.

Messages other than version and verack that arrive before the handshake is
established are buffered and handed over in the Result, unless the Config asks
for a strict handshake.

Listeners can be configured in the Config to observe the exchange, for
instance to log the bytes written.
*/
package peer
