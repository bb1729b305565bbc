// Copyright (c) 2015-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer_test

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/btcsuite/lightnode/chaincfg"
	"github.com/btcsuite/lightnode/peer"
	"github.com/btcsuite/lightnode/wire"
	"github.com/stretchr/testify/require"
)

// conn wraps one end of a net.Pipe with a fake remote address.  It is used to
// test handshakes on connections without actually opening a network
// connection.
type conn struct {
	net.Conn

	// remote network, address for the connection.
	raddr net.Addr

	// mocks socks proxy if true
	proxy bool
}

// RemoteAddr returns the remote address for the connection.
func (c *conn) RemoteAddr() net.Addr {
	if !c.proxy {
		return c.raddr
	}

	host, strPort, _ := net.SplitHostPort(c.raddr.String())
	port, _ := strconv.Atoi(strPort)
	return &socks.ProxiedAddr{
		Net:  c.raddr.Network(),
		Host: host,
		Port: port,
	}
}

// pipe returns both ends of an in-memory full-duplex connection similar to
// net.Pipe, with fake addresses.
func pipe(c1, c2 *conn) (*conn, *conn) {
	p1, p2 := net.Pipe()
	c1.Conn = p1
	c2.Conn = p2
	return c1, c2
}

// testConfig returns a handshake configuration for the simulation network.
func testConfig() *peer.Config {
	return &peer.Config{
		ChainParams:      &chaincfg.SimNetParams,
		UserAgentName:    "peer",
		UserAgentVersion: "1.0",
		NegotiateTimeout: 5 * time.Second,
	}
}

// negotiateResult is the outcome of a handshake run by startNegotiate.
type negotiateResult struct {
	res *peer.Result
	err error
}

// startNegotiate runs the handshake in its own goroutine so the test
// goroutine can play the remote peer.
func startNegotiate(ctx context.Context, h *peer.Handshake) <-chan negotiateResult {
	done := make(chan negotiateResult, 1)
	go func() {
		res, err := h.Negotiate(ctx)
		done <- negotiateResult{res, err}
	}()
	return done
}

// waitNegotiate waits for the handshake started by startNegotiate.
func waitNegotiate(t *testing.T, done <-chan negotiateResult) (*peer.Result, error) {
	t.Helper()

	select {
	case r := <-done:
		return r.res, r.err
	case <-time.After(10 * time.Second):
		t.Fatal("handshake did not return")
	}
	return nil, nil
}

// remoteNode plays the remote end of a handshake.  Frames written by the
// handshake under test are read continuously, the way a TCP peer's receive
// buffer would absorb them, and delivered in order on frames.
type remoteNode struct {
	t      *testing.T
	conn   net.Conn
	btcnet wire.BitcoinNet
	frames chan *wire.Frame
}

// newRemoteNode starts reading frames from c.
func newRemoteNode(t *testing.T, c net.Conn, btcnet wire.BitcoinNet) *remoteNode {
	r := &remoteNode{
		t:      t,
		conn:   c,
		btcnet: btcnet,
		frames: make(chan *wire.Frame, 16),
	}
	go func() {
		defer close(r.frames)
		for {
			_, frame, err := wire.ReadFrameN(c)
			if err != nil {
				return
			}
			r.frames <- frame
		}
	}()
	return r
}

// expect returns the next frame written by the handshake and checks its
// command.
func (r *remoteNode) expect(cmd string) *wire.Frame {
	r.t.Helper()

	select {
	case frame, ok := <-r.frames:
		require.True(r.t, ok, "connection closed waiting for %s", cmd)
		require.Equal(r.t, cmd, frame.Command())
		return frame
	case <-time.After(5 * time.Second):
		r.t.Fatalf("timeout waiting for %s", cmd)
	}
	return nil
}

// expectVersion returns the next frame decoded as a version message.
func (r *remoteNode) expectVersion() *wire.MsgVersion {
	r.t.Helper()

	frame := r.expect(wire.CmdVersion)
	msg, err := wire.DecodeMessage(frame, wire.ProtocolVersion)
	require.NoError(r.t, err)
	return msg.(*wire.MsgVersion)
}

// expectClosed waits for the handshake under test to close the connection.
func (r *remoteNode) expectClosed() {
	r.t.Helper()

	for {
		select {
		case _, ok := <-r.frames:
			if !ok {
				return
			}
		case <-time.After(5 * time.Second):
			r.t.Fatal("connection was not closed")
		}
	}
}

// send frames and writes msg.
func (r *remoteNode) send(msg wire.Message) {
	r.t.Helper()

	b, err := wire.EncodeMessage(msg, wire.ProtocolVersion, r.btcnet)
	require.NoError(r.t, err)
	r.write(b)
}

// sendRaw writes a frame with an arbitrary command and payload.
func (r *remoteNode) sendRaw(cmd string, payload []byte) {
	r.t.Helper()

	b, err := wire.BuildMessage(r.btcnet, cmd, payload)
	require.NoError(r.t, err)
	r.write(b)
}

// sendHeader writes only a message header announcing length payload bytes.
func (r *remoteNode) sendHeader(cmd string, length uint32) {
	r.t.Helper()

	hdr := wire.MessageHeader{
		Magic:   r.btcnet,
		Command: cmd,
		Length:  length,
	}
	r.write(hdr.Bytes())
}

// write writes b to the connection.  The handshake under test may refuse a
// frame from its header and close the connection mid-write, in which case the
// rest is dropped the way a TCP send buffer would absorb it.
func (r *remoteNode) write(b []byte) {
	r.t.Helper()

	_, err := r.conn.Write(b)
	if errors.Is(err, io.ErrClosedPipe) {
		return
	}
	require.NoError(r.t, err)
}

// remoteVersion returns a version message announced by the remote node.
func remoteVersion(nonce uint64) *wire.MsgVersion {
	me := wire.NewNetAddressIPPort(net.ParseIP("10.0.0.2"), 18555, 0)
	you := wire.NewNetAddressIPPort(net.ParseIP("10.0.0.1"), 18555, 0)
	msg := wire.NewMsgVersion(me, you, nonce, 100)
	msg.Services = wire.SFNodeNetwork
	return msg
}

// requireCode checks err is a *peer.HandshakeError with the given code.
func requireCode(t *testing.T, err error, code peer.ErrorCode) {
	t.Helper()

	require.Error(t, err)
	require.ErrorIs(t, err, code)

	var hsErr *peer.HandshakeError
	require.ErrorAs(t, err, &hsErr)
	require.Equal(t, code, hsErr.Code)
}

// fixedReader always returns the same bytes.  Handshakes reading their nonce
// from the same fixedReader announce the same nonce.
type fixedReader []byte

func (r fixedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r[i%len(r)]
	}
	return len(p), nil
}
