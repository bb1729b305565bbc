// Copyright (c) 2015-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer_test

import (
	"context"
	"fmt"
	"net"

	"github.com/btcsuite/lightnode/chaincfg"
	"github.com/btcsuite/lightnode/peer"
	"github.com/btcsuite/lightnode/wire"
)

// This example demonstrates the basic process for negotiating a handshake.
// Two handshakes configured as simnet nodes that offer no services run
// against each other over an in-memory connection.  A version listener is
// attached to one of them.
func ExampleHandshake_Negotiate() {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	remoteCfg := &peer.Config{
		UserAgentName:    "remote", // User agent name to advertise.
		UserAgentVersion: "1.0.0",  // User agent version to advertise.
		ChainParams:      &chaincfg.SimNetParams,
		Inbound:          true,
	}
	go peer.NewHandshake(remoteCfg, remote, nil).Negotiate(
		context.Background())

	localCfg := &peer.Config{
		UserAgentName:    "peer",  // User agent name to advertise.
		UserAgentVersion: "1.0.0", // User agent version to advertise.
		ChainParams:      &chaincfg.SimNetParams,
		Services:         0,
		Listeners: peer.MessageListeners{
			OnVersion: func(h *peer.Handshake, msg *wire.MsgVersion) {
				fmt.Println("outbound: received version")
			},
		},
	}
	h := peer.NewHandshake(localCfg, local, nil)
	res, err := h.Negotiate(context.Background())
	if err != nil {
		fmt.Printf("Negotiate: error %v\n", err)
		return
	}
	fmt.Println("peer user agent:", res.PeerVersion.UserAgent)
	fmt.Println("state:", h.State())

	// Output:
	// outbound: received version
	// peer user agent: /lnwire:0.1.0/remote:1.0.0/
	// state: StateEstablished
}
