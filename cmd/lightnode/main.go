// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/lightnode/connmgr"
	"github.com/btcsuite/lightnode/internal/log"
	"github.com/btcsuite/lightnode/internal/version"
	"github.com/btcsuite/lightnode/peer"
	"github.com/btcsuite/lightnode/wire"
)

// lnodLog is the logger of the main package.
var lnodLog = log.LnodLog

// errNoPeers is returned when DNS seeding yields no peer to connect to.
var errNoPeers = errors.New("no reachable peers found through DNS seeding")

// lightnodeMain is the real main function for lightnode.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func lightnodeMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version.String())
		return nil
	}

	err = log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	if err != nil {
		return err
	}
	defer log.LogRotator.Close()

	lnodLog.Infof("Version %s", version.String())
	lnodLog.Infof("Active network: %s", activeNetParams.Name)

	ctx, cancel := withInterrupt(context.Background())
	defer cancel()

	dialer := &connmgr.Dialer{
		Proxy:        cfg.Proxy,
		ProxyUser:    cfg.ProxyUser,
		ProxyPass:    cfg.ProxyPass,
		TorIsolation: cfg.TorIsolation,
		Timeout:      cfg.DialTimeout,
	}

	conn, err := connect(ctx, cfg, dialer)
	if err != nil {
		lnodLog.Errorf("Unable to connect: %v", err)
		return err
	}

	h, err := peer.NewHandshakeFromConn(newPeerConfig(cfg, dialer), conn)
	if err != nil {
		conn.Close()
		lnodLog.Errorf("Unable to start handshake: %v", err)
		return err
	}

	result, err := h.Negotiate(ctx)
	if err != nil {
		lnodLog.Errorf("Handshake with %s failed: %v", h, err)
		var herr *peer.HandshakeError
		if errors.As(err, &herr) && herr.Code.Retryable() {
			lnodLog.Infof("The failure is transient, the peer may " +
				"be retried")
		}
		return err
	}
	defer conn.Close()

	pv := result.PeerVersion
	lnodLog.Infof("Handshake with %s established: agent %s, protocol %d, "+
		"services %v, height %d, relay %v", h, pv.UserAgent,
		result.NegotiatedVersion, pv.Services, pv.StartHeight,
		!pv.DisableRelayTx)
	if n := len(result.Pending); n > 0 {
		lnodLog.Infof("Peer sent %d %s ahead of the handshake", n,
			log.PickNoun(uint64(n), "message", "messages"))
		for _, frame := range result.Pending {
			lnodLog.Debugf("Pending %s message (%d bytes)",
				frame.Command(), len(frame.Payload))
		}
	}

	return nil
}

// newPeerConfig returns the handshake configuration for the options in cfg.
func newPeerConfig(cfg *config, dialer *connmgr.Dialer) *peer.Config {
	var localAddr peer.LocalAddrFunc
	switch {
	case cfg.ExternalIP != "":
		localAddr = connmgr.StaticIP(net.ParseIP(cfg.ExternalIP))
	case !cfg.NoLookup:
		resolver := &connmgr.PublicIPResolver{
			URL:    cfg.LookupURL,
			Dialer: dialer,
		}
		localAddr = resolver.LocalAddr
	}

	return &peer.Config{
		ChainParams:       activeNetParams,
		UserAgentName:     "lightnode",
		UserAgentVersion:  version.UserAgent(),
		UserAgentComments: cfg.UserAgentComments,
		NegotiateTimeout:  cfg.NegotiateTimeout,
		LocalAddr:         localAddr,
		NonceCache:        peer.NewNonceCache(peer.DefaultNonceCacheSize),
		StrictHandshake:   cfg.StrictHandshake,
		Proxy:             cfg.Proxy,
		Inbound:           cfg.Listen != "",
		Listeners: peer.MessageListeners{
			OnVersion: func(h *peer.Handshake, msg *wire.MsgVersion) {
				lnodLog.Debugf("Peer %s announced %v", h, msg.AddrFrom)
			},
			OnWrite: func(h *peer.Handshake, n int, msg wire.Message,
				buf []byte, err error) {

				if err != nil {
					return
				}
				lnodLog.Debugf("Sent %s to %s: %x", msg.Command(), h,
					buf)
			},
		},
	}
}

// connect returns the connection to handshake over: an accepted one when
// listening, the configured peer, or else the first peer found through DNS
// seeding that accepts a connection.
func connect(ctx context.Context, cfg *config,
	dialer *connmgr.Dialer) (net.Conn, error) {

	switch {
	case cfg.Listen != "":
		return accept(ctx, cfg.Listen)
	case cfg.ConnectPeer != "":
		return dialer.Dial(ctx, cfg.ConnectPeer)
	}
	return dialSeeded(ctx, cfg, dialer)
}

// accept waits for a single inbound connection on addr.
func accept(ctx context.Context, addr string) (net.Conn, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	lnodLog.Infof("Waiting for a peer on %s", l.Addr())

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	conn, err := l.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return conn, nil
}

// dialSeeded queries the DNS seeds of the active network and dials the
// addresses they return until a connection succeeds.
func dialSeeded(ctx context.Context, cfg *config,
	dialer *connmgr.Dialer) (net.Conn, error) {

	numSeeds := len(activeNetParams.DNSSeeds)
	if numSeeds == 0 {
		return nil, fmt.Errorf("network %s has no DNS seeds, use "+
			"--connect", activeNetParams.Name)
	}

	// Every seed reports at most once, so the callbacks never block.
	seeded := make(chan []*wire.NetAddress, numSeeds)
	connmgr.SeedFromDNS(activeNetParams, wire.SFNodeNetwork,
		connmgr.Lookup(cfg.Proxy), func(addrs []*wire.NetAddress) {
			seeded <- addrs
		})

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout*
		time.Duration(numSeeds))
	defer cancel()

	for {
		var addrs []*wire.NetAddress
		select {
		case addrs = <-seeded:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errNoPeers
			}
			return nil, ctx.Err()
		}

		for _, na := range addrs {
			addr := net.JoinHostPort(na.IP.String(),
				fmt.Sprint(na.Port))
			conn, err := dialer.Dial(ctx, addr)
			if err != nil {
				lnodLog.Debugf("Unable to connect to %s: %v",
					addr, err)
				if ctx.Err() != nil {
					break
				}
				continue
			}
			return conn, nil
		}
	}
}

func main() {
	if err := lightnodeMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
