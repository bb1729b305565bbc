// Copyright (c) 2016-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/btcsuite/go-socks/socks"
)

// DefaultDialTimeout is the time a connection attempt may take when the
// Dialer does not specify one.
const DefaultDialTimeout = 10 * time.Second

// Dialer opens the TCP connections handshakes are negotiated over, either
// directly or through a SOCKS5 proxy such as Tor.
type Dialer struct {
	// Proxy is the host:port of a SOCKS5 proxy to connect through.  Direct
	// connections are made when it is empty.
	Proxy string

	// ProxyUser and ProxyPass authenticate to the proxy.
	ProxyUser string
	ProxyPass string

	// TorIsolation makes every connection use fresh random proxy
	// credentials, which Tor uses to isolate circuits.
	TorIsolation bool

	// Timeout bounds each connection attempt.  DefaultDialTimeout is used
	// when it is zero.
	Timeout time.Duration
}

// timeout returns the time left for a connection attempt started now, taking
// the deadline of ctx into account.
func (d *Dialer) timeout(ctx context.Context) (time.Duration, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}
	return timeout, nil
}

// Dial connects to addr over TCP.  Connections made through the proxy report
// a *socks.ProxiedAddr as their remote address.
func (d *Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout, err := d.timeout(ctx)
	if err != nil {
		return nil, err
	}

	if d.Proxy == "" {
		log.Debugf("Connecting to %s", addr)
		dialer := net.Dialer{Timeout: timeout}
		return dialer.DialContext(ctx, "tcp", addr)
	}

	if d.TorIsolation && (d.ProxyUser != "" || d.ProxyPass != "") {
		return nil, errors.New("tor isolation requires the proxy " +
			"credentials to be left empty")
	}
	proxy := &socks.Proxy{
		Addr:         d.Proxy,
		Username:     d.ProxyUser,
		Password:     d.ProxyPass,
		TorIsolation: d.TorIsolation,
	}
	log.Debugf("Connecting to %s via proxy %s", addr, d.Proxy)

	// The proxy dialer does not take a context, so the attempt is
	// abandoned rather than interrupted when ctx is done first.
	type dialResult struct {
		conn net.Conn
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		conn, err := proxy.DialTimeout("tcp", addr, timeout)
		done <- dialResult{conn, err}
	}()
	select {
	case r := <-done:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
