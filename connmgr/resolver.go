// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/btcsuite/go-socks/socks"
)

const (
	// DefaultLookupURL is the service queried for the public address of
	// the local host when no other is configured.  It answers with the
	// bare address of the client.
	DefaultLookupURL = "https://api.ipify.org"

	// maxLookupResponse limits how much of the lookup service response is
	// read.  An address takes at most 45 characters.
	maxLookupResponse = 64
)

// PublicIPResolver looks up the externally reachable address of the local
// host from a web service which responds with the bare address of the client,
// one per request.
type PublicIPResolver struct {
	// URL is the lookup service.  DefaultLookupURL is used when it is
	// empty.
	URL string

	// Client performs the requests.  When it is nil a client is created
	// which connects through Dialer.
	Client *http.Client

	// Dialer is used for the connections of the default client, so the
	// lookup goes through the same proxy as the peer connections.
	Dialer *Dialer
}

// client returns the HTTP client used for lookups.
func (r *PublicIPResolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	if r.Dialer == nil || r.Dialer.Proxy == "" {
		return http.DefaultClient
	}

	proxy := &socks.Proxy{
		Addr:         r.Dialer.Proxy,
		Username:     r.Dialer.ProxyUser,
		Password:     r.Dialer.ProxyPass,
		TorIsolation: r.Dialer.TorIsolation,
	}
	return &http.Client{
		Transport: &http.Transport{Dial: proxy.Dial},
	}
}

// LocalAddr queries the lookup service and returns the address it reports.
// It has the signature of peer.LocalAddrFunc.
func (r *PublicIPResolver) LocalAddr(ctx context.Context) (net.IP, error) {
	url := r.URL
	if url == "" {
		url = DefaultLookupURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address lookup at %s failed: %s", url,
			resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupResponse))
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(string(bytes.TrimSpace(body)))
	if ip == nil {
		return nil, fmt.Errorf("address lookup at %s returned %q, "+
			"which is not an IP address", url, body)
	}

	log.Debugf("Address lookup at %s reports %v", url, ip)
	return ip, nil
}

// StaticIP returns a function with the signature of peer.LocalAddrFunc which
// always reports ip.
func StaticIP(ip net.IP) func(context.Context) (net.IP, error) {
	return func(context.Context) (net.IP, error) {
		return ip, nil
	}
}
