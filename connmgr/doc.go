// Copyright (c) 2016-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package connmgr provides the network plumbing around a bitcoin handshake.

Dialer opens TCP connections to peers, directly or through a SOCKS5 proxy with
optional Tor stream isolation.  PublicIPResolver and StaticIP supply the
externally reachable address announced in version messages.  SeedFromDNS finds
peers to connect to from the DNS seeds of a network, resolving them through Tor
when a proxy is in use.
*/
package connmgr
