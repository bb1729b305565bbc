// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"fmt"
	mrand "math/rand"
	"net"
	"time"

	"github.com/btcsuite/lightnode/chaincfg"
	"github.com/btcsuite/lightnode/wire"
)

// OnSeed is the signature of the callback function which is invoked when DNS
// seeding is successful.
type OnSeed func(addrs []*wire.NetAddress)

// LookupFunc is the signature of the DNS lookup function.
type LookupFunc func(string) ([]net.IP, error)

// Lookup returns the DNS lookup function to use with the given proxy.  Names
// are resolved through Tor when a proxy is set so lookups do not leak outside
// of it.
func Lookup(proxy string) LookupFunc {
	if proxy == "" {
		return net.LookupIP
	}
	return func(host string) ([]net.IP, error) {
		return TorLookupIP(host, proxy)
	}
}

// SeedFromDNS uses DNS seeding to discover peers of the passed network.  Each
// seed is queried in its own goroutine and seedFn is invoked once per seed
// which returned addresses, in random order.  Seeds which support filtering
// are asked for peers offering reqServices.
func SeedFromDNS(chainParams *chaincfg.Params, reqServices wire.ServiceFlag,
	lookupFn LookupFunc, seedFn OnSeed) {

	for _, dnsseed := range chainParams.DNSSeeds {
		var host string
		if !dnsseed.HasFiltering || reqServices == wire.SFNodeNetwork {
			host = dnsseed.Host
		} else {
			host = fmt.Sprintf("x%x.%s", uint64(reqServices), dnsseed.Host)
		}

		go func(host string) {
			randSource := mrand.New(mrand.NewSource(time.Now().UnixNano()))

			seedpeers, err := lookupFn(host)
			if err != nil {
				log.Infof("DNS discovery failed on seed %s: %v", host, err)
				return
			}
			numPeers := len(seedpeers)

			log.Infof("%d addresses found from DNS seed %s", numPeers, host)

			if numPeers == 0 {
				return
			}
			addresses := make([]*wire.NetAddress, len(seedpeers))
			for i, peer := range seedpeers {
				addresses[i] = wire.NewNetAddressIPPort(peer,
					chainParams.Port(), reqServices)
			}
			randSource.Shuffle(len(addresses), func(i, j int) {
				addresses[i], addresses[j] = addresses[j], addresses[i]
			})

			seedFn(addresses)
		}(host)
	}
}
