// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"errors"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/lightnode/chaincfg"
	"github.com/btcsuite/lightnode/wire"
	"github.com/stretchr/testify/require"
)

// TestSeedFromDNS tests the host names queried and the addresses reported by
// DNS seeding.
func TestSeedFromDNS(t *testing.T) {
	t.Parallel()

	params := &chaincfg.Params{
		Name:        "seedtest",
		Net:         wire.SimNet,
		DefaultPort: "18555",
		DNSSeeds: []chaincfg.DNSSeed{
			{Host: "seed.example.org", HasFiltering: true},
			{Host: "plain.example.org", HasFiltering: false},
			{Host: "broken.example.org", HasFiltering: false},
		},
	}

	var mtx sync.Mutex
	var hosts []string
	lookup := func(host string) ([]net.IP, error) {
		mtx.Lock()
		hosts = append(hosts, host)
		mtx.Unlock()

		switch host {
		case "broken.example.org":
			return nil, errors.New("no such host")
		case "plain.example.org":
			return []net.IP{net.ParseIP("10.0.0.3")}, nil
		}
		return []net.IP{
			net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"),
		}, nil
	}

	seeded := make(chan []*wire.NetAddress, 3)
	services := wire.SFNodeNetwork | wire.SFNodeWitness
	SeedFromDNS(params, services, lookup, func(addrs []*wire.NetAddress) {
		seeded <- addrs
	})

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case addrs := <-seeded:
			for _, na := range addrs {
				require.Equal(t, uint16(18555), na.Port)
				require.Equal(t, services, na.Services)
				got = append(got, na.IP.String())
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for seeds")
		}
	}
	sort.Strings(got)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, got)

	// The failing seed never reports.
	select {
	case addrs := <-seeded:
		t.Fatalf("unexpected seed result %v", addrs)
	case <-time.After(50 * time.Millisecond):
	}

	mtx.Lock()
	defer mtx.Unlock()
	sort.Strings(hosts)
	require.Equal(t, []string{
		"broken.example.org",
		"plain.example.org",
		"x9.seed.example.org",
	}, hosts)
}

// TestLookup ensures names are only resolved through Tor when a proxy is
// configured.
func TestLookup(t *testing.T) {
	t.Parallel()

	addr := fakeTorResolver(t, []byte{5, 0, 0, 1, 10, 20, 30, 40})
	ips, err := Lookup(addr)("seed.example.org")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	require.Equal(t, "10.20.30.40", ips[0].String())

	ips, err = Lookup("")("localhost")
	require.NoError(t, err)
	require.NotEmpty(t, ips)
}
