// Copyright (c) 2013-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
)

// NetAddressSize is the number of bytes in a serialized NetAddress as it
// appears in the version message: services 8 bytes + ip 16 bytes + port 2
// bytes.
const NetAddressSize = 26

// ErrInvalidNetAddr describes an error that indicates the caller didn't specify
// a TCP address as required.
var ErrInvalidNetAddr = errors.New("provided net.Addr is not a net.TCPAddr")

// NetAddress defines information about a peer on the network including the
// services it supports, its IP address, and port.
type NetAddress struct {
	// Bitfield which identifies the services supported by the address.
	Services ServiceFlag

	// IP address of the peer.  IPv4 addresses are carried as IPv4-mapped
	// IPv6 addresses on the wire.
	IP net.IP

	// Port the peer is using.  This is encoded in big endian on the wire
	// which differs from most everything else.
	Port uint16
}

// HasService returns whether the specified service is supported by the address.
func (na *NetAddress) HasService(service ServiceFlag) bool {
	return na.Services&service == service
}

// AddService adds service as a supported service by the peer generating the
// message.
func (na *NetAddress) AddService(service ServiceFlag) {
	na.Services |= service
}

// String returns the address in host:port form.
func (na *NetAddress) String() string {
	return net.JoinHostPort(na.IP.String(), fmt.Sprint(na.Port))
}

// NewNetAddressIPPort returns a new NetAddress using the provided IP, port, and
// supported services.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return &NetAddress{
		Services: services,
		IP:       ip,
		Port:     port,
	}
}

// NewNetAddress returns a new NetAddress using the provided TCP address and
// supported services.
//
// Note that addr must be a net.TCPAddr.  An ErrInvalidNetAddr is returned
// if it is not.
func NewNetAddress(addr net.Addr, services ServiceFlag) (*NetAddress, error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, ErrInvalidNetAddr
	}

	na := NewNetAddressIPPort(tcpAddr.IP, uint16(tcpAddr.Port), services)
	return na, nil
}

// ReadNetAddress reads an encoded NetAddress from r.  Running out of input
// before all 26 bytes are read is reported as ErrMalformedAddress.
func ReadNetAddress(r io.Reader, na *NetAddress) error {
	var services ServiceFlag
	var ip [16]byte
	var port [2]byte

	err := readElements(r, &services, &ip)
	if err == nil {
		_, err = io.ReadFull(r, port[:])
	}
	if err != nil {
		if isTruncation(err) {
			str := fmt.Sprintf("network address requires %d bytes",
				NetAddressSize)
			return messageError("ReadNetAddress", ErrMalformedAddress,
				str)
		}
		return err
	}

	*na = NetAddress{
		Services: services,
		IP:       net.IP(ip[:]),
		// Sigh.  Bitcoin protocol mixes little and big endian.
		Port: bigEndian.Uint16(port[:]),
	}
	return nil
}

// WriteNetAddress serializes a NetAddress to w.
func WriteNetAddress(w io.Writer, na *NetAddress) error {
	// Ensure to always write 16 bytes even if the ip is nil.
	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	err := writeElements(w, na.Services, ip)
	if err != nil {
		return err
	}

	// Sigh.  Bitcoin protocol mixes little and big endian.
	var port [2]byte
	bigEndian.PutUint16(port[:], na.Port)
	_, err = w.Write(port[:])
	return err
}

// SerializeNetAddress returns the 26 byte wire encoding of na.
func SerializeNetAddress(na *NetAddress) []byte {
	w := bytes.NewBuffer(make([]byte, 0, NetAddressSize))

	// Writes to a bytes.Buffer never fail.
	_ = WriteNetAddress(w, na)
	return w.Bytes()
}

// DeserializeNetAddress decodes the first 26 bytes of b into a NetAddress.
// ErrMalformedAddress is returned when b is too short.
func DeserializeNetAddress(b []byte) (*NetAddress, error) {
	var na NetAddress
	if err := ReadNetAddress(bytes.NewReader(b), &na); err != nil {
		return nil, err
	}
	return &na, nil
}
