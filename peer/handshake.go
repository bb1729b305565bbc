// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2016-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/btcsuite/lightnode/chaincfg"
	"github.com/btcsuite/lightnode/wire"
	"github.com/davecgh/go-spew/spew"
)

const (
	// MaxProtocolVersion is the max protocol version the peer supports.
	MaxProtocolVersion = wire.ProtocolVersion

	// DefaultNegotiateTimeout is the duration a handshake may take before
	// it fails with ErrHandshakeTimeout when the Config does not specify
	// one.
	DefaultNegotiateTimeout = 30 * time.Second
)

// ErrAlreadyStarted is returned by Negotiate when it is called more than once
// for the same Handshake.
var ErrAlreadyStarted = errors.New("handshake already started")

// Transport is the duplex byte stream a handshake is negotiated over.  Close
// must unblock any pending Read or Write, which is the case for net.Conn.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// LocalAddrFunc returns the externally reachable IP address of the local
// host.  It is used to fill in the sending address of the version message.
type LocalAddrFunc func(ctx context.Context) (net.IP, error)

// MessageListeners defines callback function pointers to invoke during a
// handshake.  Any listener which is not set to a concrete callback is ignored.
// Listeners are invoked serially by the goroutine negotiating the handshake,
// so one callback blocks the execution of the next and of the handshake
// itself.
type MessageListeners struct {
	// OnVersion is invoked when the peer's version message passed
	// validation.
	OnVersion func(h *Handshake, msg *wire.MsgVersion)

	// OnVerAck is invoked when the peer's verack message is received.
	OnVerAck func(h *Handshake, msg *wire.MsgVerAck)

	// OnRead is invoked when a frame is read from the transport, or
	// reading one failed.  The frame is nil when err is set.
	OnRead func(h *Handshake, bytesRead int, frame *wire.Frame, err error)

	// OnWrite is invoked when a message is written to the transport.
	// buf holds the framed bytes that were written.
	OnWrite func(h *Handshake, bytesWritten int, msg wire.Message,
		buf []byte, err error)
}

// Config is the struct to hold configuration options useful to Handshake.
type Config struct {
	// ChainParams identifies which chain parameters the handshake is
	// associated with.  Frames carrying the magic of any other network are
	// rejected.  This field can be omitted in which case the test network
	// will be used.
	ChainParams *chaincfg.Params

	// ProtocolVersion specifies the maximum protocol version to use and
	// advertise.  This field can be omitted in which case
	// MaxProtocolVersion will be used.
	ProtocolVersion uint32

	// MinProtocolVersion is the oldest protocol version a peer may
	// announce.  This field can be omitted in which case
	// wire.MultipleAddressVersion will be used.
	MinProtocolVersion uint32

	// Services specifies which services to advertise as supported by the
	// local peer.
	Services wire.ServiceFlag

	// UserAgentName specifies the user agent name to advertise.  It is
	// highly recommended to specify this value.
	UserAgentName string

	// UserAgentVersion specifies the user agent version to advertise.  It
	// is highly recommended to specify this value and that it follows the
	// form "major.minor.revision" e.g. "2.6.41".
	UserAgentVersion string

	// UserAgentComments specify the user agent comments to advertise.
	// These values must not contain the illegal characters specified in
	// BIP 14: '/', ':', '(', ')'.
	UserAgentComments []string

	// StartHeight is the height of the best block known to the local
	// peer.
	StartHeight int32

	// DisableRelayTx specifies if the remote peer should be informed to
	// not send inv messages for transactions.
	DisableRelayTx bool

	// NegotiateTimeout bounds the time from Negotiate being called until
	// the handshake is established.  This field can be omitted in which
	// case DefaultNegotiateTimeout will be used.
	NegotiateTimeout time.Duration

	// Rand is the source of the nonce announced in the version message.
	// This field can be omitted in which case crypto/rand is used.
	Rand io.Reader

	// LocalAddr resolves the address announced as ours in the version
	// message.  When it is nil or fails the unspecified address is
	// announced instead.
	LocalAddr LocalAddrFunc

	// NonceCache, when set, records the nonce of every version message
	// sent and rejects peers announcing any nonce it holds.  Share one
	// cache between the handshakes of a process to detect connections to
	// itself across them.
	NonceCache *NonceCache

	// StrictHandshake fails the handshake with ErrUnexpectedMessage when
	// the peer sends anything other than version and verack before it is
	// established.  Otherwise such frames are handed to the caller in
	// Result.Pending.
	StrictHandshake bool

	// Proxy indicates a proxy is being used for connections.  The only
	// effect this has is to prevent leaking the proxy address in the
	// version message, so it only needs to be specified if using a
	// proxy.
	Proxy string

	// Inbound marks handshakes on connections accepted from the peer.
	// The exchange is identical in both directions, it only affects
	// logging.
	Inbound bool

	// Listeners houses callback functions to be invoked during the
	// handshake.
	Listeners MessageListeners
}

// State is the progress of a handshake.
type State int32

const (
	// StateInit is the state of a handshake which has not written its
	// version message yet.
	StateInit State = iota

	// StateVersionSent is the state of a handshake which wrote its version
	// message and waits for the peer.
	StateVersionSent

	// StateEstablished is the state of a handshake which completed.  The
	// transport belongs to the caller from here on.
	StateEstablished

	// StateFailed is the state of a handshake which failed.  The transport
	// has been closed.
	StateFailed
)

// Map of State values back to their constant names for pretty printing.
var stateStrings = map[State]string{
	StateInit:        "StateInit",
	StateVersionSent: "StateVersionSent",
	StateEstablished: "StateEstablished",
	StateFailed:      "StateFailed",
}

// String returns the State in human-readable form.
func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown State (%d)", int32(s))
}

// Result is the outcome of an established handshake.
type Result struct {
	// PeerVersion is the version message the peer announced.
	PeerVersion *wire.MsgVersion

	// NegotiatedVersion is the lower of the local and the peer's protocol
	// versions.
	NegotiatedVersion uint32

	// LocalNonce is the nonce announced in our version message.
	LocalNonce uint64

	// Pending holds, in arrival order, the frames other than version and
	// verack the peer sent before the handshake completed.
	Pending []*wire.Frame
}

// readResult is a frame read by readHandler, or the error that stopped it.
type readResult struct {
	n     int
	frame *wire.Frame
	err   error
}

// Handshake negotiates the version/verack exchange that must complete before
// any other message is exchanged with a bitcoin peer.  Both sides of a
// connection run the same exchange: each writes its version without waiting,
// acknowledges the peer's version with a verack, and is established once it
// has the peer's version and verack.
//
// A Handshake is used for a single negotiation.
type Handshake struct {
	// The following variables must only be used atomically.
	state   int32
	started int32

	cfg       Config
	transport Transport
	na        *wire.NetAddress
	addr      string

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// String returns the peer's address and directionality as a human-readable
// string.
//
// This function is safe for concurrent access.
func (h *Handshake) String() string {
	return fmt.Sprintf("%s (%s)", h.addr, directionString(h.cfg.Inbound))
}

// State returns the current state of the handshake.
//
// This function is safe for concurrent access.
func (h *Handshake) State() State {
	return State(atomic.LoadInt32(&h.state))
}

// setState updates the state of the handshake.
func (h *Handshake) setState(s State) {
	atomic.StoreInt32(&h.state, int32(s))
}

// NA returns the peer network address.
//
// This function is safe for concurrent access.
func (h *Handshake) NA() *wire.NetAddress {
	return h.na
}

// Negotiate runs the handshake and blocks until it is established or has
// failed.  On success the transport is left open for the caller, along with
// any frames the peer sent early in Result.Pending.  On failure the transport
// is closed and the returned error is a *HandshakeError.
//
// The handshake fails with ErrHandshakeTimeout when it is not established
// within the configured timeout or ctx's deadline, and with
// ErrHandshakeCancelled when ctx is cancelled.  Cancelling ctx once
// Negotiate returned has no effect.
func (h *Handshake) Negotiate(ctx context.Context) (*Result, error) {
	if !atomic.CompareAndSwapInt32(&h.started, 0, 1) {
		return nil, ErrAlreadyStarted
	}

	type negotiateResult struct {
		res *Result
		err error
	}
	negotiateCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan negotiateResult, 1)
	go func() {
		res, err := h.negotiate(negotiateCtx)
		done <- negotiateResult{res, err}
	}()

	timer := time.NewTimer(h.cfg.NegotiateTimeout)
	defer timer.Stop()

	var hsErr *HandshakeError
	select {
	case r := <-done:
		if r.err != nil {
			h.fail()
			h.wg.Wait()
			log.Debugf("Handshake with %s failed: %v", h, r.err)
			return nil, r.err
		}
		h.setState(StateEstablished)
		h.wg.Wait()
		log.Debugf("Handshake with %s established, protocol version %d",
			h, r.res.NegotiatedVersion)
		return r.res, nil

	case <-timer.C:
		str := fmt.Sprintf("handshake not established within %v",
			h.cfg.NegotiateTimeout)
		hsErr = handshakeError(ErrHandshakeTimeout, str, nil)

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			hsErr = handshakeError(ErrHandshakeTimeout,
				"handshake deadline exceeded", ctx.Err())
		} else {
			hsErr = handshakeError(ErrHandshakeCancelled,
				"handshake cancelled", ctx.Err())
		}
	}

	// Closing the transport unblocks any pending read or write so the
	// negotiating goroutine returns before its session is discarded.
	cancel()
	h.fail()
	<-done
	h.wg.Wait()
	log.Debugf("Handshake with %s failed: %v", h, hsErr)
	return nil, hsErr
}

// fail marks the handshake failed and closes the transport.
func (h *Handshake) fail() {
	h.setState(StateFailed)
	h.closeOnce.Do(func() {
		if err := h.transport.Close(); err != nil {
			log.Tracef("Closing transport to %s: %v", h, err)
		}
	})
}

// negotiate performs the version/verack exchange over the transport.  It owns
// the handshake session for its whole lifetime.
func (h *Handshake) negotiate(ctx context.Context) (*Result, error) {
	// Generate a unique nonce for this handshake so self connections can
	// be detected.
	nonce, err := wire.RandomUint64From(h.cfg.Rand)
	if err != nil {
		return nil, handshakeError(ErrTransport,
			"unable to generate nonce", err)
	}
	if h.cfg.NonceCache != nil {
		h.cfg.NonceCache.Add(nonce)
	}
	s := newSession(&h.cfg, nonce)

	verMsg, err := h.localMsgVersion(ctx, nonce)
	if err != nil {
		return nil, handshakeError(ErrMalformedMessage,
			"unable to build version message", err)
	}

	// Frames are read by a separate goroutine, one per request, so the
	// peer is never blocked writing while we write.  Every request carries
	// the limits the next header is checked against.
	reqs := make(chan frameLimit, 1)
	results := make(chan readResult, 1)
	h.wg.Add(1)
	go h.readHandler(reqs, results)
	defer close(reqs)

	reqs <- s.frameLimit()
	if err := h.writeMessage(verMsg); err != nil {
		return nil, ioError("unable to send version message", err)
	}
	h.setState(StateVersionSent)

	for s.needsRead() {
		r := <-results
		if h.cfg.Listeners.OnRead != nil {
			h.cfg.Listeners.OnRead(h, r.n, r.frame, r.err)
		}
		if r.err != nil {
			return nil, ioError("unable to read message", r.err)
		}
		h.logFrame(r.frame)

		msg, err := s.handleFrame(r.frame)
		if err != nil {
			return nil, err
		}
		if s.needsRead() {
			reqs <- s.frameLimit()
		}

		switch msg := msg.(type) {
		case *wire.MsgVersion:
			log.Debugf("%v", newLogClosure(func() string {
				return fmt.Sprintf("Received %v (%s) from %s",
					msg.Command(), messageSummary(msg), h)
			}))
			if h.cfg.Listeners.OnVersion != nil {
				h.cfg.Listeners.OnVersion(h, msg)
			}

			err := h.writeMessage(wire.NewMsgVerAck())
			if err != nil {
				return nil, ioError("unable to send verack "+
					"message", err)
			}
			s.verAckSent()

		case *wire.MsgVerAck:
			log.Debugf("Received %v from %s", msg.Command(), h)
			if h.cfg.Listeners.OnVerAck != nil {
				h.cfg.Listeners.OnVerAck(h, msg)
			}

		default:
			log.Debugf("Buffered %v from %s until the handshake "+
				"completes", r.frame.Command(), h)
		}
	}

	return s.result(), nil
}

// readHandler reads one frame from the transport for every request received
// on reqs and delivers it on results.  The payload is only read when the
// header passes the limits of the request.  It exits once reqs is closed.
func (h *Handshake) readHandler(reqs <-chan frameLimit, results chan<- readResult) {
	defer h.wg.Done()
	for limit := range reqs {
		n, frame, err := h.readFrame(limit)
		results <- readResult{n: n, frame: frame, err: err}
	}
}

// readFrame reads the next frame from the transport, refusing it by its
// header when it exceeds limit.
func (h *Handshake) readFrame(limit frameLimit) (int, *wire.Frame, error) {
	n, hdr, err := wire.ReadMessageHeaderN(h.transport)
	if err != nil {
		return n, nil, err
	}
	if err := limit.check(hdr); err != nil {
		return n, nil, err
	}
	pn, frame, err := wire.ReadPayloadN(h.transport, hdr)
	return n + pn, frame, err
}

// logFrame traces a frame read from the peer.
func (h *Handshake) logFrame(frame *wire.Frame) {
	log.Tracef("%v", newLogClosure(func() string {
		return fmt.Sprintf("Read %v from %s:\n%s", frame.Command(), h,
			spew.Sdump(frame.Bytes()))
	}))
}

// writeMessage sends a bitcoin message to the peer with logging.
func (h *Handshake) writeMessage(msg wire.Message) error {
	// Use closures to log expensive operations so they are only run when the
	// logging level requires it.
	log.Debugf("%v", newLogClosure(func() string {
		// Debug summary of message.
		summary := messageSummary(msg)
		if len(summary) > 0 {
			summary = " (" + summary + ")"
		}
		return fmt.Sprintf("Sending %v%s to %s", msg.Command(),
			summary, h)
	}))
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(msg)
	}))

	buf, err := wire.EncodeMessage(msg, h.cfg.ProtocolVersion,
		h.cfg.ChainParams.Net)
	if err != nil {
		return err
	}
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(buf)
	}))

	// Write the message to the peer.
	n, err := h.transport.Write(buf)
	if h.cfg.Listeners.OnWrite != nil {
		h.cfg.Listeners.OnWrite(h, n, msg, buf, err)
	}
	return err
}

// localMsgVersion creates a version message that can be used to send to the
// remote peer.
func (h *Handshake) localMsgVersion(ctx context.Context,
	nonce uint64) (*wire.MsgVersion, error) {

	theirNA := h.na

	// If we are behind a proxy and the connection comes from the proxy then
	// we return an unroutable address as their address. This is to prevent
	// leaking the tor proxy address.
	if h.cfg.Proxy != "" {
		proxyAddress, _, err := net.SplitHostPort(h.cfg.Proxy)
		// Invalid proxy means poorly configured, be on the safe side.
		if err != nil || h.na.IP.String() == proxyAddress {
			theirNA = wire.NewNetAddressIPPort(net.IPv4zero, 0,
				theirNA.Services)
		}
	}

	ourNA := wire.NewNetAddressIPPort(h.localIP(ctx),
		h.cfg.ChainParams.Port(), h.cfg.Services)

	// Version message.
	msg := wire.NewMsgVersion(ourNA, theirNA, nonce, h.cfg.StartHeight).
		WithProtocolVersion(h.cfg.ProtocolVersion).
		WithRelay(!h.cfg.DisableRelayTx)
	msg.Services = h.cfg.Services
	if h.cfg.UserAgentName != "" {
		err := msg.AddUserAgent(h.cfg.UserAgentName,
			h.cfg.UserAgentVersion, h.cfg.UserAgentComments...)
		if err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// localIP resolves the address announced as ours.  Failing to resolve it is
// not fatal, the unspecified address is announced instead.
func (h *Handshake) localIP(ctx context.Context) net.IP {
	if h.cfg.LocalAddr == nil {
		return net.IPv4zero
	}

	ip, err := h.cfg.LocalAddr(ctx)
	if err != nil {
		log.Warnf("Unable to resolve local address for %s, announcing "+
			"%v: %v", h, net.IPv4zero, err)
		return net.IPv4zero
	}
	return ip
}

// newNetAddress attempts to extract the IP address and port from the passed
// net.Addr interface and create a bitcoin NetAddress structure using that
// information.
func newNetAddress(addr net.Addr, services wire.ServiceFlag) (*wire.NetAddress, error) {
	// addr will be a net.TCPAddr when not using a proxy.
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		ip := tcpAddr.IP
		port := uint16(tcpAddr.Port)
		na := wire.NewNetAddressIPPort(ip, port, services)
		return na, nil
	}

	// addr will be a socks.ProxiedAddr when using a proxy.
	if proxiedAddr, ok := addr.(*socks.ProxiedAddr); ok {
		ip := net.ParseIP(proxiedAddr.Host)
		if ip == nil {
			ip = net.ParseIP("0.0.0.0")
		}
		port := uint16(proxiedAddr.Port)
		na := wire.NewNetAddressIPPort(ip, port, services)
		return na, nil
	}

	// For the most part, addr should be one of the two above cases, but
	// to be safe, fall back to trying to parse the information from the
	// address string as a last resort.
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}
	na := wire.NewNetAddressIPPort(ip, uint16(port), services)
	return na, nil
}

// NewHandshake returns a handshake which negotiates over transport with the
// peer at remote.  The remote address is only used in the version message and
// for logging, it can be nil when unknown.  Use Negotiate to run it.
func NewHandshake(cfg *Config, transport Transport,
	remote *wire.NetAddress) *Handshake {

	h := &Handshake{
		cfg:       *cfg, // Copy so caller can't mutate.
		transport: transport,
		na:        remote,
	}

	// Default to the max supported protocol version.  Override to the
	// version specified by the caller if configured.
	if h.cfg.ProtocolVersion == 0 {
		h.cfg.ProtocolVersion = MaxProtocolVersion
	}
	if h.cfg.MinProtocolVersion == 0 {
		h.cfg.MinProtocolVersion = wire.MultipleAddressVersion
	}

	// Set the chain parameters to testnet if the caller did not specify any.
	if h.cfg.ChainParams == nil {
		h.cfg.ChainParams = &chaincfg.TestNet3Params
	}
	if h.cfg.NegotiateTimeout <= 0 {
		h.cfg.NegotiateTimeout = DefaultNegotiateTimeout
	}
	if h.cfg.Rand == nil {
		h.cfg.Rand = rand.Reader
	}

	if h.na == nil {
		h.na = wire.NewNetAddressIPPort(net.IPv4zero, 0, 0)
	}
	h.addr = h.na.String()
	return h
}

// NewHandshakeFromConn returns a handshake which negotiates over conn, taking
// the peer address from its remote address.  Connections made through a
// SOCKS proxy report the proxied destination.
func NewHandshakeFromConn(cfg *Config, conn net.Conn) (*Handshake, error) {
	na, err := newNetAddress(conn.RemoteAddr(), 0)
	if err != nil {
		return nil, err
	}
	h := NewHandshake(cfg, conn, na)
	h.addr = conn.RemoteAddr().String()
	return h, nil
}
