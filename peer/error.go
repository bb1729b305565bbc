// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/lightnode/wire"
)

// ErrorCode identifies the reason a handshake failed.  It implements the
// error interface so errors.Is can match a code against any error returned by
// Negotiate.
type ErrorCode int

const (
	// ErrMalformedMessage indicates the peer sent a frame which failed
	// verification or decoding.  The wrapped error is a *wire.MessageError.
	ErrMalformedMessage ErrorCode = iota

	// ErrTransport indicates reading from or writing to the transport
	// failed.
	ErrTransport

	// ErrHandshakeTimeout indicates the handshake was not established
	// within the negotiation timeout.
	ErrHandshakeTimeout

	// ErrHandshakeCancelled indicates the caller cancelled the handshake.
	ErrHandshakeCancelled

	// ErrNetworkMismatch indicates the peer sent a frame carrying the magic
	// of a different network.
	ErrNetworkMismatch

	// ErrSelfConnection indicates the peer echoed a nonce this process
	// sent, meaning the connection loops back to ourselves.
	ErrSelfConnection

	// ErrObsoleteVersion indicates the peer announced a protocol version
	// older than the configured minimum.
	ErrObsoleteVersion

	// ErrDuplicateVersion indicates the peer sent a second version
	// message.
	ErrDuplicateVersion

	// ErrUnexpectedMessage indicates the peer sent a message other than
	// version or verack while strict handshakes are enabled, or exceeded
	// the number of frames that may be buffered.
	ErrUnexpectedMessage
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMalformedMessage:   "ErrMalformedMessage",
	ErrTransport:          "ErrTransport",
	ErrHandshakeTimeout:   "ErrHandshakeTimeout",
	ErrHandshakeCancelled: "ErrHandshakeCancelled",
	ErrNetworkMismatch:    "ErrNetworkMismatch",
	ErrSelfConnection:     "ErrSelfConnection",
	ErrObsoleteVersion:    "ErrObsoleteVersion",
	ErrDuplicateVersion:   "ErrDuplicateVersion",
	ErrUnexpectedMessage:  "ErrUnexpectedMessage",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error satisfies the error interface and prints the code name.
func (e ErrorCode) Error() string {
	return e.String()
}

// Retryable returns whether a new connection to the same peer might succeed
// where this one failed.  Protocol policy violations and malformed input are
// not retryable.
func (e ErrorCode) Retryable() bool {
	switch e {
	case ErrTransport, ErrHandshakeTimeout:
		return true
	}
	return false
}

// HandshakeError describes why a handshake failed.  The transport has always
// been closed by the time a HandshakeError is returned.
type HandshakeError struct {
	Code        ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying cause, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Description, e.Err)
	}
	return e.Description
}

// Unwrap returns the error code along with the underlying cause so errors.Is
// and errors.As see both.
func (e *HandshakeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// handshakeError creates a HandshakeError given a set of arguments.
func handshakeError(c ErrorCode, desc string, err error) *HandshakeError {
	return &HandshakeError{Code: c, Description: desc, Err: err}
}

// ioError classifies an error returned while reading or writing a frame.
// Wire level errors are malformed input, everything else is the transport.
// Handshake errors, such as a header refused by the reader, pass through.
func ioError(desc string, err error) *HandshakeError {
	var hsErr *HandshakeError
	if errors.As(err, &hsErr) {
		return hsErr
	}
	var msgErr *wire.MessageError
	if errors.As(err, &msgErr) {
		return handshakeError(ErrMalformedMessage, desc, err)
	}
	return handshakeError(ErrTransport, desc, err)
}
