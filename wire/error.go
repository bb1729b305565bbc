// Copyright (c) 2013-2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

// ErrorCode identifies a kind of message error.  It implements the error
// interface so it can be used directly with errors.Is against any error
// returned by this package.
type ErrorCode int

// These constants are used to identify a specific MessageError.
const (
	// ErrShortRead indicates fewer bytes than a complete message header
	// were supplied.
	ErrShortRead ErrorCode = iota

	// ErrChecksumMismatch indicates the checksum in a message header does
	// not match the checksum computed over the payload.
	ErrChecksumMismatch

	// ErrLengthMismatch indicates the length in a message header does not
	// match the number of payload bytes.
	ErrLengthMismatch

	// ErrTruncatedPayload indicates a fixed size field or a variable
	// length integer ran past the end of the payload.
	ErrTruncatedPayload

	// ErrInvalidLengthPrefix indicates a length prefixed field claims more
	// bytes than remain in the payload.
	ErrInvalidLengthPrefix

	// ErrMalformedAddress indicates fewer bytes than a complete network
	// address were available.
	ErrMalformedAddress

	// ErrCommandTooLong indicates a command name does not fit in the
	// fixed size command field of the message header.
	ErrCommandTooLong

	// ErrPayloadTooLarge indicates a payload exceeds the maximum allowed
	// size, either overall or for its message type.
	ErrPayloadTooLarge

	// ErrNonCanonicalVarInt indicates a variable length integer was not
	// encoded with the minimum number of bytes.
	ErrNonCanonicalVarInt

	// ErrUserAgentTooLong indicates a user agent exceeds MaxUserAgentLen.
	ErrUserAgentTooLong

	// ErrUnknownMessage indicates a command with no associated message
	// type in this package.
	ErrUnknownMessage

	// ErrInvalidCommand indicates a command name contains bytes other than
	// printable ASCII.
	ErrInvalidCommand
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrShortRead:           "ErrShortRead",
	ErrChecksumMismatch:    "ErrChecksumMismatch",
	ErrLengthMismatch:      "ErrLengthMismatch",
	ErrTruncatedPayload:    "ErrTruncatedPayload",
	ErrInvalidLengthPrefix: "ErrInvalidLengthPrefix",
	ErrMalformedAddress:    "ErrMalformedAddress",
	ErrCommandTooLong:      "ErrCommandTooLong",
	ErrPayloadTooLarge:     "ErrPayloadTooLarge",
	ErrNonCanonicalVarInt:  "ErrNonCanonicalVarInt",
	ErrUserAgentTooLong:    "ErrUserAgentTooLong",
	ErrUnknownMessage:      "ErrUnknownMessage",
	ErrInvalidCommand:      "ErrInvalidCommand",
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

// MessageError describes an issue with a message.  An example of some
// potential issues are messages from the wrong bitcoin network, invalid
// commands, mismatched checksums, and exceeding max payloads.
//
// This provides a mechanism for the caller to type assert the error to
// differentiate between general io errors such as io.EOF and issues that
// resulted from malformed messages.  The ErrorCode field, which is also
// returned by Unwrap, identifies the specific reason.
type MessageError struct {
	Func        string    // Function name
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// Unwrap returns the error code so callers can use errors.Is.
func (e *MessageError) Unwrap() error {
	return e.ErrorCode
}

// messageError creates an error for the given function, code and
// description.
func messageError(f string, c ErrorCode, desc string) *MessageError {
	return &MessageError{Func: f, ErrorCode: c, Description: desc}
}
