// Copyright (c) 2009 Thomas Jager. All rights reserved.
// Copyright (c) 2024 Jerzy Dąbrowski. All rights reserved.
//
// This project is a fork of the original go-ircevent library created by Thomas Jager.
// Redistribution and use in source and binary forms, with or without modification, are permitted provided
// that the following conditions are met:
//
//    - Redistributions of source code must retain the above copyright notice, this list of conditions,
//      and the following disclaimer.
//    - Redistributions in binary form must reproduce the above copyright notice, this list of conditions,
//      and the following disclaimer in the documentation and/or other materials provided with the distribution.
//    - Neither the name of the original authors nor the names of its contributors may be used to endorse
//      or promote products derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED "AS IS" WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT NOT
// LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE, AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE COPYRIGHT HOLDERS OR CONTRIBUTORS BE LIABLE FOR ANY CLAIM, DAMAGES, OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT, OR OTHERWISE, ARISING FROM, OUT OF, OR IN CONNECTION WITH THE SOFTWARE
// OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package irc

import "fmt"

// ErrorKind categorizes the ways a session can end. Every kind except
// ClientQUIT and ClientEOF represents an abnormal termination, but all of
// them are fatal to the session: the driver's loop treats any error as
// terminal and moves straight to graceful shutdown.
type ErrorKind int

const (
	// IOError is a transport read/write failure.
	IOError ErrorKind = iota
	// IRCError is an unparseable message.
	IRCError
	// InvalidUTF8 is non-UTF-8 content on the wire.
	InvalidUTF8
	// MessageTooLong is an oversize inbound line.
	MessageTooLong
	// ParseIntError is a malformed CAP version argument.
	ParseIntError
	// Timeout is a PING deadline exceeded without a matching PONG.
	Timeout
	// ClientEOF is a zero-byte read (the client closed its write half).
	ClientEOF
	// ChannelEOF is the broadcast fabric shutting down.
	ChannelEOF
	// ChannelRecvError is broadcast lag on a joined channel.
	ChannelRecvError
	// ServerRecvError is broadcast lag on the server-wide channel.
	ServerRecvError
	// UnsupportedCap is a CAP LS version below 302.
	UnsupportedCap
	// ClientQUIT is a client-issued QUIT.
	ClientQUIT
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case IOError:
		return "IOError"
	case IRCError:
		return "IRCError"
	case InvalidUTF8:
		return "InvalidUTF8"
	case MessageTooLong:
		return "MessageTooLong"
	case ParseIntError:
		return "ParseIntError"
	case Timeout:
		return "Timeout"
	case ClientEOF:
		return "ClientEOF"
	case ChannelEOF:
		return "ChannelEOF"
	case ChannelRecvError:
		return "ChannelRecvError"
	case ServerRecvError:
		return "ServerRecvError"
	case UnsupportedCap:
		return "UnsupportedCap"
	case ClientQUIT:
		return "ClientQUIT"
	default:
		return "UnknownError"
	}
}

// SessionError is the error type returned by every fallible operation in
// this package. It carries a Kind for disposition decisions plus an
// optional wrapped cause and free-form detail (e.g. the QUIT reason).
type SessionError struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

func (e *SessionError) Error() string {
	switch {
	case e.Cause != nil && e.Detail != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return e.Kind.String()
	}
}

func (e *SessionError) Unwrap() error { return e.Cause }

// Is reports whether target is a SessionError of the same Kind, so callers
// can write errors.Is(err, &SessionError{Kind: Timeout}).
func (e *SessionError) Is(target error) bool {
	other, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func newErr(kind ErrorKind, detail string) *SessionError {
	return &SessionError{Kind: kind, Detail: detail}
}

func wrapErr(kind ErrorKind, cause error) *SessionError {
	return &SessionError{Kind: kind, Cause: cause}
}

// ErrClientQUIT builds the fatal-but-graceful error raised when a client
// sends QUIT, carrying its (possibly empty) reason.
func ErrClientQUIT(reason string) *SessionError {
	return &SessionError{Kind: ClientQUIT, Detail: reason}
}

// IsGraceful reports whether the session ended in a way that should not be
// logged as a fault: the client said goodbye, or simply closed the pipe.
func IsGraceful(err error) bool {
	se, ok := err.(*SessionError)
	if !ok {
		return false
	}
	return se.Kind == ClientQUIT || se.Kind == ClientEOF
}
