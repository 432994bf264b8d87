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
// WHETHER IN AN ACTION OF CONTRACT, TORT, OTHERWISE, ARISING FROM, OUT OF, OR IN CONNECTION WITH THE SOFTWARE
// OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package irc

import (
	"math/rand"
	"strconv"
	"time"
)

// PingDeadline marks an outstanding PING awaiting its matching PONG.
type PingDeadline struct {
	Deadline time.Time
	Nonce    uint64
}

// Session holds the per-connection state shared across all three
// typestates: negotiated capabilities, CAP protocol version, and the
// outstanding keepalive ping, if any.
type Session struct {
	CapsVersion uint16
	CapsEnabled Capability
	Ping        *PingDeadline
}

// NewSession returns a Session in its initial state: no capabilities
// negotiated, version 0, no outstanding ping.
func NewSession() *Session {
	return &Session{}
}

// SetCapsVersion assigns v only if it strictly increases the session's
// current version, and always returns the resulting (possibly unchanged)
// version.
func (s *Session) SetCapsVersion(v uint16) uint16 {
	if v > s.CapsVersion {
		s.CapsVersion = v
	}
	return s.CapsVersion
}

// EnableCaps unions bits into the session's enabled-capability set.
func (s *Session) EnableCaps(bits Capability) {
	s.CapsEnabled |= bits
}

// PingKeepalive implements the idle-timer's keepalive action. If no ping is
// outstanding, it mints a random nonce, returns the PING line to send, and
// arms the deadline. If a ping is already outstanding and its deadline has
// passed, it returns Timeout. If one is outstanding but not yet due, it
// returns no line and no error: the caller does nothing further this tick.
func (s *Session) PingKeepalive(now time.Time, deadlineFor time.Duration, nonceSource *rand.Rand) (line string, err error) {
	if s.Ping == nil {
		nonce := nonceSource.Uint64()
		s.Ping = &PingDeadline{Deadline: now.Add(deadlineFor), Nonce: nonce}
		return formatPing(nonce), nil
	}
	if now.After(s.Ping.Deadline) {
		return "", newErr(Timeout, "no PONG before deadline")
	}
	return "", nil
}

// ResolvePong clears the outstanding ping if token matches its nonce and
// the deadline has not yet passed. Non-matching or malformed tokens, or a
// PONG with no outstanding ping, are silently ignored (return false).
func (s *Session) ResolvePong(now time.Time, token string) bool {
	if s.Ping == nil {
		return false
	}
	if now.After(s.Ping.Deadline) {
		return false
	}
	nonce, ok := parseNonce(token)
	if !ok || nonce != s.Ping.Nonce {
		return false
	}
	s.Ping = nil
	return true
}

func formatPing(nonce uint64) string {
	return "PING " + strconv.FormatUint(nonce, 10)
}

func parseNonce(token string) (uint64, bool) {
	n, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
