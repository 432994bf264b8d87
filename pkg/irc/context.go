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
	"bufio"
	"fmt"
	"math/rand"
	"time"

	"github.com/rsr-chat/rsrserver/pkg/storage"
)

// PingDeadlineSeconds is the fixed window between issuing a keepalive PING
// and declaring the session timed out.
const PingDeadlineSeconds = 8 * time.Second

// Context is the ephemeral handle that binds one inbound signal to the
// session, the client sink, and the current typestate. A connection
// driver constructs one per loop iteration, dispatches through it, and
// recovers the (possibly transitioned) State via Apply.
type Context struct {
	Session *Session
	Storage storage.Storage
	Out     *bufio.Writer
	Nonce   *rand.Rand
	Hub     *ChannelHub
	Metrics Metrics

	state State
}

// NewContext builds a Context over the given session, storage backend,
// client sink, channel hub, metrics sink, and starting typestate.
func NewContext(session *Session, store storage.Storage, out *bufio.Writer, nonce *rand.Rand, hub *ChannelHub, metrics Metrics, state State) *Context {
	return &Context{Session: session, Storage: store, Out: out, Nonce: nonce, Hub: hub, Metrics: metrics, state: state}
}

// State returns the typestate currently owned by this context.
func (c *Context) State() State { return c.state }

// Transition replaces the owned typestate and returns the context for
// chaining, mirroring the source's context.transition(new).
func (c *Context) Transition(next State) *Context {
	c.state = next
	return c
}

// Apply yields the owned typestate back to the driver, consuming the
// context's usefulness (Go has no move semantics, so this is conventional
// rather than enforced).
func (c *Context) Apply() State { return c.state }

// SendClientRaw writes bytes then flushes. Any write failure surfaces as
// IOError.
func (c *Context) SendClientRaw(b []byte) error {
	if _, err := c.Out.Write(b); err != nil {
		return wrapErr(IOError, err)
	}
	if err := c.Out.Flush(); err != nil {
		return wrapErr(IOError, err)
	}
	return nil
}

// SendClientLine writes s followed by CRLF then flushes.
func (c *Context) SendClientLine(s string) error {
	return c.SendClientRaw([]byte(s + "\r\n"))
}

// SendClient echoes a parsed message's original input bytes verbatim, for
// forwarding already-validated channel traffic.
func (c *Context) SendClient(msg *Message) error {
	return c.SendClientRaw([]byte(msg.Raw + "\r\n"))
}

// PingKeepalive implements the idle timer's keepalive action: if no ping
// is outstanding it sends one and arms the deadline; if one is
// outstanding past its deadline, it returns Timeout; otherwise it is a
// no-op (still waiting).
func (c *Context) PingKeepalive(now time.Time) error {
	line, err := c.Session.PingKeepalive(now, PingDeadlineSeconds, c.Nonce)
	if err != nil {
		return err
	}
	if line == "" {
		return nil
	}
	return c.SendClientLine(line)
}

// UnknownCommand replies 421 for a verb the dispatch table does not
// recognize. The nickname is truncated to 40 bytes, the echoed verb to
// 442 bytes, both on UTF-8 boundaries.
func (c *Context) UnknownCommand(verb string) error {
	nick := SliceAtMost(c.state.Nick(), 40)
	cmd := SliceAtMost(verb, 442)
	return c.SendClientLine(fmt.Sprintf(":* 421 %s %s :Unknown command", nick, cmd))
}

// RegistrationRequired replies 451 and leaves the typestate unchanged; it
// is the gate handlers use to reject Registered-or-later commands from an
// Anonymous session.
func (c *Context) RegistrationRequired() error {
	nick := SliceAtMost(c.state.Nick(), 40)
	return c.SendClientLine(fmt.Sprintf(":* 451 %s :Registration is required", nick))
}

// TryRegister attempts to complete registration: if the current typestate
// is Anonymous, has all three identity fields, and is not frozen by an
// in-progress CAP exchange, it transitions to Registered. Otherwise the
// context is left unchanged.
func (c *Context) TryRegister() {
	if c.state.ReadyToRegister() {
		c.state = c.state.ToRegistered()
	}
}
