// Copyright (c) 2024 Jerzy Dąbrowski
// Based on original work by Thomas Jager, 2009. All rights reserved.
//
// This project is a fork of the original go-ircevent library created by Thomas Jager.
// Redistribution and use in source and binary forms, with or without modification, are permitted provided
// that the following conditions are met:
//
//   - Redistributions of source code must retain the above copyright notice, this list of conditions,
//     and the following disclaimer.
//   - Redistributions in binary form must reproduce the above copyright notice, this list of conditions,
//     and the following disclaimer in the documentation and/or other materials provided with the distribution.
//   - Neither the name of the original authors nor the names of its contributors may be used to endorse
//     or promote products derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED "AS IS" WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT NOT
// LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE, AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE COPYRIGHT HOLDERS OR CONTRIBUTORS BE LIABLE FOR ANY CLAIM, DAMAGES, OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT, OTHERWISE, ARISING FROM, OUT OF, OR IN CONNECTION WITH THE SOFTWARE
// OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
package irc

import (
	"bufio"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"

	"github.com/rsr-chat/rsrserver/pkg/netdiag"
	"github.com/rsr-chat/rsrserver/pkg/storage"
)

// IdleTimeout is the baseline idle-timer duration: an expiry without
// intervening client traffic triggers a keepalive PING, not termination.
const IdleTimeout = 30 * time.Second

// Metrics is the narrow surface connection driver calls into; pkg/metrics
// implements it over prometheus collectors, and a nil Metrics is valid
// (every method is a no-op then) so the driver works without the
// -metrics-addr flag wired up.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed(duration time.Duration)
	MessageDispatched(verb string)
	CapNegotiation(result string)
	PingTimeout()
}

// readResult is what the dedicated reader goroutine feeds back to the
// driver's select loop: Go has no cancellable blocking read, so a line
// read that would otherwise occupy one of the four suspension points
// instead happens off to the side and reports back over a channel.
type readResult struct {
	msg *Message
	err error
}

// Driver owns one accepted connection end to end: the four-source
// multiplex, the session, and the current typestate.
type Driver struct {
	Conn    net.Conn
	Storage storage.Storage
	Hub     *ChannelHub
	Metrics Metrics
	Log     *logrus.Entry
	NetDiag *netdiag.Table

	IdleTimeout  time.Duration
	PingDeadline time.Duration

	// WireEncoding lenient-decodes inbound bytes before line framing, for
	// clients on legacy non-UTF-8 charsets. encoding.Nop (the default)
	// passes bytes through unchanged.
	WireEncoding encoding.Encoding

	SessionID xid.ID
}

// NewDriver wraps an accepted connection under the given sessionID. The
// caller (tlsserver.Server.serveOne) mints sessionID and, if diag is set,
// has already registered the connection's fd under it — using the
// pre-handshake net.Conn, since a *tls.Conn can no longer be unwrapped down
// to a concrete *net.TCPConn once the handshake has wrapped it. NewDriver
// itself never calls diag.Register for that reason; it only unregisters on
// the way out, since Driver owns the connection's lifecycle.
//
// If log is nil, a standalone logrus logger is created; a real server
// passes its shared logger so every connection's entries share
// sinks/formatters/hooks.
func NewDriver(sessionID xid.ID, conn net.Conn, store storage.Storage, hub *ChannelHub, metrics Metrics, diag *netdiag.Table, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.New()
	}
	return &Driver{
		Conn:         conn,
		Storage:      store,
		Hub:          hub,
		Metrics:      metrics,
		NetDiag:      diag,
		Log:          log.WithField("session_id", sessionID.String()).WithField("client_addr", conn.RemoteAddr().String()),
		IdleTimeout:  IdleTimeout,
		PingDeadline: PingDeadlineSeconds,
		WireEncoding: encoding.Nop,
		SessionID:    sessionID,
	}
}

// Run drives the connection until termination, then closes it. It never
// returns an error: all failure information is logged, matching the
// source's "any error is terminal, then graceful shutdown" policy.
func (d *Driver) Run() {
	started := time.Now()
	if d.Metrics != nil {
		d.Metrics.ConnectionOpened()
	}
	defer func() {
		d.Conn.Close()
		if d.Metrics != nil {
			d.Metrics.ConnectionClosed(time.Since(started))
		}
		if d.NetDiag != nil {
			d.NetDiag.Unregister(d.SessionID.String())
		}
	}()

	session := NewSession()
	state := NewAnonymousState()
	out := bufio.NewWriter(d.Conn)
	nonce := rand.New(rand.NewSource(time.Now().UnixNano()))

	reads := make(chan readResult, 1)
	stopReader := make(chan struct{})
	go d.readPump(reads, stopReader)
	defer close(stopReader)

	serverCh, unsubServer := d.Hub.SubscribeServer(32)
	defer unsubServer()

	channelSubs := map[string]func(){}
	defer func() {
		for _, unsub := range channelSubs {
			unsub()
		}
	}()
	channelFanIn := make(chan ChannelMessage, 32)

	idleTimer := time.NewTimer(d.IdleTimeout)
	defer idleTimer.Stop()

	for {
		select {
		case <-idleTimer.C:
			ctx := NewContext(session, d.Storage, out, nonce, d.Hub, d.Metrics, state)
			line, err := session.PingKeepalive(time.Now(), d.PingDeadline, nonce)
			if err == nil && line != "" {
				err = ctx.SendClientLine(line)
			}
			state = ctx.Apply()
			idleTimer.Reset(d.IdleTimeout)
			if err != nil {
				if d.Metrics != nil && IsSessionErrorKind(err, Timeout) {
					d.Metrics.PingTimeout()
				}
				d.terminate(err)
				return
			}

		case res := <-reads:
			if res.err != nil {
				d.terminate(res.err)
				return
			}
			ctx := NewContext(session, d.Storage, out, nonce, d.Hub, d.Metrics, state)
			if err := Dispatch(ctx, res.msg); err != nil {
				d.terminate(err)
				return
			}
			state = ctx.Apply()
			if d.Metrics != nil {
				d.Metrics.MessageDispatched(res.msg.Verb)
			}
			d.syncChannelSubs(channelSubs, channelFanIn)
			idleTimer.Reset(d.IdleTimeout)

		case cm := <-channelFanIn:
			ctx := NewContext(session, d.Storage, out, nonce, d.Hub, d.Metrics, state)
			if err := ctx.SendClientRaw([]byte(cm.Raw + "\r\n")); err != nil {
				d.terminate(wrapErr(IOError, err))
				return
			}

		case sm, ok := <-serverCh:
			if !ok {
				d.terminate(newErr(ChannelEOF, "server broadcast channel closed"))
				return
			}
			_ = sm // reserved: no dispatch-side behavior defined yet
		}
	}
}

// syncChannelSubs is a placeholder hook for JOIN/PART to grow and shrink
// the set of channel-hub subscriptions this connection fans into
// channelFanIn. No verb currently mutates channel membership, so this is a
// no-op today; it exists so JOIN/PART have somewhere to register once
// channel membership semantics are specified.
func (d *Driver) syncChannelSubs(subs map[string]func(), fanIn chan ChannelMessage) {}

func (d *Driver) readPump(out chan<- readResult, stop <-chan struct{}) {
	wireEnc := d.WireEncoding
	if wireEnc == nil {
		wireEnc = encoding.Nop
	}
	r := bufio.NewReaderSize(wireEnc.NewDecoder().Reader(d.Conn), CurrentLineLimit)
	for {
		line, err := readLine(r, CurrentLineLimit)
		if err != nil {
			select {
			case out <- readResult{err: err}:
			case <-stop:
			}
			return
		}
		d.Log.Debugf("<-- %s", line)
		msg, perr := ParseMessage(line)
		if perr != nil {
			select {
			case out <- readResult{err: perr}:
			case <-stop:
			}
			return
		}
		select {
		case out <- readResult{msg: msg}:
		case <-stop:
			return
		}
	}
}

// readLine reads one CRLF-terminated line capped at limit bytes
// (inclusive of the terminator). A zero-byte read is ClientEOF; a line
// that exceeds limit without a terminator, or one not ending in \r\n, is
// MessageTooLong.
//
// Unlike bufio.Reader.ReadString, this stops pulling bytes the moment limit
// is exceeded: ReadString accumulates across as many underlying reads as it
// takes to find the delimiter, so a client that never sends '\n' could
// otherwise force unbounded buffering before the length check ever ran.
func readLine(r *bufio.Reader, limit int) (string, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(buf) == 0 {
				return "", newErr(ClientEOF, "")
			}
			return "", wrapErr(IOError, err)
		}
		buf = append(buf, b)
		if len(buf) > limit {
			return "", newErr(MessageTooLong, "")
		}
		if b == '\n' {
			break
		}
	}
	if len(buf) < 2 || buf[len(buf)-2] != '\r' {
		return "", newErr(MessageTooLong, "line not CRLF-terminated")
	}
	return string(buf[:len(buf)-2]), nil
}

func (d *Driver) terminate(err error) {
	if IsGraceful(err) {
		d.Log.WithError(err).Info("session ended")
		return
	}
	d.Log.WithError(err).Warn("session terminated")
}

// IsSessionErrorKind reports whether err is a *SessionError of kind k.
func IsSessionErrorKind(err error, k ErrorKind) bool {
	se, ok := err.(*SessionError)
	return ok && se.Kind == k
}
