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
	"fmt"
	"strings"
	"time"
)

// ServerVersion is embedded in MOTD's 422 sentinel reply.
const ServerVersion = "0.1.0"

// Handler processes one message against the current typestate, mutating
// ctx's owned state in place (via Transition) and returning an error for
// anything the driver should treat as session-fatal.
type Handler func(ctx *Context, msg *Message) error

// dispatchTable is the string-keyed verb table. It is total over the verb
// set named in the external interface: every entry below is always
// present, so a miss always means an unrecognized verb.
var dispatchTable = map[string]Handler{
	"CAP":         handleCap,
	"AUTHENTICATE": registeredGateStub,
	"PASS":        handlePass,
	"NICK":        handleNick,
	"USER":        handleUser,
	"PING":        handlePing,
	"PONG":        handlePong,
	"OPER":        registeredGateStub,
	"QUIT":        handleQuit,
	"ERROR":       handleError,
	"JOIN":        registeredGateStub,
	"PART":        registeredGateStub,
	"TOPIC":       registeredGateStub,
	"NAMES":       registeredGateStub,
	"LIST":        registeredGateStub,
	"INVITE":      registeredGateStub,
	"KICK":        registeredGateStub,
	"MOTD":        handleMotd,
	"VERSION":     registeredGateStub,
	"ADMIN":       handleAdmin,
	"CONNECT":     registeredGateStub,
	"LUSERS":      registeredGateStub,
	"TIME":        handleTime,
	"STATS":       registeredGateStub,
	"HELP":        handleHelp,
	"INFO":        registeredGateStub,
	"MODE":        registeredGateStub,
	"PRIVMSG":     handlePrivmsg,
	"NOTICE":      registeredGateStub,
	"WHO":         registeredGateStub,
	"WHOIS":       registeredGateStub,
	"WHOWAS":      registeredGateStub,
	"KILL":        registeredGateStub,
	"REHASH":      registeredGateStub,
	"RESTART":     registeredGateStub,
	"SQUIT":       registeredGateStub,
	"AWAY":        registeredGateStub,
	"LINKS":       handleLinks,
	"USERHOST":    registeredGateStub,
	"WALLOPS":     handleWallops,
}

// Dispatch looks up msg's verb (case-insensitive) and invokes its handler
// against ctx, or replies 421 for a verb outside the dispatch table.
func Dispatch(ctx *Context, msg *Message) error {
	h, ok := dispatchTable[strings.ToUpper(msg.Verb)]
	if !ok {
		return ctx.UnknownCommand(msg.Verb)
	}
	return h(ctx, msg)
}

// registeredGateStub is shared by every verb whose body RFC 1459/2812
// leaves to this server's discretion beyond the registration-required
// gate: reject on Anonymous, silently accept (no-op) once registered.
func registeredGateStub(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	return nil
}

func handlePass(ctx *Context, msg *Message) error {
	// RSR servers do not support PASS authentication; silently allow it
	// in every state.
	return nil
}

func handlePing(ctx *Context, msg *Message) error {
	token := ""
	if len(msg.Middles) > 0 {
		token = msg.Middles[0]
	}
	return ctx.SendClientLine("PONG " + token)
}

func handlePong(ctx *Context, msg *Message) error {
	token := ""
	if len(msg.Middles) > 0 {
		token = msg.Middles[0]
	}
	ctx.Session.ResolvePong(time.Now(), token)
	return nil
}

func handleQuit(ctx *Context, msg *Message) error {
	reason := ""
	if msg.HasTrail {
		reason = msg.Trailing
	}
	return ErrClientQUIT(reason)
}

func handleError(ctx *Context, msg *Message) error {
	// Clients should never send this; ignore it in every state.
	return nil
}

func handleNick(ctx *Context, msg *Message) error {
	if len(msg.Middles) == 0 {
		return ctx.SendClientLine(fmt.Sprintf(":* 431 %s :No nickname given", SliceAtMost(ctx.state.Nick(), 40)))
	}
	newNick := SliceAtMost(msg.Middles[0], 128)

	switch ctx.state.Kind {
	case KindAnonymous:
		ctx.state.Anon.Nick = newNick
		ctx.TryRegister()
	case KindRegistered:
		ctx.state.Reg.Nick = newNick
	case KindAuthenticated:
		ctx.state.Auth.Nick = newNick
	}
	return nil
}

func handleUser(ctx *Context, msg *Message) error {
	if ctx.state.Kind != KindAnonymous {
		return ctx.SendClientLine(fmt.Sprintf(":* 462 %s :Unauthorized command (already registered)", SliceAtMost(ctx.state.Nick(), 40)))
	}
	if len(msg.Middles) < 1 || !msg.HasTrail {
		return ctx.SendClientLine(":* 461 USER :Not enough parameters")
	}
	ctx.state.Anon.User = msg.Middles[0]
	ctx.state.Anon.Real = msg.Trailing
	ctx.TryRegister()
	return nil
}

func handleAdmin(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	nick := SliceAtMost(ctx.state.Nick(), 40)
	lines := []string{
		fmt.Sprintf(":* 256 %s :%%INFOHEADER%%", nick),
		fmt.Sprintf(":* 257 %s :%%ADMINLOC%%", nick),
		fmt.Sprintf(":* 258 %s :%%ADMINHOST%%", nick),
		fmt.Sprintf(":* 257 %s :%%ADMINEMAIL%%", nick),
	}
	for _, line := range lines {
		if err := ctx.SendClientLine(line); err != nil {
			return err
		}
	}
	return nil
}

func handleMotd(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	nick := SliceAtMost(ctx.state.Nick(), 40)
	return ctx.SendClientLine(fmt.Sprintf(":* 422 %s rsr-%s * :", nick, ServerVersion))
}

func handleTime(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	nick := SliceAtMost(ctx.state.Nick(), 40)
	now := time.Now().UTC()
	return ctx.SendClientLine(fmt.Sprintf(":* 391 %s * %d 0 :%s", nick, now.Unix(), now.Format(time.RFC3339)))
}

func handleHelp(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	nick := SliceAtMost(ctx.state.Nick(), 40)
	return ctx.SendClientLine(fmt.Sprintf(":* 524 %s * :Not yet implemented", nick))
}

func handleLinks(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	nick := SliceAtMost(ctx.state.Nick(), 40)
	return ctx.SendClientLine(fmt.Sprintf(":* 365 %s  :End of /LINKS list", nick))
}

func handleWallops(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	// No operator registry is in scope; accept and drop.
	return nil
}

// handlePrivmsg forwards to the channel hub when the target looks like a
// channel name; there is no nick registry in scope (Non-goal: persistence),
// so a direct-to-user target always reports no such nick.
func handlePrivmsg(ctx *Context, msg *Message) error {
	if ctx.state.Kind == KindAnonymous {
		return ctx.RegistrationRequired()
	}
	if len(msg.Middles) == 0 || !msg.HasTrail {
		return ctx.SendClientLine(":* 461 PRIVMSG :Not enough parameters")
	}
	target := msg.Middles[0]
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		if ctx.Hub != nil {
			ctx.Hub.PublishChannel(target, msg.Raw)
		}
		return nil
	}
	nick := SliceAtMost(ctx.state.Nick(), 40)
	return ctx.SendClientLine(fmt.Sprintf(":* 401 %s %s :No such nick/channel", nick, SliceAtMost(target, 128)))
}
