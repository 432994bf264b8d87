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

import "time"

// StateKind tags which typestate payload a State currently carries. The
// dispatcher switches on this exhaustively; Go has no sum types, so this is
// the runtime stand-in for the compile-time typestate the design calls for.
type StateKind int

const (
	KindAnonymous StateKind = iota
	KindRegistered
	KindAuthenticated
)

func (k StateKind) String() string {
	switch k {
	case KindAnonymous:
		return "Anonymous"
	case KindRegistered:
		return "Registered"
	case KindAuthenticated:
		return "Authenticated"
	default:
		return "UnknownState"
	}
}

// Anonymous is the initial typestate: created at connection start and
// discarded the moment the session transitions to Registered.
type Anonymous struct {
	Nick, User, Real string // empty string stands in for "absent"
	RegFrozen        bool
}

// Registered is reached once nick/user/real are all present and
// RegFrozen is false at the time CAP END (or its implicit equivalent)
// fires.
type Registered struct {
	Nick, User, Real string
	Away             string
	HasAway          bool
}

// Authenticated adds an external-auth grant expiry on top of Registered's
// identity fields. It reverts to Registered once Expires has passed.
type Authenticated struct {
	Nick, User, Real string
	Away             string
	HasAway          bool
	Expires          time.Time
}

// State is the tagged union carried by Context: exactly one of the three
// payload fields is meaningful, selected by Kind.
type State struct {
	Kind          StateKind
	Anon          Anonymous
	Reg           Registered
	Auth          Authenticated
}

// NewAnonymousState returns the typestate a freshly accepted connection
// starts in.
func NewAnonymousState() State {
	return State{Kind: KindAnonymous}
}

// Nick returns the session's current nickname, or "*" if none has been set
// yet (mirrors RFC 1459's placeholder for an unregistered client).
func (s State) Nick() string {
	switch s.Kind {
	case KindAnonymous:
		if s.Anon.Nick == "" {
			return "*"
		}
		return s.Anon.Nick
	case KindRegistered:
		return s.Reg.Nick
	case KindAuthenticated:
		return s.Auth.Nick
	default:
		return "*"
	}
}

// User returns the session's username, empty if not yet set.
func (s State) User() string {
	switch s.Kind {
	case KindAnonymous:
		return s.Anon.User
	case KindRegistered:
		return s.Reg.User
	case KindAuthenticated:
		return s.Auth.User
	default:
		return ""
	}
}

// Real returns the session's realname, empty if not yet set.
func (s State) Real() string {
	switch s.Kind {
	case KindAnonymous:
		return s.Anon.Real
	case KindRegistered:
		return s.Reg.Real
	case KindAuthenticated:
		return s.Auth.Real
	default:
		return ""
	}
}

// Away returns the session's away message and whether one is set. Anonymous
// sessions are never away.
func (s State) Away() (string, bool) {
	switch s.Kind {
	case KindRegistered:
		return s.Reg.Away, s.Reg.HasAway
	case KindAuthenticated:
		return s.Auth.Away, s.Auth.HasAway
	default:
		return "", false
	}
}

// ReadyToRegister reports whether an Anonymous session has collected all
// three identity fields and is not frozen by an in-progress CAP exchange.
func (s State) ReadyToRegister() bool {
	if s.Kind != KindAnonymous {
		return false
	}
	a := s.Anon
	return a.Nick != "" && a.User != "" && a.Real != "" && !a.RegFrozen
}

// ToRegistered transitions an Anonymous session into Registered. The
// caller must have checked ReadyToRegister first.
func (s State) ToRegistered() State {
	return State{Kind: KindRegistered, Reg: Registered{
		Nick: s.Anon.Nick,
		User: s.Anon.User,
		Real: s.Anon.Real,
	}}
}

// ToAuthenticated transitions a Registered session into Authenticated with
// the given grant expiry.
func (s State) ToAuthenticated(expires time.Time) State {
	return State{Kind: KindAuthenticated, Auth: Authenticated{
		Nick:    s.Reg.Nick,
		User:    s.Reg.User,
		Real:    s.Reg.Real,
		Away:    s.Reg.Away,
		HasAway: s.Reg.HasAway,
		Expires: expires,
	}}
}

// ExpireToRegistered transitions an Authenticated session back to
// Registered, dropping the grant expiry.
func (s State) ExpireToRegistered() State {
	return State{Kind: KindRegistered, Reg: Registered{
		Nick:    s.Auth.Nick,
		User:    s.Auth.User,
		Real:    s.Auth.Real,
		Away:    s.Auth.Away,
		HasAway: s.Auth.HasAway,
	}}
}
