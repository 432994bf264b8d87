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

// Package storage defines the read-only nickname lookup backend consulted
// by the connection driver. The backend is external to the protocol
// engine: this package only fixes the interface and ships a no-op stub
// implementation for standalone operation.
package storage

import (
	"context"
	"errors"
)

// Whois is the record returned for a registered nickname.
type Whois struct {
	Nick     string
	User     string
	Real     string
	Account  string
	Online   bool
}

// ErrNotFound is returned by no implementation directly; Storage.Whois
// instead returns (nil, nil) for an unknown nick, matching the source's
// Option<Whois> semantics. It is kept for implementations that prefer an
// explicit sentinel.
var ErrNotFound = errors.New("storage: nick not found")

// Storage is the read-only, internally-thread-safe nickname lookup used by
// the connection driver. Implementations must be safe for concurrent use
// by many connection goroutines.
type Storage interface {
	Whois(ctx context.Context, nick string) (*Whois, error)
}

// Nop is a Storage that has no backing database: every lookup reports the
// nick as unknown. It exists so the server can run standalone without a
// wired persistence layer.
type Nop struct{}

// Whois always returns (nil, nil): no storage backend, no known nicks.
func (Nop) Whois(ctx context.Context, nick string) (*Whois, error) {
	return nil, nil
}
