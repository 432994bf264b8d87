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
// WHETHER IN AN ACTION OF CONTRACT, TORT, OR OTHERWISE, ARISING FROM, OUT OF, OR IN CONNECTION WITH THE SOFTWARE
// OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
package irc

import (
	"strconv"
	"strings"
)

// capChunkBudget is the payload byte budget (after the leading ':', before
// the trailing CRLF) for one multiline CAP reply chunk.
const capChunkBudget = 490

// handleCap dispatches CAP LS/LIST/REQ/END. Unknown subcommands reply 410;
// a missing subcommand replies 461.
func handleCap(c *Context, msg *Message) error {
	if len(msg.Middles) == 0 {
		return c.SendClientLine(":* 461 :Not enough parameters")
	}
	switch msg.Middles[0] {
	case "LS":
		return capLS(c, msg)
	case "LIST":
		return capList(c)
	case "REQ":
		return capReq(c, msg)
	case "END":
		return capEnd(c)
	default:
		name := SliceAtMost(msg.Middles[0], 470)
		return c.SendClientLine(":* 410 :Invalid CAP command " + name)
	}
}

func capLS(c *Context, msg *Message) error {
	if len(msg.Middles) > 1 {
		v, err := strconv.ParseUint(msg.Middles[1], 10, 16)
		if err != nil {
			return wrapErr(ParseIntError, err)
		}
		c.Session.SetCapsVersion(uint16(v))
	}

	if c.Session.CapsVersion < 302 {
		if c.Metrics != nil {
			c.Metrics.CapNegotiation("unsupported_version")
		}
		if err := c.SendClientLine("ERROR :This server does not yet support CAP versions < 302"); err != nil {
			return err
		}
		return newErr(UnsupportedCap, "CAP LS version below 302")
	}

	chunks := ChunkByWhitespace(CapLSLine(), capChunkBudget)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	for i, chunk := range chunks {
		header := "CAP * LS * :"
		if i == len(chunks)-1 {
			header = "CAP * LS :"
		}
		if err := c.SendClientRaw([]byte(header + chunk + "\r\n")); err != nil {
			return err
		}
	}
	return nil
}

func capList(c *Context) error {
	var tokens []string
	for _, e := range capCatalog {
		if c.Session.CapsEnabled.Has(e.bit) {
			tokens = append(tokens, e.token)
		}
	}
	joined := strings.Join(tokens, " ")
	chunks := ChunkByWhitespace(joined, capChunkBudget)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	for i, chunk := range chunks {
		header := "CAP * LIST * :"
		if i == len(chunks)-1 {
			header = "CAP * LIST :"
		}
		if err := c.SendClientRaw([]byte(header + chunk + "\r\n")); err != nil {
			return err
		}
	}
	return nil
}

func capReq(c *Context, msg *Message) error {
	if c.state.Kind == KindAnonymous {
		c.state.Anon.RegFrozen = true
	}

	if !msg.HasTrail {
		return c.SendClientLine("CAP * ACK :")
	}

	requested := strings.Fields(msg.Trailing)
	valid, invalid := FromStringList(requested)

	validStr := catalogTokenString(valid)
	for _, chunk := range ChunkByWhitespace(validStr, capChunkBudget) {
		if err := c.SendClientLine("CAP * ACK :" + chunk); err != nil {
			return err
		}
	}
	c.Session.EnableCaps(valid)
	if c.Metrics != nil && validStr != "" {
		c.Metrics.CapNegotiation("ack")
	}

	for _, chunk := range ChunkByWhitespace(strings.Join(invalid, " "), capChunkBudget) {
		if err := c.SendClientLine("CAP * NAK :" + chunk); err != nil {
			return err
		}
	}
	if c.Metrics != nil && len(invalid) > 0 {
		c.Metrics.CapNegotiation("nak")
	}
	return nil
}

func capEnd(c *Context) error {
	if c.state.Kind != KindAnonymous {
		return nil
	}
	c.state.Anon.RegFrozen = false
	c.TryRegister()
	return nil
}

// catalogTokenString renders the tokens for set bits in catalog order,
// space-separated — the inverse of FromStringList.
func catalogTokenString(bits Capability) string {
	var tokens []string
	for _, e := range capCatalog {
		if bits.Has(e.bit) {
			tokens = append(tokens, e.token)
		}
	}
	return strings.Join(tokens, " ")
}
