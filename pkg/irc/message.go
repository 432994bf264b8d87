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
	"strings"
	"unicode/utf8"
)

// Byte limits for inbound lines. LegacyLineLimit is exposed for callers
// that want to run a stricter RFC 1459-era cap; the driver defaults to
// CurrentLineLimit.
const (
	LegacyLineLimit  = 8192
	CurrentLineLimit = 10240
)

// Message is a parsed IRC line. Every field is copied out of the input
// buffer at parse time, so a Message remains valid after the buffer it was
// parsed from is reused.
type Message struct {
	Raw      string
	Tags     map[string]string
	Source   string
	Nick     string
	User     string
	Host     string
	Verb     string
	Middles  []string
	Trailing string
	HasTrail bool
}

// ParseMessage parses one trimmed (no trailing CR/LF) IRC line. Parser
// failures are always IRCError.
func ParseMessage(line string) (*Message, error) {
	if len(line) == 0 {
		return nil, newErr(IRCError, "empty line")
	}

	msg := &Message{Raw: line}
	rest := line

	if rest[0] == '@' {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, newErr(IRCError, "truncated message tags")
		}
		msg.Tags = make(map[string]string)
		for _, kv := range strings.Split(rest[1:sp], ";") {
			if kv == "" {
				continue
			}
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 1 {
				msg.Tags[parts[0]] = ""
			} else {
				msg.Tags[parts[0]] = unescapeTagValue(parts[1])
			}
		}
		rest = rest[sp+1:]
	}

	if len(rest) == 0 {
		return nil, newErr(IRCError, "missing verb")
	}

	if rest[0] == ':' {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, newErr(IRCError, "truncated source prefix")
		}
		msg.Source = rest[1:sp]
		rest = rest[sp+1:]

		if i, j := strings.IndexByte(msg.Source, '!'), strings.IndexByte(msg.Source, '@'); i > -1 && j > -1 && i < j {
			msg.Nick = msg.Source[:i]
			msg.User = msg.Source[i+1 : j]
			msg.Host = msg.Source[j+1:]
		}
	}

	split := strings.SplitN(rest, " :", 2)
	args := strings.Split(split[0], " ")
	if args[0] == "" {
		return nil, newErr(IRCError, "missing verb")
	}
	msg.Verb = args[0]
	msg.Middles = args[1:]
	if len(split) > 1 {
		msg.Trailing = split[1]
		msg.HasTrail = true
	}
	return msg, nil
}

func unescapeTagValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			switch v[i+1] {
			case ':':
				b.WriteByte(';')
			case 's':
				b.WriteByte(' ')
			case '\\':
				b.WriteByte('\\')
			case 'r':
				b.WriteByte('\r')
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(v[i+1])
			}
			i++
			continue
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// SliceAtMost returns the longest prefix of s that is at most n bytes and
// ends on a UTF-8 rune boundary.
func SliceAtMost(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ChunkByWhitespace splits text into whitespace-aligned chunks of at most
// maxBytes each. Leading and inter-chunk whitespace runs are collapsed
// away; the concatenation of chunks joined by single spaces reproduces
// text's tokens. A single token longer than maxBytes is emitted whole.
func ChunkByWhitespace(text string, maxBytes int) []string {
	var chunks []string
	pos := 0
	for pos < len(text) {
		for pos < len(text) && isASCIISpace(text[pos]) {
			pos++
		}
		if pos >= len(text) {
			break
		}
		rest := text[pos:]
		if len(rest) <= maxBytes {
			chunks = append(chunks, rest)
			pos = len(text)
			break
		}

		splitAt := -1
		limit := maxBytes
		if limit > len(rest) {
			limit = len(rest)
		}
		for i := limit - 1; i >= 0; i-- {
			if isASCIISpace(rest[i]) && utf8.RuneStart(rest[i]) {
				splitAt = i
				break
			}
		}
		if splitAt < 0 {
			for i := limit; i < len(rest); i++ {
				if isASCIISpace(rest[i]) {
					splitAt = i
					break
				}
			}
		}
		if splitAt < 0 {
			splitAt = len(rest)
		}

		chunks = append(chunks, rest[:splitAt])
		pos += splitAt
	}
	return chunks
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}
