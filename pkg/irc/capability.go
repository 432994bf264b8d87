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

// Capability is a bit position in the capability bitset. The catalog order
// below is load-bearing: CAP LS advertises tokens in this order, and the
// bit position is derived from a token's index.
type Capability uint64

// Cap is the full rsr.chat capability catalog, in CAP LS advertisement
// order. Each entry's bit is 1 << index.
const (
	CapAccountNotify Capability = 1 << iota
	CapAccountTag
	CapAwayNotify
	CapBatch
	CapChannelRename
	CapChatHistory
	CapEchoMessage
	CapExtendedJoin
	CapLabeledResponse
	CapMessageRedaction
	CapMessageTags
	CapMonitor
	CapMultiPrefix
	CapMultiline
	CapPreAway
	CapReadMarker
	CapSasl
	CapServerTime
	CapStandardReplies
	CapUserhostInNames
	CapRsrMassiveMessage    // message body up to 2048 bytes instead of 512
	CapRsrPlcOauthbearer    // SASL OAUTHBEARER extension supporting PLC lookups via DID
	CapRsrDidSigning        // DID message signing tags
	CapRsrModeration        // advanced moderation tools, interoperable with other rsr.chat extensions
	CapRsrRbac              // role-based ACLs for users
	CapRsrOnboarding        // per-server onboarding flow tooling
	CapRsrExternalNotify    // account-notify/away-notify etc. backed by a decentralized PLC method
	CapRsrPendingMessages   // MARKREAD extension for querying unread-channel state
	CapRsrPins              // channel-wide saved pinned message lists
	CapRsrMessageRevision   // message edits, with configurable edit-history visibility
	CapRsrMessageLink       // links to other messages
	CapRsrMessageReply      // messages marked as replies to other messages
	CapRsrAccountProfile    // account bios, statuses, tags, etc. over a PDS
	CapRsrModernPing        // @USER, @HERE, @EVERYONE and (with RBAC) @role pings
	CapRsrReact             // message reactions
	CapRsrEmote             // custom server emoticons
	CapRsrSticker           // custom server stickers
	CapRsrServerMeta        // generalized server-wide metadata extension
	CapRsrChannelMeta       // generalized per-channel metadata extension
	CapRsrChannelCategory   // sorted channel categories, built on rsr.chat/channel-meta
	CapRsrChannelNsfw       // content tagging to restrict channel access by age/verification
	CapRsrVoice             // real time voice chat
	CapRsrVideo             // real time video chat
)

// capEntry pairs a catalog token with its bit, in advertisement order.
type capEntry struct {
	token string
	bit   Capability
}

var capCatalog = []capEntry{
	{"account-notify", CapAccountNotify},
	{"account-tag", CapAccountTag},
	{"away-notify", CapAwayNotify},
	{"batch", CapBatch},
	{"channel-rename", CapChannelRename},
	{"chathistory", CapChatHistory},
	{"echo-message", CapEchoMessage},
	{"extended-join", CapExtendedJoin},
	{"labeled-response", CapLabeledResponse},
	{"message-redaction", CapMessageRedaction},
	{"message-tags", CapMessageTags},
	{"monitor", CapMonitor},
	{"multi-prefix", CapMultiPrefix},
	{"multiline", CapMultiline},
	{"pre-away", CapPreAway},
	{"read-marker", CapReadMarker},
	{"sasl", CapSasl},
	{"server-time", CapServerTime},
	{"standard-replies", CapStandardReplies},
	{"userhost-in-names", CapUserhostInNames},
	{"rsr.chat/massive-message", CapRsrMassiveMessage},
	{"rsr.chat/plc-oauthbearer", CapRsrPlcOauthbearer},
	{"rsr.chat/did-signing", CapRsrDidSigning},
	{"rsr.chat/moderation", CapRsrModeration},
	{"rsr.chat/rbac", CapRsrRbac},
	{"rsr.chat/onboarding", CapRsrOnboarding},
	{"rsr.chat/external-notify", CapRsrExternalNotify},
	{"rsr.chat/pending-messages", CapRsrPendingMessages},
	{"rsr.chat/pins", CapRsrPins},
	{"rsr.chat/message-revision", CapRsrMessageRevision},
	{"rsr.chat/message-link", CapRsrMessageLink},
	{"rsr.chat/message-reply", CapRsrMessageReply},
	{"rsr.chat/account-profile", CapRsrAccountProfile},
	{"rsr.chat/modern-ping", CapRsrModernPing},
	{"rsr.chat/react", CapRsrReact},
	{"rsr.chat/emote", CapRsrEmote},
	{"rsr.chat/sticker", CapRsrSticker},
	{"rsr.chat/server-meta", CapRsrServerMeta},
	{"rsr.chat/channel-meta", CapRsrChannelMeta},
	{"rsr.chat/channel-category", CapRsrChannelCategory},
	{"rsr.chat/channel-nsfw", CapRsrChannelNsfw},
	{"rsr.chat/voice", CapRsrVoice},
	{"rsr.chat/video", CapRsrVideo},
}

var capByToken = func() map[string]Capability {
	m := make(map[string]Capability, len(capCatalog))
	for _, e := range capCatalog {
		m[e.token] = e.bit
	}
	return m
}()

// CapLSLine renders the full catalog as the single-line CAP LS body
// (space-separated tokens, catalog order). Chunking it to fit the 490-byte
// multiline budget is the caller's job (see ChunkByWhitespace).
func CapLSLine() string {
	out := make([]byte, 0, 1024)
	for i, e := range capCatalog {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, e.token...)
	}
	return string(out)
}

// FromStringList partitions a whitespace-separated token list into
// recognized capability bits and unrecognized tokens. Every input token
// appears in exactly one output.
func FromStringList(tokens []string) (recognized Capability, unsupported []string) {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if bit, ok := capByToken[tok]; ok {
			recognized |= bit
		} else {
			unsupported = append(unsupported, tok)
		}
	}
	return recognized, unsupported
}

// Has reports whether all bits in want are set in c.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}
