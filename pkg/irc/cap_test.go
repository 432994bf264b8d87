package irc

import (
	"bufio"
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/rsr-chat/rsrserver/pkg/storage"
)

func newCapTestContext() (*Context, *bytes.Buffer) {
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	ctx := NewContext(NewSession(), storage.Nop{}, out, rand.New(rand.NewSource(1)), NewChannelHub(), nil, NewAnonymousState())
	return ctx, &buf
}

// CAP LS 302 must produce a multiline reply (middle chunks use "LS * :",
// the final chunk uses "LS :") whose tokens cover the entire catalog.
func TestCapLS302ProducesMultilineCoveringCatalog(t *testing.T) {
	ctx, buf := newCapTestContext()
	msg, err := ParseMessage("CAP LS 302")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := Dispatch(ctx, msg); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	if len(lines) < 2 {
		t.Fatalf("expected a multiline LS reply, got %d lines: %v", len(lines), lines)
	}
	for _, l := range lines[:len(lines)-1] {
		if !strings.HasPrefix(l, "CAP * LS * :") {
			t.Errorf("non-final line missing continuation marker: %q", l)
		}
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "CAP * LS :") {
		t.Errorf("final line missing terminal marker: %q", last)
	}

	var allTokens []string
	for _, l := range lines {
		payload := l
		if i := strings.Index(l, " :"); i >= 0 {
			payload = l[i+2:]
		}
		allTokens = append(allTokens, strings.Fields(payload)...)
	}
	bits, unsupported := FromStringList(allTokens)
	if len(unsupported) != 0 {
		t.Fatalf("LS emitted unrecognized tokens: %v", unsupported)
	}
	for _, e := range capCatalog {
		if !bits.Has(e.bit) {
			t.Errorf("catalog token %q missing from CAP LS 302 reply", e.token)
		}
	}
	if ctx.Session.CapsVersion != 302 {
		t.Errorf("expected caps version 302, got %d", ctx.Session.CapsVersion)
	}
}

// CAP REQ :sasl server-time must ACK both and enable both bits.
func TestCapReqAllValidTokensAck(t *testing.T) {
	ctx, buf := newCapTestContext()
	msg, err := ParseMessage("CAP REQ :sasl server-time")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := Dispatch(ctx, msg); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "CAP * ACK :") {
		t.Fatalf("expected an ACK line, got %q", out)
	}
	if strings.Contains(out, "NAK") {
		t.Fatalf("did not expect a NAK line, got %q", out)
	}
	if !ctx.Session.CapsEnabled.Has(CapSasl) || !ctx.Session.CapsEnabled.Has(CapServerTime) {
		t.Fatalf("expected both sasl and server-time enabled, got %b", ctx.Session.CapsEnabled)
	}
}

// CAP REQ :foo sasl bar must ACK sasl alone and NAK foo and bar.
func TestCapReqPartitionsValidAndInvalid(t *testing.T) {
	ctx, buf := newCapTestContext()
	msg, err := ParseMessage("CAP REQ :foo sasl bar")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := Dispatch(ctx, msg); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	var ackLine, nakLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "CAP * ACK :") {
			ackLine = l
		}
		if strings.HasPrefix(l, "CAP * NAK :") {
			nakLine = l
		}
	}
	if ackLine != "CAP * ACK :sasl" {
		t.Errorf("expected ACK line for sasl alone, got %q", ackLine)
	}
	nakTokens := strings.Fields(strings.TrimPrefix(nakLine, "CAP * NAK :"))
	if len(nakTokens) != 2 {
		t.Fatalf("expected 2 NAK tokens, got %v", nakTokens)
	}
	seen := map[string]bool{nakTokens[0]: true, nakTokens[1]: true}
	if !seen["foo"] || !seen["bar"] {
		t.Errorf("expected foo and bar NAKed, got %v", nakTokens)
	}
	if !ctx.Session.CapsEnabled.Has(CapSasl) {
		t.Error("expected sasl enabled despite partial NAK")
	}
}

func TestCapReqFreezesRegistrationUntilEnd(t *testing.T) {
	ctx, _ := newCapTestContext()
	ctx.state.Anon = Anonymous{Nick: "n", User: "u", Real: "r"}

	reqMsg, _ := ParseMessage("CAP REQ :sasl")
	if err := Dispatch(ctx, reqMsg); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if ctx.State().Kind != KindAnonymous {
		t.Fatalf("expected to remain Anonymous mid-negotiation, got %v", ctx.State().Kind)
	}
	if !ctx.state.Anon.RegFrozen {
		t.Fatal("expected RegFrozen to be set during CAP negotiation")
	}

	endMsg, _ := ParseMessage("CAP END")
	if err := Dispatch(ctx, endMsg); err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if ctx.State().Kind != KindRegistered {
		t.Fatalf("expected registration to complete after CAP END, got %v", ctx.State().Kind)
	}
}

func TestCapLSBelow302IsUnsupported(t *testing.T) {
	ctx, buf := newCapTestContext()
	msg, err := ParseMessage("CAP LS 301")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := Dispatch(ctx, msg); !IsSessionErrorKind(err, UnsupportedCap) {
		t.Fatalf("expected UnsupportedCap, got %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR :") {
		t.Fatalf("expected an ERROR line, got %q", buf.String())
	}
}
