package irc

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestParseMessageBasic(t *testing.T) {
	msg, err := ParseMessage("CAP LS 302")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Message{Raw: "CAP LS 302", Verb: "CAP", Middles: []string{"LS", "302"}}
	if diff := deep.Equal(msg, want); diff != nil {
		t.Errorf("parse mismatch: %v", diff)
	}
}

func TestParseMessageWithSourceAndTrailing(t *testing.T) {
	msg, err := ParseMessage(":nick!user@host PRIVMSG #chan :hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Nick != "nick" || msg.User != "user" || msg.Host != "host" {
		t.Fatalf("prefix not split correctly: %+v", msg)
	}
	if msg.Verb != "PRIVMSG" || len(msg.Middles) != 1 || msg.Middles[0] != "#chan" {
		t.Fatalf("verb/middles wrong: %+v", msg)
	}
	if !msg.HasTrail || msg.Trailing != "hello there" {
		t.Fatalf("trailing wrong: %+v", msg)
	}
}

func TestParseMessageWithTags(t *testing.T) {
	msg, err := ParseMessage("@time=2024-01-01T00:00:00Z;id=123 PING :abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Tags["id"] != "123" {
		t.Fatalf("tags not parsed: %+v", msg.Tags)
	}
	if msg.Verb != "PING" || msg.Trailing != "abc" {
		t.Fatalf("rest of message not parsed after tags: %+v", msg)
	}
}

func TestParseMessageEmptyIsError(t *testing.T) {
	if _, err := ParseMessage(""); err == nil {
		t.Fatal("expected error for empty line")
	}
}

func TestSliceAtMostRespectsRuneBoundaries(t *testing.T) {
	s := "héllo" // 'é' is 2 bytes in UTF-8
	for n := 0; n <= len(s); n++ {
		got := SliceAtMost(s, n)
		if len(got) > n {
			t.Errorf("SliceAtMost(%q, %d) = %q, longer than budget", s, n, got)
		}
		if !strings.HasPrefix(s, got) {
			t.Errorf("SliceAtMost(%q, %d) = %q is not a prefix", s, n, got)
		}
	}
}

func TestChunkByWhitespaceCoversEveryToken(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	chunks := ChunkByWhitespace(text, 12)
	joined := strings.Join(chunks, " ")
	if joined != text {
		t.Fatalf("chunks did not reconstruct text: got %q want %q", joined, text)
	}
	for _, c := range chunks {
		if len(c) > 12 {
			t.Errorf("chunk %q exceeds budget", c)
		}
	}
}

func TestChunkByWhitespaceSingleOversizeToken(t *testing.T) {
	text := "thisoneword-is-longer-than-the-budget"
	chunks := ChunkByWhitespace(text, 10)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("expected the oversize token whole, got %v", chunks)
	}
}

func TestChunkByWhitespaceCollapsesLeadingWhitespace(t *testing.T) {
	text := "   a    b   c  "
	chunks := ChunkByWhitespace(text, 100)
	// The whole remainder fits the budget in one shot, so only leading
	// whitespace is skipped; trailing whitespace rides along in the final
	// chunk, matching the chunker's one-token-of-whitespace-per-split rule.
	if len(chunks) != 1 || chunks[0] != "a    b   c  " {
		t.Fatalf("expected leading whitespace collapsed only, got %v", chunks)
	}
}
