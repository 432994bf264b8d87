package netdiag

import (
	"net"
	"testing"
)

func TestLookupMissingSessionReportsNotOK(t *testing.T) {
	tbl := NewTable()
	if _, _, ok := tbl.Lookup("nonexistent"); ok {
		t.Fatal("expected ok=false for an unregistered session")
	}
}

func TestRegisterUnregisterRoundTripOverRealTCPConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	tbl := NewTable()
	tbl.Register("sess-1", server, "127.0.0.1:1234")

	fd, label, ok := tbl.Lookup("sess-1")
	if !ok {
		t.Fatal("expected the session to be registered over a real TCP connection")
	}
	if fd < 0 {
		t.Errorf("expected a non-negative fd, got %d", fd)
	}
	if label != "127.0.0.1:1234" {
		t.Errorf("got label %q", label)
	}

	tbl.Unregister("sess-1")
	if _, _, ok := tbl.Lookup("sess-1"); ok {
		t.Fatal("expected the session to be gone after Unregister")
	}
}

func TestRegisterOnNonFdConnIsNoop(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	tbl := NewTable()
	tbl.Register("sess-pipe", serverConn, "pipe")
	if _, _, ok := tbl.Lookup("sess-pipe"); ok {
		t.Fatal("expected net.Pipe (no underlying fd) to not be registered")
	}
}
