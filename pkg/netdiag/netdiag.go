// Copyright (c) 2024 Jerzy Dąbrowski
//
// Package netdiag correlates accepted connections with their raw file
// descriptor, purely so an operator can match a session id (the session_id
// log field) back to `ss`/`netstat` output. It never influences protocol
// behavior.
package netdiag

import (
	"net"
	"sync"

	"github.com/higebu/netfd"
)

// entry pairs a session id with the fd it was registered under.
type entry struct {
	fd    int
	label string
}

// Table is a small registry from session id to raw fd, safe for
// concurrent use across connection goroutines.
type Table struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewTable returns an empty registry.
func NewTable() *Table {
	return &Table{entries: make(map[string]entry)}
}

// Register extracts conn's raw fd via netfd and records it under
// sessionID with an operator-facing label (typically the remote address).
// Extraction failure (non-Linux, or conn isn't a *net.TCPConn) is not an
// error: Lookup simply reports ok=false for that session afterward.
func (t *Table) Register(sessionID string, conn net.Conn, label string) {
	fd := netfd.GetFdFromConn(conn)
	if fd < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[sessionID] = entry{fd: fd, label: label}
}

// Unregister drops a session's fd record on connection close.
func (t *Table) Unregister(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, sessionID)
}

// Lookup returns the raw fd and label registered for sessionID, if any.
func (t *Table) Lookup(sessionID string) (fd int, label string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[sessionID]
	return e.fd, e.label, ok
}
