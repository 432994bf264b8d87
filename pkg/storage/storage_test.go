package storage

import (
	"context"
	"testing"
)

func TestNopWhoisAlwaysReportsUnknown(t *testing.T) {
	var s Storage = Nop{}
	who, err := s.Whois(context.Background(), "anyone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if who != nil {
		t.Fatalf("expected a nil Whois, got %+v", who)
	}
}
