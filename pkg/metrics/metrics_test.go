package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsConnectionLifecycle(t *testing.T) {
	c := Collectors{}
	before := testutil.ToFloat64(ConnectionsTotal)

	c.ConnectionOpened()
	if got := testutil.ToFloat64(ConnectionsTotal); got != before+1 {
		t.Fatalf("ConnectionsTotal = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(ConnectionsActive); got < 1 {
		t.Fatalf("ConnectionsActive = %v, want >= 1", got)
	}

	c.ConnectionClosed(5 * time.Second)
}

func TestCollectorsMessageDispatched(t *testing.T) {
	c := Collectors{}
	c.MessageDispatched("PRIVMSG")
	if got := testutil.ToFloat64(MessagesTotal.WithLabelValues("PRIVMSG")); got < 1 {
		t.Fatalf("MessagesTotal{verb=PRIVMSG} = %v, want >= 1", got)
	}
}

func TestCollectorsCapNegotiation(t *testing.T) {
	c := Collectors{}
	c.CapNegotiation("ack")
	if got := testutil.ToFloat64(CapNegotiationsTotal.WithLabelValues("ack")); got < 1 {
		t.Fatalf("CapNegotiationsTotal{result=ack} = %v, want >= 1", got)
	}
}

func TestCollectorsPingTimeout(t *testing.T) {
	c := Collectors{}
	before := testutil.ToFloat64(PingTimeoutsTotal)
	c.PingTimeout()
	if got := testutil.ToFloat64(PingTimeoutsTotal); got != before+1 {
		t.Fatalf("PingTimeoutsTotal = %v, want %v", got, before+1)
	}
}
