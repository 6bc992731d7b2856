package pricefeed

import (
	"errors"
	"testing"

	"pqlchain/native/oracle"
)

var (
	broker   = [20]byte{0x01}
	stranger = [20]byte{0x02}
)

func TestFeedAcceptsOnlyTrustedBroker(t *testing.T) {
	feed := NewFeed(broker, 0)

	if err := feed.HandleOracleResult(stranger, oracle.NumericResult(10)); !errors.Is(err, ErrUntrustedCaller) {
		t.Fatalf("expected ErrUntrustedCaller, got %v", err)
	}
	if _, ok := feed.Latest(); ok {
		t.Fatalf("rejected delivery must not update the feed")
	}

	if err := feed.HandleOracleResult(broker, oracle.NumericResult(42)); err != nil {
		t.Fatalf("trusted delivery: %v", err)
	}
	latest, ok := feed.Latest()
	if !ok || latest != 42 {
		t.Fatalf("latest = %d/%v, want 42", latest, ok)
	}
}

func TestFeedIgnoresRawBytes(t *testing.T) {
	feed := NewFeed(broker, 7)

	if err := feed.HandleOracleResult(broker, oracle.RawBytesResult([32]byte{0xFF})); err != nil {
		t.Fatalf("raw payload must be accepted and dropped: %v", err)
	}
	latest, ok := feed.Latest()
	if ok || latest != 7 {
		t.Fatalf("raw payload must not change the reading")
	}
}

func TestFeedBehindRouter(t *testing.T) {
	router := oracle.NewRouter(broker)
	target := [20]byte{0x09}
	feed := NewFeed(broker, 0)
	router.Register(target, feed)

	if err := router.Deliver(target, oracle.NumericResult(9_000_00000001)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if latest, _ := feed.Latest(); latest != 9_000_00000001 {
		t.Fatalf("latest = %d", latest)
	}

	if err := router.Deliver([20]byte{0x77}, oracle.NumericResult(1)); err == nil {
		t.Fatalf("unregistered target must fail delivery")
	}
}
