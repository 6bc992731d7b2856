// Package pricefeed is a reference consumer for the oracle broker. It keeps
// the latest numeric reading delivered through the reserved callback selector
// and ignores raw-byte payloads it does not understand.
package pricefeed

import (
	"errors"
	"sync"

	"pqlchain/native/oracle"
)

// ErrUntrustedCaller is returned when a delivery does not originate from the
// configured broker address.
var ErrUntrustedCaller = errors.New("pricefeed: untrusted caller")

// Feed stores the most recent numeric oracle reading. Prices are fixed-point
// integers with eight decimal places of precision.
type Feed struct {
	mu     sync.RWMutex
	broker [20]byte
	latest int64
	set    bool
}

// NewFeed constructs a feed trusting deliveries from the given broker address,
// seeded with an initial reading.
func NewFeed(broker [20]byte, initial int64) *Feed {
	return &Feed{broker: broker, latest: initial}
}

// HandleOracleResult implements oracle.Consumer. Only the trusted broker may
// update the feed; at most one delivery arrives per request id.
func (f *Feed) HandleOracleResult(caller [20]byte, result oracle.Result) error {
	if caller != f.broker {
		return ErrUntrustedCaller
	}
	if result.Kind != oracle.ResultNumeric {
		// the feed only consumes numeric readings
		return nil
	}
	f.mu.Lock()
	f.latest = result.Numeric
	f.set = true
	f.mu.Unlock()
	return nil
}

// Latest returns the most recent reading and whether one has arrived since
// construction.
func (f *Feed) Latest() (int64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.set
}
