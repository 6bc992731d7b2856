package oracle

import (
	"fmt"
	"sync"
)

// SelectorOracleResult is the fixed selector a callback recipient must expose.
// The value is part of the public wire contract between the broker and its
// consumers and must not change.
var SelectorOracleResult = [4]byte{0xB1, 0x6B, 0x00, 0xB5}

// CallbackGasLimit bounds the gas allowance forwarded with a delivery call.
// Deliveries carry zero value: the escrowed fee never travels with the result.
const CallbackGasLimit uint64 = 1_000_000

// Deliverer performs the cross-contract delivery call on behalf of the
// fulfillment protocol. Isolating the invocation mechanics behind this
// capability keeps the protocol independently testable with a fake that can
// simulate both success and failure.
type Deliverer interface {
	Deliver(target [20]byte, result Result) error
}

// Consumer is the entry point a callback recipient registers under the
// reserved selector. Delivery is at-most-once per request: a consumer must
// not assume more.
type Consumer interface {
	HandleOracleResult(caller [20]byte, result Result) error
}

// Router is the production Deliverer: a registry of consumer contracts keyed
// by address. Deliveries identify the broker as the caller so consumers can
// gate on the trusted oracle broker address.
type Router struct {
	mu        sync.RWMutex
	broker    [20]byte
	consumers map[[20]byte]Consumer
}

// NewRouter constructs a router that will present the supplied broker address
// as the caller of every delivery.
func NewRouter(broker [20]byte) *Router {
	return &Router{
		broker:    broker,
		consumers: make(map[[20]byte]Consumer),
	}
}

// Register binds a consumer to a target address, replacing any previous
// binding.
func (r *Router) Register(target [20]byte, consumer Consumer) {
	if r == nil || consumer == nil {
		return
	}
	r.mu.Lock()
	r.consumers[target] = consumer
	r.mu.Unlock()
}

// Deliver implements the Deliverer interface. An unknown target or a consumer
// error is reported as a delivery failure; the fulfillment protocol maps it to
// ErrCallbackFailed and leaves the request pending.
func (r *Router) Deliver(target [20]byte, result Result) error {
	if r == nil {
		return fmt.Errorf("oracle: router not configured")
	}
	if err := result.Validate(); err != nil {
		return err
	}
	r.mu.RLock()
	consumer, ok := r.consumers[target]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("oracle: no consumer registered at target")
	}
	return consumer.HandleOracleResult(r.broker, result)
}
