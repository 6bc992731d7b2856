package core

import (
	"math/big"
	"sync"
	"time"

	"pqlchain/core/events"
	"pqlchain/core/state"
	"pqlchain/core/types"
	"pqlchain/native/etl"
	"pqlchain/native/oracle"
	"pqlchain/native/pricefeed"
	"pqlchain/native/rng"
	"pqlchain/observability"
	"pqlchain/storage"

	entropystore "pqlchain/native/entropy"
)

// Node owns the ledger state and the native module engines and serialises
// access to them: one call mutates state at a time, matching the execution
// model the engines assume. Every mutating call advances the block counter
// by one.
type Node struct {
	mu sync.Mutex

	manager *state.Manager
	engine  *oracle.Engine
	router  *oracle.Router
	feed    *pricefeed.Feed
	entropy *entropystore.Store
	rng     *rng.Store
	etl     *etl.Store
	emitter *events.MemoryEmitter
	metrics *observability.BrokerMetrics
	vault   [20]byte

	height  uint64
	pending int64
}

// NodeConfig carries the genesis parameters for a fresh broker ledger.
type NodeConfig struct {
	Admin          [20]byte
	Oracle         [20]byte
	Users          [][20]byte
	Fee            *big.Int
	MinValidPeriod uint64
	MaxValidPeriod uint64
	CounterMode    oracle.CounterMode
	ReserveEscrow  bool
	Subsistence    *big.Int
}

// NewNode wires the engines over the supplied database. When the ledger is
// fresh the genesis state is written from the config; an existing ledger is
// reopened as-is and the genesis parameters are ignored.
func NewNode(db storage.Database, cfg NodeConfig) (*Node, error) {
	manager := state.NewManager(db)
	emitter := events.NewMemoryEmitter()

	engine := oracle.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(emitter)
	engine.SetCounterMode(cfg.CounterMode)
	engine.SetReserveEscrow(cfg.ReserveEscrow)
	engine.SetSubsistence(cfg.Subsistence)

	if _, ok, err := manager.OracleGlobalGet(); err != nil {
		return nil, err
	} else if !ok {
		if err := engine.Initialise(cfg.Admin, cfg.Oracle, cfg.Users, cfg.Fee, cfg.MinValidPeriod, cfg.MaxValidPeriod); err != nil {
			return nil, err
		}
		emitter.Drain()
	}

	vault, err := manager.OracleVaultAddress()
	if err != nil {
		return nil, err
	}
	router := oracle.NewRouter(vault)
	engine.SetDeliverer(router)

	feed := pricefeed.NewFeed(vault, 0)

	entropyStore := entropystore.NewStore(cfg.Oracle)
	entropyStore.SetState(manager)
	entropyStore.SetEmitter(emitter)

	rngStore := rng.NewStore(cfg.Oracle)
	rngStore.SetState(manager)
	rngStore.SetEmitter(emitter)

	etlStore := etl.NewStore()
	etlStore.SetEmitter(emitter)

	node := &Node{
		manager: manager,
		engine:  engine,
		router:  router,
		feed:    feed,
		entropy: entropyStore,
		rng:     rngStore,
		etl:     etlStore,
		emitter: emitter,
		metrics: observability.Broker(),
		vault:   vault,
		height:  1,
	}
	engine.SetBlockFunc(node.currentHeight)
	return node, nil
}

// RegisterConsumer binds a callback recipient to a target address.
func (n *Node) RegisterConsumer(target [20]byte, consumer oracle.Consumer) {
	n.router.Register(target, consumer)
}

// PriceFeed returns the built-in reference consumer.
func (n *Node) PriceFeed() *pricefeed.Feed { return n.feed }

func (n *Node) currentHeight() uint64 {
	return n.height
}

// Height returns the current block height.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// AdvanceBlocks moves the block counter forward so that pending validity
// windows can elapse. Exposed for devnet operation and tests.
func (n *Node) AdvanceBlocks(count uint64) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.height += count
	return n.height
}

// finish records the outcome of a mutating call and drains the events it
// produced. The pending gauge follows lifecycle events rather than a state
// scan: requests enter on creation and leave on fulfilment or invalidation.
func (n *Node) finish(operation string, start time.Time, err error) []*types.Event {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	n.metrics.ObserveOperation(operation, outcome, time.Since(start))
	drained := n.emitter.Drain()
	for _, evt := range drained {
		switch evt.Type {
		case events.TypeOracleRequestCreated:
			n.pending++
		case events.TypeOracleRequestInvalidated, events.TypeOracleRequestFulfilled:
			n.pending--
		}
	}
	n.metrics.SetPending(float64(n.pending))
	if acct, aerr := n.manager.GetAccount(n.vault[:]); aerr == nil {
		bal, _ := new(big.Float).SetInt(acct.EnsureDefaults().Balance).Float64()
		n.metrics.SetVaultBalance(bal)
	}
	return drained
}

// SubmitRequest registers an oracle request on behalf of caller.
func (n *Node) SubmitRequest(caller [20]byte, feePaid *big.Int, descriptor [32]byte, validPeriod uint32) (uint64, []*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	id, err := n.engine.Submit(caller, feePaid, descriptor, validPeriod)
	return id, n.finish("submit", start, err), err
}

// Fulfill delivers a result for a pending request.
func (n *Node) Fulfill(caller [20]byte, id uint64, target [20]byte, result oracle.Result) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.Fulfill(caller, id, target, result)
	return n.finish("fulfill", start, err), err
}

// ClaimRewards sweeps the accrued vault balance to the oracle.
func (n *Node) ClaimRewards(caller [20]byte) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.ClaimRewards(caller)
	return n.finish("claimRewards", start, err), err
}

// ClearExpired refunds and retires a stale request.
func (n *Node) ClearExpired(caller [20]byte, id uint64) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.ClearExpired(caller, id)
	return n.finish("clearExpired", start, err), err
}

// SetFee updates the submission fee for future requests.
func (n *Node) SetFee(caller [20]byte, fee *big.Int) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.SetFee(caller, fee)
	return n.finish("setFee", start, err), err
}

// SetOracle rotates the trusted oracle identity.
func (n *Node) SetOracle(caller [20]byte, next [20]byte) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.SetOracle(caller, next)
	return n.finish("setOracle", start, err), err
}

// AddUser grants an identity submit access.
func (n *Node) AddUser(caller [20]byte, user [20]byte) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.AddUser(caller, user)
	return n.finish("addUser", start, err), err
}

// RemoveUser revokes an identity's submit access.
func (n *Node) RemoveUser(caller [20]byte, user [20]byte) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	n.height++
	err := n.engine.RemoveUser(caller, user)
	return n.finish("removeUser", start, err), err
}

// GetRequest looks up a pending request.
func (n *Node) GetRequest(id uint64) (*oracle.Request, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Request(id)
}

// Global returns a copy of the broker singleton state.
func (n *Node) Global() (*oracle.GlobalState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Global()
}

// GetBalance loads the balance recorded for an address.
func (n *Node) GetBalance(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acct, err := n.manager.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return acct.EnsureDefaults().Balance, nil
}

// Credit mints balance onto an address. Devnet convenience: a production
// deployment funds accounts through the enclosing ledger instead.
func (n *Node) Credit(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	acct, err := n.manager.GetAccount(addr[:])
	if err != nil {
		return err
	}
	acct = acct.EnsureDefaults()
	acct.Balance = new(big.Int).Add(acct.Balance, amount)
	return n.manager.PutAccount(addr[:], acct)
}

// Entropy returns the entropy request store.
func (n *Node) Entropy() *entropystore.Store { return n.entropy }

// RNG returns the random-number request store.
func (n *Node) RNG() *rng.Store { return n.rng }

// ETL returns the descriptor announcement store.
func (n *Node) ETL() *etl.Store { return n.etl }
