package oracle

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"pqlchain/core/events"
	"pqlchain/core/types"
	"pqlchain/native/common"
)

// ModuleName identifies the broker for pause guards and metrics.
const ModuleName = "oracle"

var (
	errNilState        = errors.New("oracle engine: state not configured")
	errNilDeliverer    = errors.New("oracle engine: deliverer not configured")
	errNegativeAmount  = errors.New("oracle engine: negative transfer amount")
	errNegativeFee     = errors.New("oracle engine: fee must be non-negative")
	errInvalidBounds   = errors.New("oracle engine: validity bounds out of order")
	errAlreadyInit     = errors.New("oracle engine: global state already initialised")
	errZeroOracle      = errors.New("oracle engine: oracle identity must not be zero")
)

type engineState interface {
	OracleGlobalGet() (*GlobalState, bool, error)
	OracleGlobalPut(*GlobalState) error
	OracleRequestGet(id uint64) (*Request, bool, error)
	OracleRequestPut(*Request) error
	OracleRequestDelete(id uint64) error
	OracleVaultAddress() ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine wires the broker business logic with external state, the event
// emitter and the callback deliverer. The host executes one call at a time, so
// the engine holds no locks of its own.
type Engine struct {
	state         engineState
	emitter       events.Emitter
	deliverer     Deliverer
	pauses        common.PauseView
	blockFn       func() uint64
	counterMode   CounterMode
	reserveEscrow bool
	subsistence   *big.Int
}

// NewEngine creates a broker engine with a no-op emitter, a zero block source
// and wrapping id allocation. Callers override the collaborators via the
// setters below.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		blockFn: func() uint64 { return 0 },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetDeliverer configures the callback delivery capability used by Fulfill.
func (e *Engine) SetDeliverer(d Deliverer) { e.deliverer = d }

// SetPauses configures the pause view consulted before Submit and Fulfill.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetBlockFunc overrides the block height source. Primarily intended for tests
// to provide deterministic heights.
func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		e.blockFn = func() uint64 { return 0 }
		return
	}
	e.blockFn = fn
}

// SetCounterMode selects wrapping or saturating request id allocation.
func (e *Engine) SetCounterMode(mode CounterMode) { e.counterMode = mode }

// SetReserveEscrow switches reward sweeps to pay out only the vault balance
// in excess of pending escrow. The default mirrors the original ledger and
// sweeps the entire balance, escrow included; see docs/oracle.md for why that
// is unsafe.
func (e *Engine) SetReserveEscrow(enabled bool) { e.reserveEscrow = enabled }

// SetSubsistence configures the minimum-existence threshold enforced on
// transfer recipients. A nil or zero threshold disables the check.
func (e *Engine) SetSubsistence(min *big.Int) {
	if min == nil {
		e.subsistence = nil
		return
	}
	e.subsistence = new(big.Int).Set(min)
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) currentBlock() uint64 {
	if e == nil || e.blockFn == nil {
		return 0
	}
	return e.blockFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Initialise writes the broker genesis state. It fails if a global record is
// already present.
func (e *Engine) Initialise(admin, oracleID [20]byte, users [][20]byte, fee *big.Int, minValid, maxValid uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if oracleID == ([20]byte{}) {
		return errZeroOracle
	}
	if fee != nil && fee.Sign() < 0 {
		return errNegativeFee
	}
	if minValid > maxValid {
		return errInvalidBounds
	}
	if _, ok, err := e.state.OracleGlobalGet(); err != nil {
		return err
	} else if ok {
		return errAlreadyInit
	}
	global := &GlobalState{
		Admin:          admin,
		Oracle:         oracleID,
		FeeWei:         cloneBigInt(fee),
		MinValidPeriod: minValid,
		MaxValidPeriod: maxValid,
		Reserved:       big.NewInt(0),
	}
	for _, user := range users {
		global.AddUser(user)
	}
	return e.state.OracleGlobalPut(global)
}

func (e *Engine) loadGlobal() (*GlobalState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	global, ok, err := e.state.OracleGlobalGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialised
	}
	return global.EnsureDefaults(), nil
}

// Global returns a copy of the broker singleton state.
func (e *Engine) Global() (*GlobalState, error) {
	global, err := e.loadGlobal()
	if err != nil {
		return nil, err
	}
	return global.Clone(), nil
}

// Request looks up a pending entry. Retired requests are indistinguishable
// from ones that never existed.
func (e *Engine) Request(id uint64) (*Request, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	req, ok, err := e.state.OracleRequestGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return req.Clone(), true, nil
}

// transfer moves balance between accounts, enforcing the subsistence
// threshold on the recipient. Errors are mapped to the broker's transfer
// error classes so callers can distinguish an existential-deposit violation
// from a generic failure.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return errNegativeAmount
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	fromAcc = fromAcc.EnsureDefaults()
	toAcc = toAcc.EnsureDefaults()
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	newToBalance := new(big.Int).Add(toAcc.Balance, amt)
	if e.subsistence != nil && e.subsistence.Sign() > 0 && newToBalance.Cmp(e.subsistence) < 0 {
		return ErrBelowSubsistence
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = newToBalance
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := e.state.PutAccount(to[:], toAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

func (e *Engine) vaultBalance() ([20]byte, *big.Int, error) {
	vault, err := e.state.OracleVaultAddress()
	if err != nil {
		return [20]byte{}, nil, err
	}
	acct, err := e.state.GetAccount(vault[:])
	if err != nil {
		return [20]byte{}, nil, err
	}
	return vault, cloneBigInt(acct.EnsureDefaults().Balance), nil
}

// Submit registers a new request. The payment must exactly match the current
// fee whenever the fee is non-zero; overpayment is rejected, not accepted with
// change. In zero-fee mode any attached payment is accepted and lands in the
// vault.
func (e *Engine) Submit(caller [20]byte, feePaid *big.Int, descriptor [32]byte, validPeriod uint32) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return 0, err
	}
	global, err := e.loadGlobal()
	if err != nil {
		return 0, err
	}
	if !global.HasUser(caller) {
		return 0, ErrUnauthorized
	}
	paid := cloneBigInt(feePaid)
	if global.FeeWei.Sign() > 0 && paid.Cmp(global.FeeWei) != 0 {
		return 0, ErrPaymentRequired
	}
	period := uint64(validPeriod)
	if period < global.MinValidPeriod || period > global.MaxValidPeriod {
		return 0, ErrInvalidValidPeriod
	}
	if e.counterMode == CounterSaturating && global.NextRequestID == math.MaxUint64 {
		return 0, ErrRequestIDExhausted
	}
	// Wrapping mode loops around to 0 after the top of the u64 range; a full
	// cycle can overwrite a still-pending entry with the same id.
	id := global.NextRequestID + 1
	currentBlock := e.currentBlock()
	validTill := currentBlock + period

	if paid.Sign() > 0 {
		vault, err := e.state.OracleVaultAddress()
		if err != nil {
			return 0, err
		}
		if err := e.transfer(caller, vault, paid); err != nil {
			return 0, err
		}
	}

	req := &Request{
		ID:          id,
		Requester:   caller,
		Descriptor:  descriptor,
		ValidTill:   validTill,
		EscrowedFee: cloneBigInt(global.FeeWei),
	}
	if err := e.state.OracleRequestPut(req); err != nil {
		return 0, err
	}
	global.NextRequestID = id
	global.Reserved = new(big.Int).Add(global.Reserved, req.EscrowedFee)
	if err := e.state.OracleGlobalPut(global); err != nil {
		return 0, err
	}
	e.emit(events.OracleRequestCreated{
		ID:         id,
		Requester:  caller,
		Descriptor: descriptor,
		ValidTill:  validTill,
		Fee:        cloneBigInt(req.EscrowedFee),
	})
	return id, nil
}

// refundAndRetire returns the escrowed fee to the requester and removes the
// entry. A transfer failure leaves the entry in place and surfaces the error.
func (e *Engine) refundAndRetire(global *GlobalState, req *Request) error {
	amount := cloneBigInt(req.EscrowedFee)
	if amount.Sign() > 0 {
		vault, err := e.state.OracleVaultAddress()
		if err != nil {
			return err
		}
		if err := e.transfer(vault, req.Requester, amount); err != nil {
			return err
		}
	}
	if err := e.state.OracleRequestDelete(req.ID); err != nil {
		return err
	}
	if global.Reserved.Cmp(amount) >= 0 {
		global.Reserved = new(big.Int).Sub(global.Reserved, amount)
	} else {
		global.Reserved = big.NewInt(0)
	}
	if err := e.state.OracleGlobalPut(global); err != nil {
		return err
	}
	e.emit(events.OracleRequestInvalidated{
		ID:        req.ID,
		Requester: req.Requester,
		Amount:    amount,
	})
	return nil
}

// Fulfill delivers a result for a pending request. Expired entries are
// refunded and retired before ErrRequestExpired is reported: a non-nil result
// from this method does not mean nothing happened. A callback failure leaves
// the entry pending so the oracle can retry until the window expires.
func (e *Engine) Fulfill(caller [20]byte, id uint64, target [20]byte, result Result) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Oracle {
		return ErrUnauthorized
	}
	req, ok, err := e.state.OracleRequestGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	currentBlock := e.currentBlock()
	if req.Expired(currentBlock) {
		if err := e.refundAndRetire(global, req); err != nil {
			return err
		}
		return ErrRequestExpired
	}
	if err := result.Validate(); err != nil {
		return err
	}
	if e.deliverer == nil {
		return errNilDeliverer
	}
	if err := e.deliverer.Deliver(target, result); err != nil {
		return fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	if err := e.state.OracleRequestDelete(id); err != nil {
		return err
	}
	// The escrowed fee stops being reserved once the request is answered; it
	// becomes claimable reward.
	fee := cloneBigInt(req.EscrowedFee)
	if global.Reserved.Cmp(fee) >= 0 {
		global.Reserved = new(big.Int).Sub(global.Reserved, fee)
	} else {
		global.Reserved = big.NewInt(0)
	}
	if err := e.state.OracleGlobalPut(global); err != nil {
		return err
	}
	e.emit(events.OracleRequestFulfilled{
		ID:          id,
		Target:      target,
		ResultKind:  result.Kind.String(),
		ResultValue: result.ValueString(),
	})
	return nil
}

// ClearExpired proactively refunds and retires a stale entry, freeing ledger
// storage for requests the oracle never answered.
func (e *Engine) ClearExpired(caller [20]byte, id uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Oracle && caller != global.Admin {
		return ErrUnauthorized
	}
	req, ok, err := e.state.OracleRequestGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	if !req.Expired(e.currentBlock()) {
		return ErrRequestNotExpired
	}
	return e.refundAndRetire(global, req)
}

// sweepRewards pays the claimable vault balance to the recipient. With escrow
// reservation enabled only the balance in excess of pending escrow is paid
// out; the default mode sweeps everything, pending escrow included.
func (e *Engine) sweepRewards(global *GlobalState, recipient [20]byte) error {
	vault, balance, err := e.vaultBalance()
	if err != nil {
		return err
	}
	if e.reserveEscrow {
		balance = new(big.Int).Sub(balance, global.Reserved)
	}
	if balance.Sign() <= 0 {
		return nil
	}
	if err := e.transfer(vault, recipient, balance); err != nil {
		return err
	}
	e.emit(events.OracleRewardsClaimed{Oracle: recipient, Amount: balance})
	return nil
}

// ClaimRewards sweeps the accrued balance to the trusted oracle. A zero
// balance is a successful no-op.
func (e *Engine) ClaimRewards(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Oracle {
		return ErrUnauthorized
	}
	return e.sweepRewards(global, global.Oracle)
}

// SetFee updates the submission fee. Pending requests keep the fee escrowed
// when they were created; the change applies only to later submissions.
func (e *Engine) SetFee(caller [20]byte, newFee *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Admin {
		return ErrUnauthorized
	}
	if newFee != nil && newFee.Sign() < 0 {
		return errNegativeFee
	}
	previous := cloneBigInt(global.FeeWei)
	global.FeeWei = cloneBigInt(newFee)
	if err := e.state.OracleGlobalPut(global); err != nil {
		return err
	}
	e.emit(events.OracleFeeChanged{Previous: previous, Next: cloneBigInt(global.FeeWei)})
	return nil
}

// SetOracle rotates the trusted oracle identity. Outstanding rewards are swept
// to the current oracle first so they are not stranded with an identity that
// can no longer claim them; a sweep failure aborts the rotation.
func (e *Engine) SetOracle(caller [20]byte, newOracle [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Admin {
		return ErrUnauthorized
	}
	if newOracle == ([20]byte{}) {
		return errZeroOracle
	}
	if err := e.sweepRewards(global, global.Oracle); err != nil {
		return err
	}
	previous := global.Oracle
	global.Oracle = newOracle
	if err := e.state.OracleGlobalPut(global); err != nil {
		return err
	}
	e.emit(events.OracleRotated{Previous: previous, Next: newOracle})
	return nil
}

// AddUser grants an identity submit access. Adding a present user succeeds
// silently; the membership notification is emitted either way.
func (e *Engine) AddUser(caller [20]byte, user [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Admin {
		return ErrUnauthorized
	}
	if global.AddUser(user) {
		if err := e.state.OracleGlobalPut(global); err != nil {
			return err
		}
	}
	e.emit(events.OracleUserAdded{User: user})
	return nil
}

// RemoveUser revokes an identity's submit access. Removing an absent user
// succeeds silently; the membership notification is emitted either way.
func (e *Engine) RemoveUser(caller [20]byte, user [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	global, err := e.loadGlobal()
	if err != nil {
		return err
	}
	if caller != global.Admin {
		return ErrUnauthorized
	}
	if global.RemoveUser(user) {
		if err := e.state.OracleGlobalPut(global); err != nil {
			return err
		}
	}
	e.emit(events.OracleUserRemoved{User: user})
	return nil
}
