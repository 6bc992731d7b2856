package oracle

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"testing"

	"pqlchain/core/events"
	"pqlchain/core/types"
)

type mockState struct {
	global   *GlobalState
	requests map[uint64]*Request
	accounts map[[20]byte]*types.Account
	vault    [20]byte
}

func newMockState() *mockState {
	return &mockState{
		requests: make(map[uint64]*Request),
		accounts: make(map[[20]byte]*types.Account),
		vault:    newTestAddress(0xAA),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) OracleGlobalGet() (*GlobalState, bool, error) {
	if m.global == nil {
		return nil, false, nil
	}
	return m.global.Clone(), true, nil
}

func (m *mockState) OracleGlobalPut(g *GlobalState) error {
	m.global = g.Clone()
	return nil
}

func (m *mockState) OracleRequestGet(id uint64) (*Request, bool, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, false, nil
	}
	return req.Clone(), true, nil
}

func (m *mockState) OracleRequestPut(req *Request) error {
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *mockState) OracleRequestDelete(id uint64) error {
	delete(m.requests, id)
	return nil
}

func (m *mockState) OracleVaultAddress() ([20]byte, error) {
	return m.vault, nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	acct, ok := m.accounts[key]
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return acct.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, acct *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = acct.Clone()
	return nil
}

func (m *mockState) setBalance(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	acct, ok := m.accounts[addr]
	if !ok || acct.Balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(acct.Balance)
}

type captureEmitter struct {
	emitted []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.emitted = append(c.emitted, evt)
}

func (c *captureEmitter) lastType() string {
	if len(c.emitted) == 0 {
		return ""
	}
	return c.emitted[len(c.emitted)-1].EventType()
}

type fakeDeliverer struct {
	err     error
	targets [][20]byte
	results []Result
}

func (f *fakeDeliverer) Deliver(target [20]byte, result Result) error {
	if f.err != nil {
		return f.err
	}
	f.targets = append(f.targets, target)
	f.results = append(f.results, result)
	return nil
}

var (
	testAdmin  = newTestAddress(0x01)
	testOracle = newTestAddress(0x02)
	testUser   = newTestAddress(0x03)
	testTarget = newTestAddress(0x04)
)

type testHarness struct {
	engine  *Engine
	state   *mockState
	emitter *captureEmitter
	deliver *fakeDeliverer
	block   uint64
}

func newTestHarness(t *testing.T, fee int64, minValid, maxValid uint64) *testHarness {
	t.Helper()
	h := &testHarness{
		state:   newMockState(),
		emitter: &captureEmitter{},
		deliver: &fakeDeliverer{},
	}
	h.engine = NewEngine()
	h.engine.SetState(h.state)
	h.engine.SetEmitter(h.emitter)
	h.engine.SetDeliverer(h.deliver)
	h.engine.SetBlockFunc(func() uint64 { return h.block })
	users := [][20]byte{testUser}
	if err := h.engine.Initialise(testAdmin, testOracle, users, big.NewInt(fee), minValid, maxValid); err != nil {
		t.Fatalf("initialise: %v", err)
	}
	h.state.setBalance(testUser, 1_000)
	return h
}

func (h *testHarness) submit(t *testing.T, paid int64, period uint32) uint64 {
	t.Helper()
	id, err := h.engine.Submit(testUser, big.NewInt(paid), [32]byte{0x42}, period)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return id
}

func TestSubmitAllocatesSequentialIDs(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	h.block = 7

	first := h.submit(t, 0, 10)
	second := h.submit(t, 0, 20)
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first, second)
	}

	req, ok, err := h.engine.Request(first)
	if err != nil || !ok {
		t.Fatalf("lookup request 1: ok=%v err=%v", ok, err)
	}
	if req.ValidTill != 17 {
		t.Fatalf("valid till = %d, want submission block + period = 17", req.ValidTill)
	}
	if req.Requester != testUser {
		t.Fatalf("unexpected requester")
	}
	if h.emitter.lastType() != events.TypeOracleRequestCreated {
		t.Fatalf("expected request-created event, got %q", h.emitter.lastType())
	}
}

func TestSubmitRejectsUnauthorizedCaller(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)

	stranger := newTestAddress(0x99)
	if _, err := h.engine.Submit(stranger, big.NewInt(0), [32]byte{}, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := h.engine.Submit(testAdmin, big.NewInt(0), [32]byte{}, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin is not a submitter by default, got %v", err)
	}
}

func TestSubmitValidatesPeriodBounds(t *testing.T) {
	h := newTestHarness(t, 0, 5, 50)

	if _, err := h.engine.Submit(testUser, big.NewInt(0), [32]byte{}, 4); !errors.Is(err, ErrInvalidValidPeriod) {
		t.Fatalf("below minimum: got %v", err)
	}
	if _, err := h.engine.Submit(testUser, big.NewInt(0), [32]byte{}, 51); !errors.Is(err, ErrInvalidValidPeriod) {
		t.Fatalf("above maximum: got %v", err)
	}
	h.submit(t, 0, 5)
	h.submit(t, 0, 50)
}

func TestSubmitRequiresExactFee(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)

	if _, err := h.engine.Submit(testUser, big.NewInt(0), [32]byte{}, 10); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("zero payment: got %v", err)
	}
	if _, err := h.engine.Submit(testUser, big.NewInt(150), [32]byte{}, 10); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("overpayment must be rejected, got %v", err)
	}

	id := h.submit(t, 100, 10)
	if got := h.state.balance(h.state.vault); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("vault balance = %s, want 100", got)
	}
	if got := h.state.balance(testUser); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("requester balance = %s, want 900", got)
	}
	req, ok, err := h.engine.Request(id)
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if req.EscrowedFee.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("escrowed fee = %s, want 100", req.EscrowedFee)
	}
}

func TestSubmitZeroFeeAcceptsAnyPayment(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)

	h.submit(t, 0, 10)
	h.submit(t, 25, 10)
	// An attached payment in zero-fee mode lands in the vault but is not
	// recorded as escrow.
	if got := h.state.balance(h.state.vault); got.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("vault balance = %s, want 25", got)
	}
	req, ok, _ := h.engine.Request(2)
	if !ok || req.EscrowedFee.Sign() != 0 {
		t.Fatalf("zero-fee submission must escrow nothing")
	}
}

func TestFulfillSuccessRetiresEntry(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	id := h.submit(t, 0, 10)

	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(42)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if len(h.deliver.results) != 1 || h.deliver.results[0].Numeric != 42 {
		t.Fatalf("delivery not performed")
	}
	if h.deliver.targets[0] != testTarget {
		t.Fatalf("delivered to wrong target")
	}
	if _, ok, _ := h.engine.Request(id); ok {
		t.Fatalf("request must be retired after successful delivery")
	}
	if h.emitter.lastType() != events.TypeOracleRequestFulfilled {
		t.Fatalf("expected fulfilled event, got %q", h.emitter.lastType())
	}

	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(42)); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("second fulfill must report ErrRequestNotFound, got %v", err)
	}
}

func TestFulfillRejectsNonOracle(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	id := h.submit(t, 0, 10)

	if err := h.engine.Fulfill(testAdmin, id, testTarget, NumericResult(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin must not fulfill, got %v", err)
	}
	if err := h.engine.Fulfill(testUser, id, testTarget, NumericResult(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("requester must not fulfill, got %v", err)
	}
}

func TestFulfillExpiredRefundsAndRetires(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)

	h.block = 11 // valid till block 10, now past it
	err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(42))
	if !errors.Is(err, ErrRequestExpired) {
		t.Fatalf("expected ErrRequestExpired, got %v", err)
	}
	if _, ok, _ := h.engine.Request(id); ok {
		t.Fatalf("expired request must be retired")
	}
	if got := h.state.balance(testUser); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("requester balance = %s, want full refund to 1000", got)
	}
	if len(h.deliver.results) != 0 {
		t.Fatalf("no delivery may happen for an expired request")
	}
}

func TestFulfillAtExpiryBoundaryStillDelivers(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	id := h.submit(t, 0, 10)

	// valid_till is the last answerable block, expiry starts one past it
	h.block = 10
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(7)); err != nil {
		t.Fatalf("fulfill at boundary: %v", err)
	}
}

func TestFulfillCallbackFailureKeepsEntry(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	id := h.submit(t, 0, 10)

	h.deliver.err = errors.New("consumer reverted")
	err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(42))
	if !errors.Is(err, ErrCallbackFailed) {
		t.Fatalf("expected ErrCallbackFailed, got %v", err)
	}
	if _, ok, _ := h.engine.Request(id); !ok {
		t.Fatalf("request must stay pending after a failed callback")
	}

	// transient failure cleared, retry must succeed
	h.deliver.err = nil
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(42)); err != nil {
		t.Fatalf("retried fulfill: %v", err)
	}
	if _, ok, _ := h.engine.Request(id); ok {
		t.Fatalf("request must be retired after the retry succeeds")
	}
}

func TestClearExpired(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)

	if err := h.engine.ClearExpired(testUser, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("requester must not clear, got %v", err)
	}
	if err := h.engine.ClearExpired(testOracle, id); !errors.Is(err, ErrRequestNotExpired) {
		t.Fatalf("live request: got %v", err)
	}
	h.block = 10
	if err := h.engine.ClearExpired(testOracle, id); !errors.Is(err, ErrRequestNotExpired) {
		t.Fatalf("request is still answerable at valid_till, got %v", err)
	}

	h.block = 11
	if err := h.engine.ClearExpired(testAdmin, id); err != nil {
		t.Fatalf("admin clear expired: %v", err)
	}
	if got := h.state.balance(testUser); got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("requester balance = %s, want pre-submission 1000", got)
	}
	if err := h.engine.ClearExpired(testOracle, id); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("cleared request must be gone, got %v", err)
	}
}

func TestClaimRewardsSweepsEntireBalance(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(1)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	if err := h.engine.ClaimRewards(testUser); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-oracle claim: got %v", err)
	}
	if err := h.engine.ClaimRewards(testOracle); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := h.state.balance(testOracle); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("oracle balance = %s, want 100", got)
	}
	if got := h.state.balance(h.state.vault); got.Sign() != 0 {
		t.Fatalf("vault must be empty after sweep, got %s", got)
	}
	if h.emitter.lastType() != events.TypeOracleRewardsClaimed {
		t.Fatalf("expected rewards-claimed event, got %q", h.emitter.lastType())
	}

	// zero balance claims succeed as a no-op
	before := len(h.emitter.emitted)
	if err := h.engine.ClaimRewards(testOracle); err != nil {
		t.Fatalf("empty claim: %v", err)
	}
	if len(h.emitter.emitted) != before {
		t.Fatalf("no-op claim must not emit")
	}
}

func TestClaimRewardsSweepIncludesPendingEscrow(t *testing.T) {
	// The default sweep does not reserve funds still escrowed for pending
	// requests. This pins the inherited behaviour; escrow reservation below
	// is the safe alternative.
	h := newTestHarness(t, 100, 1, 100)
	h.submit(t, 100, 10)

	if err := h.engine.ClaimRewards(testOracle); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := h.state.balance(testOracle); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("sweep-all mode must pay out escrow too, got %s", got)
	}
}

func TestClaimRewardsReserveModeProtectsEscrow(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	h.engine.SetReserveEscrow(true)
	id := h.submit(t, 100, 10)
	second := h.submit(t, 100, 10)
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(1)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	// vault holds 200: 100 claimable reward, 100 escrowed for the pending id
	if err := h.engine.ClaimRewards(testOracle); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := h.state.balance(testOracle); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("oracle got %s, want only the non-reserved 100", got)
	}

	h.block = 11
	if err := h.engine.ClearExpired(testOracle, second); err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if got := h.state.balance(testUser); got.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("reserved escrow must still cover the refund, got %s", got)
	}
}

func TestRefundBelowSubsistenceSurfaces(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)

	// drain the requester so the refund cannot lift it over the threshold
	h.state.setBalance(testUser, 0)
	h.engine.SetSubsistence(big.NewInt(500))

	h.block = 11
	err := h.engine.ClearExpired(testOracle, id)
	if !errors.Is(err, ErrBelowSubsistence) {
		t.Fatalf("expected ErrBelowSubsistence, got %v", err)
	}
	if _, ok, _ := h.engine.Request(id); !ok {
		t.Fatalf("entry must remain when the refund itself fails")
	}
}

func TestRefundInsufficientVaultSurfaces(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)

	// drain the vault behind the ledger's back
	h.state.setBalance(h.state.vault, 0)

	h.block = 11
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, ok, _ := h.engine.Request(id); !ok {
		t.Fatalf("entry must remain when the refund transfer errors")
	}
}

func TestSetFeeAffectsOnlyLaterSubmissions(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)

	if err := h.engine.SetFee(testUser, big.NewInt(250)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin fee change: got %v", err)
	}
	if err := h.engine.SetFee(testAdmin, big.NewInt(250)); err != nil {
		t.Fatalf("set fee: %v", err)
	}

	req, ok, _ := h.engine.Request(id)
	if !ok || req.EscrowedFee.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("pending request must keep its submission-time fee")
	}

	if _, err := h.engine.Submit(testUser, big.NewInt(100), [32]byte{}, 10); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("old fee must no longer be accepted, got %v", err)
	}
	h.submit(t, 250, 10)

	h.block = 11
	if err := h.engine.ClearExpired(testOracle, id); err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	// 1000 - 100 - 250 + 100 refund
	if got := h.state.balance(testUser); got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("refund must pay the submission-time fee, balance %s", got)
	}
}

func TestSetOracleSweepsBeforeRotation(t *testing.T) {
	h := newTestHarness(t, 100, 1, 100)
	id := h.submit(t, 100, 10)
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(1)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	next := newTestAddress(0x05)
	if err := h.engine.SetOracle(testOracle, next); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("oracle must not rotate itself, got %v", err)
	}
	if err := h.engine.SetOracle(testAdmin, next); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if got := h.state.balance(testOracle); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("outgoing oracle must receive the sweep, got %s", got)
	}
	global, err := h.engine.Global()
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if global.Oracle != next {
		t.Fatalf("oracle identity not rotated")
	}

	// a failing sweep aborts the rotation: the vault holds escrow again but
	// the outgoing oracle cannot receive it over the subsistence threshold
	h.submit(t, 100, 10)
	h.engine.SetSubsistence(big.NewInt(1_000_000))
	if err := h.engine.SetOracle(testAdmin, testOracle); err == nil {
		t.Fatalf("rotation must fail when the sweep fails")
	}
	global, _ = h.engine.Global()
	if global.Oracle != next {
		t.Fatalf("failed rotation must leave the oracle unchanged")
	}
}

func TestUserManagementIsAdminGatedAndIdempotent(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	extra := newTestAddress(0x06)

	if err := h.engine.AddUser(testOracle, extra); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("oracle must not curate users, got %v", err)
	}
	if err := h.engine.AddUser(testAdmin, extra); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if err := h.engine.AddUser(testAdmin, extra); err != nil {
		t.Fatalf("re-adding must succeed silently: %v", err)
	}
	global, _ := h.engine.Global()
	if len(global.Users) != 2 {
		t.Fatalf("user list = %d entries, want 2", len(global.Users))
	}

	if err := h.engine.RemoveUser(testAdmin, extra); err != nil {
		t.Fatalf("remove user: %v", err)
	}
	if err := h.engine.RemoveUser(testAdmin, extra); err != nil {
		t.Fatalf("removing an absent user must succeed silently: %v", err)
	}
	global, _ = h.engine.Global()
	if global.HasUser(extra) {
		t.Fatalf("user still present after removal")
	}
	if h.emitter.lastType() != events.TypeOracleUserRemoved {
		t.Fatalf("expected user-removed event, got %q", h.emitter.lastType())
	}
}

func TestRequestIDWrapsAround(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	global, _ := h.engine.Global()
	global.NextRequestID = math.MaxUint64
	if err := h.state.OracleGlobalPut(global); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	id := h.submit(t, 0, 10)
	if id != 0 {
		t.Fatalf("counter must wrap to 0, got %d", id)
	}
	if next := h.submit(t, 0, 10); next != 1 {
		t.Fatalf("post-wrap id = %d, want 1", next)
	}
}

func TestRequestIDSaturatingMode(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	h.engine.SetCounterMode(CounterSaturating)
	global, _ := h.engine.Global()
	global.NextRequestID = math.MaxUint64
	if err := h.state.OracleGlobalPut(global); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	if _, err := h.engine.Submit(testUser, big.NewInt(0), [32]byte{}, 10); !errors.Is(err, ErrRequestIDExhausted) {
		t.Fatalf("expected ErrRequestIDExhausted, got %v", err)
	}
}

type pausedView struct{}

func (pausedView) IsPaused(module string) bool { return module == ModuleName }

func TestPausedModuleRejectsSubmitAndFulfill(t *testing.T) {
	h := newTestHarness(t, 0, 1, 100)
	id := h.submit(t, 0, 10)
	h.engine.SetPauses(pausedView{})

	if _, err := h.engine.Submit(testUser, big.NewInt(0), [32]byte{}, 10); err == nil {
		t.Fatalf("paused submit must fail")
	}
	if err := h.engine.Fulfill(testOracle, id, testTarget, NumericResult(1)); err == nil {
		t.Fatalf("paused fulfill must fail")
	}
	// housekeeping stays available while paused
	h.block = 11
	if err := h.engine.ClearExpired(testOracle, id); err != nil {
		t.Fatalf("clear expired while paused: %v", err)
	}
}

func TestZeroFeeAdminScenario(t *testing.T) {
	// admin doubles as oracle and submitter, fee disabled
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	deliver := &fakeDeliverer{}
	engine.SetDeliverer(deliver)
	admin := newTestAddress(0x0A)
	if err := engine.Initialise(admin, admin, [][20]byte{admin}, big.NewInt(0), 1, 100); err != nil {
		t.Fatalf("initialise: %v", err)
	}

	id, err := engine.Submit(admin, big.NewInt(0), [32]byte{0x42}, 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}
	if err := engine.Fulfill(admin, id, testTarget, NumericResult(42)); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if err := engine.Fulfill(admin, id, testTarget, NumericResult(42)); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("second fulfill: got %v, want ErrRequestNotFound", err)
	}
}
