package redemption

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"collectvault/core/events"
	"collectvault/core/types"
	"collectvault/native/custody"
)

type mockState struct {
	requests map[[32]byte]*Record
	accounts map[[20]byte]*types.Account
	owners   map[[32]byte][20]byte
	holdings map[[32]byte]*custody.Holding
}

func newMockState() *mockState {
	return &mockState{
		requests: make(map[[32]byte]*Record),
		accounts: make(map[[20]byte]*types.Account),
		owners:   make(map[[32]byte][20]byte),
		holdings: make(map[[32]byte]*custody.Holding),
	}
}

func (m *mockState) RedemptionGet(asset [32]byte) (*Record, bool) {
	rec, ok := m.requests[asset]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (m *mockState) RedemptionPut(r *Record) error {
	m.requests[r.Asset] = r.Clone()
	return nil
}

func (m *mockState) RedemptionDelete(asset [32]byte) error {
	delete(m.requests, asset)
	return nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return &types.Account{Nonce: acc.Nonce, Balance: new(big.Int).Set(acc.Balance)}, nil
}

func (m *mockState) PutAccount(addr [20]byte, acc *types.Account) error {
	m.accounts[addr] = &types.Account{Nonce: acc.Nonce, Balance: new(big.Int).Set(acc.Balance)}
	return nil
}

func (m *mockState) AssetOwner(asset [32]byte) ([20]byte, bool) {
	owner, ok := m.owners[asset]
	return owner, ok
}

func (m *mockState) SetAssetOwner(asset [32]byte, owner [20]byte) error {
	m.owners[asset] = owner
	return nil
}

func (m *mockState) HoldingGet(asset [32]byte) (*custody.Holding, bool) {
	h, ok := m.holdings[asset]
	if !ok {
		return nil, false
	}
	clone := *h
	return &clone, true
}

func (m *mockState) HoldingPut(h *custody.Holding) error {
	clone := *h
	m.holdings[h.Asset] = &clone
	return nil
}

func (m *mockState) HoldingDelete(asset [32]byte) error {
	delete(m.holdings, asset)
	return nil
}

func (m *mockState) setBalance(addr [20]byte, amount uint64) {
	m.accounts[addr] = &types.Account{Balance: new(big.Int).SetUint64(amount)}
}

func (m *mockState) balance(addr [20]byte) uint64 {
	acc, ok := m.accounts[addr]
	if !ok {
		return 0
	}
	return acc.Balance.Uint64()
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestAsset(fill byte) [32]byte {
	var id [32]byte
	copy(id[:], bytes.Repeat([]byte{fill}, 32))
	return id
}

const testDeposit = 1_000

type testEnv struct {
	state   *mockState
	vault   *custody.Vault
	engine  *Engine
	capture *events.Capture
	admin   [20]byte
	now     int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		state:   newMockState(),
		capture: &events.Capture{},
		admin:   newTestAddress(0xAD),
		now:     1_000,
	}
	env.vault = custody.NewVault(custody.RedemptionVaultSeed, env.state)
	env.vault.SetNowFunc(func() int64 { return env.now })
	env.engine = NewEngine(env.vault)
	env.engine.SetState(env.state)
	env.engine.SetAdmin(env.admin)
	env.engine.SetRecordDeposit(testDeposit)
	env.engine.SetEmitter(env.capture)
	env.engine.SetNowFunc(func() int64 { return env.now })
	return env
}

func (env *testEnv) openRequest(t *testing.T, asset [32]byte, owner [20]byte) *Record {
	t.Helper()
	env.state.owners[asset] = owner
	if env.state.balance(owner) < testDeposit {
		env.state.setBalance(owner, testDeposit)
	}
	rec, err := env.engine.Open(asset, owner)
	if err != nil {
		t.Fatalf("open redemption: %v", err)
	}
	return rec
}

func TestOpenStakesAsset(t *testing.T) {
	env := newTestEnv(t)
	owner := newTestAddress(0x01)
	asset := newTestAsset(0xA1)

	rec := env.openRequest(t, asset, owner)
	if rec.Fulfilled {
		t.Fatal("fresh request must not be fulfilled")
	}
	if rec.RequestedAt != env.now {
		t.Fatalf("requestedAt = %d, want %d", rec.RequestedAt, env.now)
	}
	if got := env.state.owners[asset]; got != env.vault.AuthorityAddress() {
		t.Fatalf("asset owner = %x, want vault authority", got)
	}
	if got := env.state.balance(owner); got != 0 {
		t.Fatalf("owner balance = %d, want deposit taken", got)
	}
	if types := env.capture.Types(); len(types) != 1 || types[0] != EventTypeRedemptionRequested {
		t.Fatalf("events = %v", types)
	}
}

func TestOpenRejections(t *testing.T) {
	env := newTestEnv(t)
	owner := newTestAddress(0x01)
	asset := newTestAsset(0xA1)
	env.openRequest(t, asset, owner)

	env.state.setBalance(owner, testDeposit)
	if _, err := env.engine.Open(asset, owner); !errors.Is(err, ErrRequestExists) {
		t.Fatalf("duplicate open: err = %v, want %v", err, ErrRequestExists)
	}

	poor := newTestAddress(0x02)
	other := newTestAsset(0xA2)
	env.state.owners[other] = poor
	if _, err := env.engine.Open(other, poor); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("poor opener: err = %v, want %v", err, ErrInsufficientBalance)
	}
	if len(env.state.holdings) != 1 {
		t.Fatal("failed open must not take custody")
	}
}

func TestCancelReturnsAsset(t *testing.T) {
	env := newTestEnv(t)
	owner := newTestAddress(0x01)
	asset := newTestAsset(0xA1)
	env.openRequest(t, asset, owner)

	if err := env.engine.Cancel(asset, owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := env.state.requests[asset]; ok {
		t.Fatal("record must be deleted on cancel")
	}
	if got := env.state.owners[asset]; got != owner {
		t.Fatalf("asset owner = %x, want original owner", got)
	}
	if got := env.state.balance(owner); got != testDeposit {
		t.Fatalf("owner balance = %d, want deposit back", got)
	}
	if len(env.state.holdings) != 0 {
		t.Fatal("holding must be closed on cancel")
	}
}

func TestCancelAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner := newTestAddress(0x01)
	stranger := newTestAddress(0x02)
	asset := newTestAsset(0xA1)
	env.openRequest(t, asset, owner)

	if err := env.engine.Cancel(asset, stranger); !errors.Is(err, ErrUnauthorizedRequest) {
		t.Fatalf("stranger cancel: err = %v, want %v", err, ErrUnauthorizedRequest)
	}
	if err := env.engine.Cancel(newTestAsset(0xFF), owner); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("missing record: err = %v, want %v", err, ErrRequestNotFound)
	}
}

func TestFulfill(t *testing.T) {
	env := newTestEnv(t)
	owner := newTestAddress(0x01)
	asset := newTestAsset(0xA1)
	env.openRequest(t, asset, owner)

	if err := env.engine.Fulfill(asset, owner); !errors.Is(err, ErrUnauthorizedSigner) {
		t.Fatalf("owner fulfill: err = %v, want %v", err, ErrUnauthorizedSigner)
	}
	if err := env.engine.Fulfill(asset, env.admin); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	// The record is retained as the archival trail and the asset unit stays
	// parked under the vault authority.
	rec, ok := env.state.RedemptionGet(asset)
	if !ok || !rec.Fulfilled {
		t.Fatalf("record = %+v, ok = %v; want retained and fulfilled", rec, ok)
	}
	if got := env.state.owners[asset]; got != env.vault.AuthorityAddress() {
		t.Fatalf("asset owner = %x, want vault authority", got)
	}

	if err := env.engine.Fulfill(asset, env.admin); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Fatalf("double fulfill: err = %v, want %v", err, ErrAlreadyFulfilled)
	}
	if err := env.engine.Cancel(asset, owner); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Fatalf("cancel after fulfill: err = %v, want %v", err, ErrAlreadyFulfilled)
	}
}

func TestFulfillRequiresRecord(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.Fulfill(newTestAsset(0xA1), env.admin); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrRequestNotFound)
	}
}
