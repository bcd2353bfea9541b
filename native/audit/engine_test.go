package audit

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"collectvault/core/types"
)

type mockState struct {
	assets    map[[32]byte]bool
	requests  map[string]*Request
	snapshots map[[32]byte][]*Snapshot
	accounts  map[[20]byte]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		assets:    make(map[[32]byte]bool),
		requests:  make(map[string]*Request),
		snapshots: make(map[[32]byte][]*Snapshot),
		accounts:  make(map[[20]byte]*types.Account),
	}
}

func (m *mockState) AssetExists(id [32]byte) bool { return m.assets[id] }

func (m *mockState) AuditRequestGet(id string) (*Request, bool) {
	req, ok := m.requests[id]
	if !ok {
		return nil, false
	}
	return req.Clone(), true
}

func (m *mockState) AuditRequestPut(r *Request) error {
	m.requests[r.ID] = r.Clone()
	return nil
}

func (m *mockState) AuditSnapshotPut(s *Snapshot) error {
	m.snapshots[s.Asset] = append(m.snapshots[s.Asset], s)
	return nil
}

func (m *mockState) AuditSnapshotCount(asset [32]byte) (uint64, error) {
	return uint64(len(m.snapshots[asset])), nil
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

const testFee = 250

func newTestEngine(t *testing.T) (*Engine, *mockState, [20]byte) {
	t.Helper()
	state := newMockState()
	admin := newTestAddress(0xAD)
	engine := NewEngine()
	engine.SetState(state)
	engine.SetAdmin(admin)
	engine.SetServiceFee(testFee)
	engine.SetNowFunc(func() int64 { return 1_000 })
	counter := 0
	engine.SetIDFunc(func() string {
		counter++
		return fmt.Sprintf("req-%d", counter)
	})
	return engine, state, admin
}

func TestRequestChargesFee(t *testing.T) {
	engine, state, admin := newTestEngine(t)
	requester := newTestAddress(0x01)
	asset := newTestAsset(0xA1)
	state.assets[asset] = true
	state.setBalance(requester, testFee)

	req, err := engine.Request(asset, requester)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.ID != "req-1" || req.Status != StatusPending || req.RequestedAt != 1_000 {
		t.Fatalf("request = %+v", req)
	}
	if got := state.balance(requester); got != 0 {
		t.Fatalf("requester balance = %d, want fee taken", got)
	}
	if got := state.balance(admin); got != testFee {
		t.Fatalf("admin balance = %d, want %d", got, testFee)
	}
}

func TestRequestRejections(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	requester := newTestAddress(0x01)
	asset := newTestAsset(0xA1)

	if _, err := engine.Request(asset, requester); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("unknown asset: err = %v, want %v", err, ErrAssetNotFound)
	}

	state.assets[asset] = true
	state.setBalance(requester, testFee-1)
	if _, err := engine.Request(asset, requester); !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("poor requester: err = %v, want %v", err, ErrInsufficientFee)
	}
}

func TestProvideSnapshot(t *testing.T) {
	engine, state, admin := newTestEngine(t)
	requester := newTestAddress(0x01)
	asset := newTestAsset(0xA1)
	state.assets[asset] = true
	state.setBalance(requester, 2*testFee)

	req, err := engine.Request(asset, requester)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := engine.ProvideSnapshot(requester, req.ID, []string{"https://img/1"}); !errors.Is(err, ErrUnauthorizedSigner) {
		t.Fatalf("non-admin snapshot: err = %v, want %v", err, ErrUnauthorizedSigner)
	}
	if _, err := engine.ProvideSnapshot(admin, req.ID, nil); !errors.Is(err, ErrNoImages) {
		t.Fatalf("no images: err = %v, want %v", err, ErrNoImages)
	}
	if _, err := engine.ProvideSnapshot(admin, req.ID, []string{strings.Repeat("u", MaxURLLength+1)}); !errors.Is(err, ErrURLTooLong) {
		t.Fatalf("long url: err = %v, want %v", err, ErrURLTooLong)
	}

	snap, err := engine.ProvideSnapshot(admin, req.ID, []string{"https://img/1", "https://img/2"})
	if err != nil {
		t.Fatalf("provide snapshot: %v", err)
	}
	if snap.Sequence != 1 || len(snap.ImageURLs) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	stored, _ := engine.GetRequest(req.ID)
	if stored.Status != StatusCompleted || stored.CompletedAt != 1_000 {
		t.Fatalf("request after snapshot = %+v", stored)
	}
	if _, err := engine.ProvideSnapshot(admin, req.ID, []string{"https://img/3"}); !errors.Is(err, ErrRequestClosed) {
		t.Fatalf("closed request: err = %v, want %v", err, ErrRequestClosed)
	}

	// A second request for the same asset appends under the next sequence.
	second, err := engine.Request(asset, requester)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	next, err := engine.ProvideSnapshot(admin, second.ID, []string{"https://img/3"})
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	if next.Sequence != 2 {
		t.Fatalf("sequence = %d, want 2", next.Sequence)
	}
}

func TestRejectKeepsFee(t *testing.T) {
	engine, state, admin := newTestEngine(t)
	requester := newTestAddress(0x01)
	asset := newTestAsset(0xA1)
	state.assets[asset] = true
	state.setBalance(requester, testFee)

	req, err := engine.Request(asset, requester)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := engine.Reject(requester, req.ID); !errors.Is(err, ErrUnauthorizedSigner) {
		t.Fatalf("non-admin reject: err = %v, want %v", err, ErrUnauthorizedSigner)
	}
	if err := engine.Reject(admin, req.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	stored, _ := engine.GetRequest(req.ID)
	if stored.Status != StatusRejected {
		t.Fatalf("status = %v, want rejected", stored.Status)
	}
	if got := state.balance(requester); got != 0 {
		t.Fatalf("fee must not be refunded, requester balance = %d", got)
	}
	if err := engine.Reject(admin, req.ID); !errors.Is(err, ErrRequestClosed) {
		t.Fatalf("double reject: err = %v, want %v", err, ErrRequestClosed)
	}
}
