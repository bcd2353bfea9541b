package redemption

import (
	"math/big"
	"time"

	"collectvault/core/events"
	"collectvault/core/types"
)

type engineState interface {
	RedemptionGet(asset [32]byte) (*Record, bool)
	RedemptionPut(r *Record) error
	RedemptionDelete(asset [32]byte) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

type custodyVault interface {
	Hold(asset [32]byte, from [20]byte) error
	Release(asset [32]byte, to [20]byte) error
	CloseHolding(asset [32]byte) error
	AuthorityAddress() [20]byte
}

type redemptionEvent struct {
	evt *types.Event
}

func (e redemptionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e redemptionEvent) Event() *types.Event { return e.evt }

// Engine owns the lifecycle of redemption requests. It is structurally the
// same machine as the loan engine minus funding and interest; the terminal
// outcome is administrator-confirmed fulfillment rather than value repayment.
type Engine struct {
	state         engineState
	vault         custodyVault
	emitter       events.Emitter
	nowFn         func() int64
	admin         [20]byte
	adminSet      bool
	recordDeposit uint64
}

// NewEngine creates a redemption engine with a no-op emitter.
func NewEngine(vault custodyVault) *Engine {
	return &Engine{
		vault:   vault,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin injects the fixed administrator identity. It is set once at process
// startup from configuration and never mutated afterwards.
func (e *Engine) SetAdmin(admin [20]byte) {
	e.admin = admin
	e.adminSet = true
}

// SetRecordDeposit configures the storage deposit taken from the opener. It is
// returned on cancellation only; a fulfilled record is retained forever and
// its deposit stays with the vault.
func (e *Engine) SetRecordDeposit(amount uint64) { e.recordDeposit = amount }

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(redemptionEvent{evt: event})
}

// Get returns a copy of the redemption record for the asset, if one exists.
func (e *Engine) Get(asset [32]byte) (*Record, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	rec, ok := e.state.RedemptionGet(asset)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.vault == nil {
		return ErrNilVault
	}
	return nil
}

func (e *Engine) transferValue(from, to [20]byte, amount uint64) error {
	if amount == 0 {
		return nil
	}
	amt := new(big.Int).SetUint64(amount)
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = types.EnsureAccount(fromAcc)
	toAcc = types.EnsureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

// Open moves the asset unit into the redemption vault and records the request.
func (e *Engine) Open(asset [32]byte, owner [20]byte) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, exists := e.state.RedemptionGet(asset); exists {
		return nil, ErrRequestExists
	}
	if e.recordDeposit > 0 {
		acc, err := e.state.GetAccount(owner)
		if err != nil {
			return nil, err
		}
		if types.EnsureAccount(acc).Balance.Cmp(new(big.Int).SetUint64(e.recordDeposit)) < 0 {
			return nil, ErrInsufficientBalance
		}
	}
	if err := e.vault.Hold(asset, owner); err != nil {
		return nil, err
	}
	if err := e.transferValue(owner, e.vault.AuthorityAddress(), e.recordDeposit); err != nil {
		return nil, err
	}
	rec := &Record{
		Asset:       asset,
		Owner:       owner,
		RequestedAt: e.nowFn(),
	}
	if err := e.state.RedemptionPut(rec); err != nil {
		return nil, err
	}
	e.emit(NewRequestedEvent(rec))
	return rec.Clone(), nil
}

// Cancel returns the asset to its owner and destroys the request. Only valid
// before fulfillment.
func (e *Engine) Cancel(asset [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	rec, ok := e.state.RedemptionGet(asset)
	if !ok {
		return ErrRequestNotFound
	}
	if rec.Fulfilled {
		return ErrAlreadyFulfilled
	}
	if caller != rec.Owner {
		return ErrUnauthorizedRequest
	}
	if err := e.vault.Release(asset, caller); err != nil {
		return err
	}
	if err := e.vault.CloseHolding(asset); err != nil {
		return err
	}
	if err := e.transferValue(e.vault.AuthorityAddress(), caller, e.recordDeposit); err != nil {
		return err
	}
	if err := e.state.RedemptionDelete(asset); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(rec))
	return nil
}

// Fulfill marks the request complete. The transition is one-way: the asset
// remains in custody indefinitely and the record survives as the audit trail
// that the physical counterpart shipped.
func (e *Engine) Fulfill(asset [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.adminSet {
		return ErrAdminNotConfigured
	}
	rec, ok := e.state.RedemptionGet(asset)
	if !ok {
		return ErrRequestNotFound
	}
	if rec.Fulfilled {
		return ErrAlreadyFulfilled
	}
	if caller != e.admin {
		return ErrUnauthorizedSigner
	}
	rec.Fulfilled = true
	if err := e.state.RedemptionPut(rec); err != nil {
		return err
	}
	e.emit(NewFulfilledEvent(rec))
	return nil
}
