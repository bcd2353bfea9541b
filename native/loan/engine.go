package loan

import (
	"math/big"
	"time"

	"collectvault/core/events"
	"collectvault/core/types"
)

type engineState interface {
	LoanGet(asset [32]byte) (*Record, bool)
	LoanPut(r *Record) error
	LoanDelete(asset [32]byte) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// custodyVault is the holding area contract the engine drives. A hold that is
// followed by failed precondition checks leaves the asset in custody; releases
// happen only on terminal transitions.
type custodyVault interface {
	Hold(asset [32]byte, from [20]byte) error
	Release(asset [32]byte, to [20]byte) error
	CloseHolding(asset [32]byte) error
	AuthorityAddress() [20]byte
}

type loanEvent struct {
	evt *types.Event
}

func (e loanEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e loanEvent) Event() *types.Event { return e.evt }

// Engine owns the lifecycle of collateralized loan requests. Every operation
// is a finite sequence of precondition checks followed by at most one value
// transfer and one custody operation; a failed check aborts with no side
// effect. The engine holds no locks: callers serialize operations.
type Engine struct {
	state         engineState
	vault         custodyVault
	emitter       events.Emitter
	nowFn         func() int64
	recordDeposit uint64
}

// NewEngine creates a loan engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine(vault custodyVault) *Engine {
	return &Engine{
		vault:   vault,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRecordDeposit configures the storage deposit taken from the opener and
// returned on every terminal transition.
func (e *Engine) SetRecordDeposit(amount uint64) { e.recordDeposit = amount }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
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
	e.emitter.Emit(loanEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Get returns a copy of the loan record for the asset, if one exists.
func (e *Engine) Get(asset [32]byte) (*Record, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	rec, ok := e.state.LoanGet(asset)
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

func (e *Engine) balanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return types.EnsureAccount(acc).Balance, nil
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

// Open stakes one unit of the asset as collateral and records the loan
// request. No value moves yet; economic exposure begins only at Fund.
func (e *Engine) Open(asset [32]byte, owner [20]byte, principal, interest uint64, duration int64) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, ErrInvalidLoanDuration
	}
	if _, exists := e.state.LoanGet(asset); exists {
		return nil, ErrLoanExists
	}
	if e.recordDeposit > 0 {
		balance, err := e.balanceOf(owner)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(new(big.Int).SetUint64(e.recordDeposit)) < 0 {
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
		Asset:     asset,
		Owner:     owner,
		Principal: principal,
		Interest:  interest,
		Duration:  duration,
	}
	if err := e.state.LoanPut(rec); err != nil {
		return nil, err
	}
	e.emit(NewOpenedEvent(rec))
	return rec.Clone(), nil
}

// Fund commits the lender's principal to an open request and starts the loan
// clock. This is the sole point at which economic exposure begins; once
// committed, the lender's only recovery paths are Repay (by the owner) or
// ClaimDefault (by the lender after expiry).
func (e *Engine) Fund(asset [32]byte, lender [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	rec, ok := e.state.LoanGet(asset)
	if !ok {
		return ErrLoanNotFound
	}
	if rec.Active || rec.Funded() {
		return ErrLoanAlreadyActive
	}
	fundedAt := e.now()
	if _, ok := checkedAddInt64(fundedAt, rec.Duration); !ok {
		return ErrCalculation
	}
	balance, err := e.balanceOf(lender)
	if err != nil {
		return err
	}
	if balance.Cmp(new(big.Int).SetUint64(rec.Principal)) < 0 {
		return ErrInsufficientFunds
	}
	if err := e.transferValue(lender, rec.Owner, rec.Principal); err != nil {
		return err
	}
	rec.Funding = &Funding{Lender: lender, FundedAt: fundedAt}
	rec.Active = true
	if err := e.state.LoanPut(rec); err != nil {
		return err
	}
	e.emit(NewFundedEvent(rec))
	return nil
}

// Repay settles an active loan: the owner pays principal plus interest to the
// lender and the collateral returns to the owner. Accepted up to and including
// the deadline instant.
func (e *Engine) Repay(asset [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	rec, ok := e.state.LoanGet(asset)
	if !ok {
		return ErrLoanNotFound
	}
	if !rec.Active || rec.Funding == nil {
		return ErrLoanNotActive
	}
	if caller != rec.Owner {
		return ErrInvalidBorrower
	}
	deadline, ok := rec.Deadline()
	if !ok {
		return ErrCalculation
	}
	if e.now() > deadline {
		return ErrLoanExpired
	}
	total, ok := checkedAdd(rec.Principal, rec.Interest)
	if !ok {
		return ErrCalculation
	}
	balance, err := e.balanceOf(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(new(big.Int).SetUint64(total)) < 0 {
		return ErrInsufficientBalance
	}
	if err := e.transferValue(caller, rec.Funding.Lender, total); err != nil {
		return err
	}
	if err := e.closeRecord(rec, rec.Owner); err != nil {
		return err
	}
	e.emit(NewRepaidEvent(rec))
	return nil
}

// ClaimDefault lets the lender seize the collateral strictly after the
// deadline. No value moves; the collateral itself is the recovery.
func (e *Engine) ClaimDefault(asset [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	rec, ok := e.state.LoanGet(asset)
	if !ok {
		return ErrLoanNotFound
	}
	if !rec.Active || rec.Funding == nil {
		return ErrLoanNotActive
	}
	if caller != rec.Funding.Lender {
		return ErrInvalidLender
	}
	deadline, ok := rec.Deadline()
	if !ok {
		return ErrCalculation
	}
	if e.now() <= deadline {
		return ErrLoanNotExpired
	}
	if err := e.closeRecord(rec, caller); err != nil {
		return err
	}
	e.emit(NewDefaultedEvent(rec))
	return nil
}

// Cancel withdraws an unfunded request, returning the collateral to its owner.
func (e *Engine) Cancel(asset [32]byte, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	rec, ok := e.state.LoanGet(asset)
	if !ok {
		return ErrLoanNotFound
	}
	if caller != rec.Owner {
		return ErrUnauthorizedCancellation
	}
	if rec.Funded() {
		return ErrLoanAlreadyFunded
	}
	if rec.Active {
		return ErrLoanAlreadyActive
	}
	if err := e.closeRecord(rec, caller); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(rec))
	return nil
}

// closeRecord performs the shared terminal sequence: release the collateral to
// the recipient, close the emptied holding, return the storage deposit and
// destroy the record. Exactly one terminal transition ever runs for a record
// because each re-checks the record's existence under the caller's serialized
// view before mutating.
func (e *Engine) closeRecord(rec *Record, recipient [20]byte) error {
	if err := e.vault.Release(rec.Asset, recipient); err != nil {
		return err
	}
	if err := e.vault.CloseHolding(rec.Asset); err != nil {
		return err
	}
	if err := e.transferValue(e.vault.AuthorityAddress(), recipient, e.recordDeposit); err != nil {
		return err
	}
	return e.state.LoanDelete(rec.Asset)
}
