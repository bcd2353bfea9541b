package audit

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"collectvault/core/events"
	"collectvault/core/types"
)

const (
	EventTypeAuditRequested = "audit.requested"
	EventTypeAuditCompleted = "audit.completed"
	EventTypeAuditRejected  = "audit.rejected"
)

type engineState interface {
	AssetExists(id [32]byte) bool
	AuditRequestGet(id string) (*Request, bool)
	AuditRequestPut(r *Request) error
	AuditSnapshotPut(s *Snapshot) error
	AuditSnapshotCount(asset [32]byte) (uint64, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

type auditEvent struct {
	evt *types.Event
}

func (e auditEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e auditEvent) Event() *types.Event { return e.evt }

// Engine runs the fee-based audit subsystem: anyone may pay the flat service
// fee to request an audit of an asset, and the administrator answers with an
// append-only snapshot. No escrow is involved.
type Engine struct {
	state      engineState
	emitter    events.Emitter
	nowFn      func() int64
	newID      func() string
	admin      [20]byte
	adminSet   bool
	serviceFee uint64
}

// NewEngine creates an audit engine with a no-op emitter and UUID request IDs.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		newID:   uuid.NewString,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin injects the fixed administrator identity, which also receives the
// service fee.
func (e *Engine) SetAdmin(admin [20]byte) {
	e.admin = admin
	e.adminSet = true
}

// SetServiceFee configures the flat fee charged per audit request.
func (e *Engine) SetServiceFee(fee uint64) { e.serviceFee = fee }

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetIDFunc overrides request ID generation, primarily for deterministic tests.
func (e *Engine) SetIDFunc(newID func() string) {
	if newID == nil {
		e.newID = uuid.NewString
		return
	}
	e.newID = newID
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(auditEvent{evt: evt})
}

// GetRequest returns a copy of the request, if it exists.
func (e *Engine) GetRequest(id string) (*Request, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	req, ok := e.state.AuditRequestGet(id)
	if !ok {
		return nil, false
	}
	return req.Clone(), true
}

// Request records a pending audit request and transfers the flat service fee
// from the requester to the administrator.
func (e *Engine) Request(asset [32]byte, requester [20]byte) (*Request, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if !e.adminSet {
		return nil, ErrAdminNotConfigured
	}
	if !e.state.AssetExists(asset) {
		return nil, ErrAssetNotFound
	}
	if e.serviceFee > 0 {
		fee := new(big.Int).SetUint64(e.serviceFee)
		fromAcc, err := e.state.GetAccount(requester)
		if err != nil {
			return nil, err
		}
		fromAcc = types.EnsureAccount(fromAcc)
		if fromAcc.Balance.Cmp(fee) < 0 {
			return nil, ErrInsufficientFee
		}
		toAcc, err := e.state.GetAccount(e.admin)
		if err != nil {
			return nil, err
		}
		toAcc = types.EnsureAccount(toAcc)
		fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, fee)
		toAcc.Balance = new(big.Int).Add(toAcc.Balance, fee)
		if err := e.state.PutAccount(requester, fromAcc); err != nil {
			return nil, err
		}
		if err := e.state.PutAccount(e.admin, toAcc); err != nil {
			return nil, err
		}
	}
	req := &Request{
		ID:          e.newID(),
		Asset:       asset,
		Requester:   requester,
		RequestedAt: e.nowFn(),
		Status:      StatusPending,
	}
	if err := e.state.AuditRequestPut(req); err != nil {
		return nil, err
	}
	e.emit(&types.Event{Type: EventTypeAuditRequested, Attributes: map[string]string{
		"request":   req.ID,
		"asset":     hex.EncodeToString(asset[:]),
		"requester": hex.EncodeToString(requester[:]),
		"fee":       strconv.FormatUint(e.serviceFee, 10),
	}})
	return req.Clone(), nil
}

// ProvideSnapshot answers a pending request: the request flips to completed
// and an immutable snapshot is appended under the asset's next sequence
// number.
func (e *Engine) ProvideSnapshot(caller [20]byte, requestID string, imageURLs []string) (*Snapshot, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if !e.adminSet || caller != e.admin {
		return nil, ErrUnauthorizedSigner
	}
	if len(imageURLs) == 0 {
		return nil, ErrNoImages
	}
	for _, url := range imageURLs {
		if len(url) > MaxURLLength {
			return nil, ErrURLTooLong
		}
	}
	req, ok := e.state.AuditRequestGet(requestID)
	if !ok {
		return nil, ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return nil, ErrRequestClosed
	}
	count, err := e.state.AuditSnapshotCount(req.Asset)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	snap := &Snapshot{
		Asset:     req.Asset,
		RequestID: req.ID,
		Sequence:  count + 1,
		ImageURLs: append([]string(nil), imageURLs...),
		Timestamp: now,
	}
	if err := e.state.AuditSnapshotPut(snap); err != nil {
		return nil, err
	}
	req.Status = StatusCompleted
	req.CompletedAt = now
	if err := e.state.AuditRequestPut(req); err != nil {
		return nil, err
	}
	e.emit(&types.Event{Type: EventTypeAuditCompleted, Attributes: map[string]string{
		"request":  req.ID,
		"asset":    hex.EncodeToString(req.Asset[:]),
		"sequence": strconv.FormatUint(snap.Sequence, 10),
	}})
	return snap, nil
}

// Reject closes a pending request without a snapshot. The service fee is not
// refunded; it covers the evaluation, not the outcome.
func (e *Engine) Reject(caller [20]byte, requestID string) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if !e.adminSet || caller != e.admin {
		return ErrUnauthorizedSigner
	}
	req, ok := e.state.AuditRequestGet(requestID)
	if !ok {
		return ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return ErrRequestClosed
	}
	req.Status = StatusRejected
	req.CompletedAt = e.nowFn()
	if err := e.state.AuditRequestPut(req); err != nil {
		return err
	}
	e.emit(&types.Event{Type: EventTypeAuditRejected, Attributes: map[string]string{
		"request": req.ID,
		"asset":   hex.EncodeToString(req.Asset[:]),
	}})
	return nil
}
