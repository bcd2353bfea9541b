package core

import (
	"sync"

	"collectvault/core/events"
	"collectvault/native/assets"
	"collectvault/native/audit"
	"collectvault/native/custody"
	"collectvault/native/loan"
	"collectvault/native/redemption"
	"collectvault/state"
)

// Params carries the construction-time constants the engines depend on. The
// administrator identity is fixed for the life of the process.
type Params struct {
	Admin         [20]byte
	RecordDeposit uint64
	AuditFee      uint64
}

// Node owns the vault ledger and exposes every entry point as a method. All
// mutating operations run under one mutex, which provides the single global
// sequential ordering the engines rely on: a precondition check plus its
// mutation is one atomic step, so no engine needs locks of its own and at most
// one of the racing terminal operations for a record can ever observe it.
type Node struct {
	mu    sync.Mutex
	state *state.Manager

	loanVault       *custody.Vault
	redemptionVault *custody.Vault

	loans       *loan.Engine
	redemptions *redemption.Engine
	ledger      *assets.Engine
	audits      *audit.Engine

	feed *eventFeed
}

// NewNode wires the engines to a shared state manager.
func NewNode(mgr *state.Manager, params Params) *Node {
	n := &Node{
		state: mgr,
		feed:  newEventFeed(eventFeedDepth),
	}

	n.loanVault = custody.NewVault(custody.LoanVaultSeed, mgr)
	n.redemptionVault = custody.NewVault(custody.RedemptionVaultSeed, mgr)

	n.loans = loan.NewEngine(n.loanVault)
	n.loans.SetState(mgr)
	n.loans.SetRecordDeposit(params.RecordDeposit)
	n.loans.SetEmitter(n.feed)

	n.redemptions = redemption.NewEngine(n.redemptionVault)
	n.redemptions.SetState(mgr)
	n.redemptions.SetAdmin(params.Admin)
	n.redemptions.SetRecordDeposit(params.RecordDeposit)
	n.redemptions.SetEmitter(n.feed)

	n.ledger = assets.NewEngine()
	n.ledger.SetState(mgr)
	n.ledger.SetAdmin(params.Admin)
	n.ledger.SetEmitter(n.feed)

	n.audits = audit.NewEngine()
	n.audits.SetState(mgr)
	n.audits.SetAdmin(params.Admin)
	n.audits.SetServiceFee(params.AuditFee)
	n.audits.SetEmitter(n.feed)

	return n
}

// SetNowFunc overrides the time source of every engine and vault, for
// deterministic tests.
func (n *Node) SetNowFunc(now func() int64) {
	n.loans.SetNowFunc(now)
	n.redemptions.SetNowFunc(now)
	n.audits.SetNowFunc(now)
	n.loanVault.SetNowFunc(now)
	n.redemptionVault.SetNowFunc(now)
}

// Audits exposes the audit engine for test hooks (deterministic request IDs).
func (n *Node) Audits() *audit.Engine { return n.audits }

// RecentEvents returns the most recent events, oldest first.
func (n *Node) RecentEvents() []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.feed.Recent()
}
