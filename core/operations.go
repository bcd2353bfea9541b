package core

import (
	"math/big"
	"time"

	"collectvault/core/types"
	"collectvault/native/assets"
	"collectvault/native/audit"
	"collectvault/native/loan"
	"collectvault/native/redemption"
	"collectvault/observability"
)

// Each entry point locks, runs the engine operation as one atomic step and
// records the outcome. Engines surface their sentinel errors verbatim; the
// node adds nothing on top.

func (n *Node) observe(module, operation string, started time.Time, err error) {
	observability.Metrics().Observe(module, operation, started, err)
}

// --- loan lifecycle ---

func (n *Node) OpenLoan(asset [32]byte, owner [20]byte, principal, interest uint64, duration int64) (rec *loan.Record, err error) {
	defer func(started time.Time) { n.observe("loan", "open", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Open(asset, owner, principal, interest, duration)
}

func (n *Node) FundLoan(asset [32]byte, lender [20]byte) (err error) {
	defer func(started time.Time) { n.observe("loan", "fund", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Fund(asset, lender)
}

func (n *Node) RepayLoan(asset [32]byte, caller [20]byte) (err error) {
	defer func(started time.Time) { n.observe("loan", "repay", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Repay(asset, caller)
}

func (n *Node) ClaimDefault(asset [32]byte, caller [20]byte) (err error) {
	defer func(started time.Time) { n.observe("loan", "claim_default", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.ClaimDefault(asset, caller)
}

func (n *Node) CancelLoan(asset [32]byte, caller [20]byte) (err error) {
	defer func(started time.Time) { n.observe("loan", "cancel", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Cancel(asset, caller)
}

func (n *Node) GetLoan(asset [32]byte) (*loan.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loans.Get(asset)
}

// --- redemption lifecycle ---

func (n *Node) OpenRedemption(asset [32]byte, owner [20]byte) (rec *redemption.Record, err error) {
	defer func(started time.Time) { n.observe("redemption", "open", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redemptions.Open(asset, owner)
}

func (n *Node) CancelRedemption(asset [32]byte, caller [20]byte) (err error) {
	defer func(started time.Time) { n.observe("redemption", "cancel", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redemptions.Cancel(asset, caller)
}

func (n *Node) FulfillRedemption(asset [32]byte, caller [20]byte) (err error) {
	defer func(started time.Time) { n.observe("redemption", "fulfill", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redemptions.Fulfill(asset, caller)
}

func (n *Node) GetRedemption(asset [32]byte) (*redemption.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redemptions.Get(asset)
}

// --- asset ledger ---

func (n *Node) CreateCollection(caller [20]byte, name string) (col *assets.Collection, err error) {
	defer func(started time.Time) { n.observe("assets", "create_collection", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.CreateCollection(caller, name)
}

func (n *Node) MintAsset(caller [20]byte, collection [32]byte, uri string) (a *assets.Asset, err error) {
	defer func(started time.Time) { n.observe("assets", "mint", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Mint(caller, collection, uri)
}

func (n *Node) TransferAsset(asset [32]byte, from, to [20]byte) (err error) {
	defer func(started time.Time) { n.observe("assets", "transfer", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Transfer(asset, from, to)
}

func (n *Node) BurnAsset(asset [32]byte, caller [20]byte) (err error) {
	defer func(started time.Time) { n.observe("assets", "burn", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Burn(asset, caller)
}

func (n *Node) GetAsset(asset [32]byte) (*assets.Asset, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Get(asset)
}

// --- audit subsystem ---

func (n *Node) RequestAudit(asset [32]byte, requester [20]byte) (req *audit.Request, err error) {
	defer func(started time.Time) { n.observe("audit", "request", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.audits.Request(asset, requester)
}

func (n *Node) ProvideAuditSnapshot(caller [20]byte, requestID string, imageURLs []string) (snap *audit.Snapshot, err error) {
	defer func(started time.Time) { n.observe("audit", "provide_snapshot", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.audits.ProvideSnapshot(caller, requestID, imageURLs)
}

func (n *Node) RejectAudit(caller [20]byte, requestID string) (err error) {
	defer func(started time.Time) { n.observe("audit", "reject", started, err) }(time.Now())
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.audits.Reject(caller, requestID)
}

func (n *Node) GetAuditRequest(id string) (*audit.Request, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.audits.GetRequest(id)
}

func (n *Node) GetAuditSnapshots(asset [32]byte) ([]*audit.Snapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.AuditSnapshots(asset)
}

// --- accounts ---

func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr)
}

// Credit adds value to an account. It exists for genesis funding and local
// development; production balances arrive through external settlement.
func (n *Node) Credit(addr [20]byte, amount uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	acc, err := n.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.EnsureAccount(acc)
	acc.Balance.Add(acc.Balance, new(big.Int).SetUint64(amount))
	return n.state.PutAccount(addr, acc)
}
