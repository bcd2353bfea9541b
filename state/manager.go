package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"collectvault/core/types"
	"collectvault/native/assets"
	"collectvault/native/audit"
	"collectvault/native/custody"
	"collectvault/native/loan"
	"collectvault/native/redemption"
	"collectvault/storage"
)

// Key namespaces. Every persisted record's address is a deterministic
// derivation from its namespace tag plus the identity it is keyed by, so no
// directory structure is needed to enumerate or locate records.
var (
	accountPrefix       = []byte("account/")
	assetPrefix         = []byte("asset/")
	collectionPrefix    = []byte("collection/")
	loanPrefix          = []byte("loan/")
	redemptionPrefix    = []byte("redemption/")
	holdingPrefix       = []byte("holding/")
	auditRequestPrefix  = []byte("audit/request/")
	auditSnapshotPrefix = []byte("audit/snapshot/")
	auditCountPrefix    = []byte("audit/count/")
)

// Manager persists all vault records in a key-value store and implements the
// state interfaces the native engines are wired against. It performs no
// locking of its own; the Node serializes all mutating operations.
type Manager struct {
	db storage.Database
}

// NewManager wraps a database in a state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func key(prefix []byte, suffix []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(suffix))
	out = append(out, prefix...)
	return append(out, suffix...)
}

func (m *Manager) getJSON(k []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(k)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", k, err)
	}
	return true, nil
}

// lookupJSON backs the ok-shaped getters the engines are wired against. A
// record that fails to decode is reported as absent to the caller, but never
// silently: corruption in the store must be visible to operators, because the
// asset's holding may still block the asset while its record reads as gone.
func (m *Manager) lookupJSON(k []byte, out interface{}) bool {
	ok, err := m.getJSON(k, out)
	if err != nil {
		slog.Error("State lookup failed", "key", string(k), "error", err)
		return false
	}
	return ok
}

func (m *Manager) putJSON(k []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", k, err)
	}
	return m.db.Put(k, raw)
}

// --- accounts ---

func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var acc types.Account
	ok, err := m.getJSON(key(accountPrefix, addr[:]), &acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EnsureAccount(nil), nil
	}
	return types.EnsureAccount(&acc), nil
}

func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return m.putJSON(key(accountPrefix, addr[:]), types.EnsureAccount(account))
}

// --- asset ledger ---

func (m *Manager) AssetGet(id [32]byte) (*assets.Asset, bool) {
	var a assets.Asset
	if !m.lookupJSON(key(assetPrefix, id[:]), &a) {
		return nil, false
	}
	return &a, true
}

func (m *Manager) AssetPut(a *assets.Asset) error {
	if a == nil {
		return fmt.Errorf("state: nil asset")
	}
	return m.putJSON(key(assetPrefix, a.ID[:]), a)
}

// AssetExists reports whether a live (non-burned) asset entry exists.
func (m *Manager) AssetExists(id [32]byte) bool {
	a, ok := m.AssetGet(id)
	return ok && !a.Burned
}

// AssetOwner satisfies the custody ledger contract: unknown and burned assets
// report ok=false.
func (m *Manager) AssetOwner(id [32]byte) ([20]byte, bool) {
	a, ok := m.AssetGet(id)
	if !ok || a.Burned {
		return [20]byte{}, false
	}
	return a.Owner, true
}

func (m *Manager) SetAssetOwner(id [32]byte, owner [20]byte) error {
	a, ok := m.AssetGet(id)
	if !ok {
		return assets.ErrAssetNotFound
	}
	a.Owner = owner
	return m.AssetPut(a)
}

func (m *Manager) CollectionGet(id [32]byte) (*assets.Collection, bool) {
	var c assets.Collection
	if !m.lookupJSON(key(collectionPrefix, id[:]), &c) {
		return nil, false
	}
	return &c, true
}

func (m *Manager) CollectionPut(c *assets.Collection) error {
	if c == nil {
		return fmt.Errorf("state: nil collection")
	}
	return m.putJSON(key(collectionPrefix, c.ID[:]), c)
}

// --- custody holdings ---

func (m *Manager) HoldingGet(asset [32]byte) (*custody.Holding, bool) {
	var h custody.Holding
	if !m.lookupJSON(key(holdingPrefix, asset[:]), &h) {
		return nil, false
	}
	return &h, true
}

func (m *Manager) HoldingPut(h *custody.Holding) error {
	if h == nil {
		return fmt.Errorf("state: nil holding")
	}
	return m.putJSON(key(holdingPrefix, h.Asset[:]), h)
}

func (m *Manager) HoldingDelete(asset [32]byte) error {
	return m.db.Delete(key(holdingPrefix, asset[:]))
}

// --- loan records ---

func (m *Manager) LoanGet(asset [32]byte) (*loan.Record, bool) {
	var r loan.Record
	if !m.lookupJSON(key(loanPrefix, asset[:]), &r) {
		return nil, false
	}
	return &r, true
}

func (m *Manager) LoanPut(r *loan.Record) error {
	if r == nil {
		return fmt.Errorf("state: nil loan record")
	}
	return m.putJSON(key(loanPrefix, r.Asset[:]), r)
}

func (m *Manager) LoanDelete(asset [32]byte) error {
	return m.db.Delete(key(loanPrefix, asset[:]))
}

// --- redemption records ---

func (m *Manager) RedemptionGet(asset [32]byte) (*redemption.Record, bool) {
	var r redemption.Record
	if !m.lookupJSON(key(redemptionPrefix, asset[:]), &r) {
		return nil, false
	}
	return &r, true
}

func (m *Manager) RedemptionPut(r *redemption.Record) error {
	if r == nil {
		return fmt.Errorf("state: nil redemption record")
	}
	return m.putJSON(key(redemptionPrefix, r.Asset[:]), r)
}

func (m *Manager) RedemptionDelete(asset [32]byte) error {
	return m.db.Delete(key(redemptionPrefix, asset[:]))
}

// --- audit records ---

func (m *Manager) AuditRequestGet(id string) (*audit.Request, bool) {
	var r audit.Request
	if !m.lookupJSON(key(auditRequestPrefix, []byte(id)), &r) {
		return nil, false
	}
	return &r, true
}

func (m *Manager) AuditRequestPut(r *audit.Request) error {
	if r == nil {
		return fmt.Errorf("state: nil audit request")
	}
	return m.putJSON(key(auditRequestPrefix, []byte(r.ID)), r)
}

func snapshotKey(asset [32]byte, sequence uint64) []byte {
	suffix := make([]byte, 0, len(asset)+9)
	suffix = append(suffix, asset[:]...)
	suffix = append(suffix, '/')
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	return key(auditSnapshotPrefix, append(suffix, seq[:]...))
}

// AuditSnapshotPut appends a snapshot and advances the per-asset counter.
// Snapshots are immutable once written.
func (m *Manager) AuditSnapshotPut(s *audit.Snapshot) error {
	if s == nil {
		return fmt.Errorf("state: nil audit snapshot")
	}
	if err := m.putJSON(snapshotKey(s.Asset, s.Sequence), s); err != nil {
		return err
	}
	var count [8]byte
	binary.BigEndian.PutUint64(count[:], s.Sequence)
	return m.db.Put(key(auditCountPrefix, s.Asset[:]), count[:])
}

// AuditSnapshotCount returns the number of snapshots recorded for the asset.
func (m *Manager) AuditSnapshotCount(asset [32]byte) (uint64, error) {
	raw, err := m.db.Get(key(auditCountPrefix, asset[:]))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed audit counter for asset")
	}
	return binary.BigEndian.Uint64(raw), nil
}

// AuditSnapshots returns all snapshots for an asset in sequence order.
func (m *Manager) AuditSnapshots(asset [32]byte) ([]*audit.Snapshot, error) {
	prefix := key(auditSnapshotPrefix, append(append([]byte{}, asset[:]...), '/'))
	var out []*audit.Snapshot
	var iterErr error
	err := m.db.Iterate(prefix, func(_, value []byte) bool {
		var s audit.Snapshot
		if err := json.Unmarshal(value, &s); err != nil {
			iterErr = fmt.Errorf("state: decode audit snapshot: %w", err)
			return false
		}
		out = append(out, &s)
		return true
	})
	if err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}
