package custody

import (
	"errors"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNilState       = errors.New("custody: state not configured")
	ErrAssetNotFound  = errors.New("custody: asset not found")
	ErrAlreadyHeld    = errors.New("custody: asset already in custody")
	ErrNotHolder      = errors.New("custody: caller does not hold the asset")
	ErrNotHeld        = errors.New("custody: asset not held by this vault")
	ErrWrongAuthority = errors.New("custody: holding owned by another authority")
	ErrHoldingInUse   = errors.New("custody: holding still contains the asset unit")
)

// Fixed derivation seeds for the two escrow lifecycles. Each seed yields a
// distinct, deterministic, non-signing authority identity.
const (
	LoanVaultSeed       = "vault"
	RedemptionVaultSeed = "asset_redemption_vault"
)

// Authority derives the custody authority address for a seed. The address is
// the trailing 20 bytes of keccak256("custody/" || seed); no private key for
// it exists, so holdings can only be released through vault operations.
func Authority(seed string) [20]byte {
	sum := ethcrypto.Keccak256([]byte("custody/"), []byte(seed))
	var out [20]byte
	copy(out[:], sum[12:])
	return out
}

// Holding is the bookkeeping record for one custodied asset unit. Units is 1
// while the unit sits in the vault and 0 after a release; the record itself is
// removed by CloseHolding once empty.
type Holding struct {
	Asset     [32]byte `json:"asset"`
	Authority [20]byte `json:"authority"`
	Depositor [20]byte `json:"depositor"`
	Since     int64    `json:"since"`
	Units     uint8    `json:"units"`
}

// State is the ledger surface the vault operates against. AssetOwner must
// report ok=false for unknown or burned assets.
type State interface {
	AssetOwner(asset [32]byte) ([20]byte, bool)
	SetAssetOwner(asset [32]byte, owner [20]byte) error
	HoldingGet(asset [32]byte) (*Holding, bool)
	HoldingPut(h *Holding) error
	HoldingDelete(asset [32]byte) error
}

// Vault is a program-controlled holding area keyed by asset identity. Exactly
// one vault exists per escrow lifecycle, distinguished by its derivation seed.
type Vault struct {
	authority [20]byte
	state     State
	nowFn     func() int64
}

// NewVault constructs a vault whose authority is derived from seed.
func NewVault(seed string, state State) *Vault {
	return &Vault{
		authority: Authority(seed),
		state:     state,
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (v *Vault) SetNowFunc(now func() int64) {
	if now == nil {
		v.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	v.nowFn = now
}

// AuthorityAddress returns the vault's derived custody identity.
func (v *Vault) AuthorityAddress() [20]byte { return v.authority }

// Hold moves one unit of the asset from the depositor into the vault. It fails
// if the depositor does not currently own the unit or if any vault (this one
// or a sibling lifecycle's) already holds it, which positively prevents an
// asset from entering both escrow lifecycles at once.
func (v *Vault) Hold(asset [32]byte, from [20]byte) error {
	if v == nil || v.state == nil {
		return ErrNilState
	}
	owner, ok := v.state.AssetOwner(asset)
	if !ok {
		return ErrAssetNotFound
	}
	if owner != from {
		return ErrNotHolder
	}
	if _, held := v.state.HoldingGet(asset); held {
		return ErrAlreadyHeld
	}
	if err := v.state.SetAssetOwner(asset, v.authority); err != nil {
		return err
	}
	return v.state.HoldingPut(&Holding{
		Asset:     asset,
		Authority: v.authority,
		Depositor: from,
		Since:     v.nowFn(),
		Units:     1,
	})
}

// Release moves the custodied unit out of the vault to the recipient. The
// holding record remains, empty, until CloseHolding removes it.
func (v *Vault) Release(asset [32]byte, to [20]byte) error {
	h, err := v.holding(asset)
	if err != nil {
		return err
	}
	if h.Units == 0 {
		return ErrNotHeld
	}
	if err := v.state.SetAssetOwner(asset, to); err != nil {
		return err
	}
	h.Units = 0
	return v.state.HoldingPut(h)
}

// CloseHolding deletes the bookkeeping record for an emptied holding.
func (v *Vault) CloseHolding(asset [32]byte) error {
	h, err := v.holding(asset)
	if err != nil {
		return err
	}
	if h.Units != 0 {
		return ErrHoldingInUse
	}
	return v.state.HoldingDelete(asset)
}

// Holds reports whether this vault currently contains the asset unit.
func (v *Vault) Holds(asset [32]byte) bool {
	if v == nil || v.state == nil {
		return false
	}
	h, ok := v.state.HoldingGet(asset)
	return ok && h.Authority == v.authority && h.Units == 1
}

func (v *Vault) holding(asset [32]byte) (*Holding, error) {
	if v == nil || v.state == nil {
		return nil, ErrNilState
	}
	h, ok := v.state.HoldingGet(asset)
	if !ok {
		return nil, ErrNotHeld
	}
	if h.Authority != v.authority {
		return nil, ErrWrongAuthority
	}
	return h, nil
}
