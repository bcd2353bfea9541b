package assets

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// MaxURILength bounds the product detail URI stored with each asset.
const MaxURILength = 200

// Collection groups assets and assigns them sequential identifiers.
type Collection struct {
	ID    [32]byte `json:"id"`
	Name  string   `json:"name"`
	Count uint64   `json:"count"`
}

// Asset is one uniquely identified, non-fungible collateral unit. Ownership is
// the single source of truth for who may stake, redeem or transfer the unit;
// while escrowed the owner is the custody authority.
type Asset struct {
	ID         [32]byte `json:"id"`
	Collection [32]byte `json:"collection"`
	Sequence   uint64   `json:"sequence"`
	Owner      [20]byte `json:"owner"`
	URI        string   `json:"uri"`
	Burned     bool     `json:"burned"`
}

// Clone returns a copy callers may mutate freely.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// CollectionID derives the deterministic identity of a named collection.
func CollectionID(name string) [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256([]byte("collection/"), []byte(name)))
	return id
}

// AssetID derives the identity of the sequence-th asset within a collection.
// The namespace-tagged derivation guarantees global uniqueness without a
// separate directory structure.
func AssetID(collection [32]byte, sequence uint64) [32]byte {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256([]byte("asset/"), collection[:], seq[:]))
	return id
}
