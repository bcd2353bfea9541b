package assets

import (
	"encoding/hex"
	"strconv"

	"collectvault/core/events"
	"collectvault/core/types"
)

const (
	EventTypeCollectionCreated = "assets.collection_created"
	EventTypeAssetMinted       = "assets.minted"
	EventTypeAssetTransferred  = "assets.transferred"
	EventTypeAssetBurned       = "assets.burned"
)

type engineState interface {
	AssetGet(id [32]byte) (*Asset, bool)
	AssetPut(a *Asset) error
	CollectionGet(id [32]byte) (*Collection, bool)
	CollectionPut(c *Collection) error
}

type assetEvent struct {
	evt *types.Event
}

func (e assetEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e assetEvent) Event() *types.Event { return e.evt }

// Engine maintains the collection/mint ledger. Minting and collection creation
// are administrator-only; transfers and burns act on free (non-custodied)
// units because escrowed units are owned by a custody authority nobody can
// sign for.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	admin    [20]byte
	adminSet bool
}

// NewEngine creates an asset ledger engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdmin injects the fixed administrator identity from configuration.
func (e *Engine) SetAdmin(admin [20]byte) {
	e.admin = admin
	e.adminSet = true
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
	e.emitter.Emit(assetEvent{evt: evt})
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if !e.adminSet || caller != e.admin {
		return ErrUnauthorizedSigner
	}
	return nil
}

// Get returns a copy of the asset, if it exists and has not been burned.
func (e *Engine) Get(id [32]byte) (*Asset, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	a, ok := e.state.AssetGet(id)
	if !ok || a.Burned {
		return nil, false
	}
	return a.Clone(), true
}

// CreateCollection registers a named collection with a zeroed mint counter.
func (e *Engine) CreateCollection(caller [20]byte, name string) (*Collection, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	id := CollectionID(name)
	if _, exists := e.state.CollectionGet(id); exists {
		return nil, ErrCollectionExists
	}
	col := &Collection{ID: id, Name: name}
	if err := e.state.CollectionPut(col); err != nil {
		return nil, err
	}
	e.emit(&types.Event{Type: EventTypeCollectionCreated, Attributes: map[string]string{
		"collection": hex.EncodeToString(id[:]),
		"name":       name,
	}})
	return col, nil
}

// Mint creates the next asset in a collection, owned by the administrator.
func (e *Engine) Mint(caller [20]byte, collection [32]byte, uri string) (*Asset, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, ErrEmptyURI
	}
	if len(uri) > MaxURILength {
		return nil, ErrURITooLong
	}
	col, ok := e.state.CollectionGet(collection)
	if !ok {
		return nil, ErrCollectionNotFound
	}
	seq := col.Count + 1
	if seq == 0 {
		return nil, ErrCalculation
	}
	asset := &Asset{
		ID:         AssetID(collection, seq),
		Collection: collection,
		Sequence:   seq,
		Owner:      caller,
		URI:        uri,
	}
	col.Count = seq
	if err := e.state.CollectionPut(col); err != nil {
		return nil, err
	}
	if err := e.state.AssetPut(asset); err != nil {
		return nil, err
	}
	e.emit(&types.Event{Type: EventTypeAssetMinted, Attributes: map[string]string{
		"asset":      hex.EncodeToString(asset.ID[:]),
		"collection": hex.EncodeToString(collection[:]),
		"sequence":   strconv.FormatUint(seq, 10),
		"owner":      hex.EncodeToString(caller[:]),
	}})
	return asset.Clone(), nil
}

// Transfer moves ownership of a free unit between identities.
func (e *Engine) Transfer(id [32]byte, from, to [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	asset, ok := e.state.AssetGet(id)
	if !ok {
		return ErrAssetNotFound
	}
	if asset.Burned {
		return ErrAssetBurned
	}
	if asset.Owner != from {
		return ErrNotAssetOwner
	}
	asset.Owner = to
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(&types.Event{Type: EventTypeAssetTransferred, Attributes: map[string]string{
		"asset": hex.EncodeToString(id[:]),
		"from":  hex.EncodeToString(from[:]),
		"to":    hex.EncodeToString(to[:]),
	}})
	return nil
}

// Burn destroys a free unit. The entry is retained with a tombstone flag so
// the sequence space of its collection stays dense.
func (e *Engine) Burn(id [32]byte, caller [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	asset, ok := e.state.AssetGet(id)
	if !ok {
		return ErrAssetNotFound
	}
	if asset.Burned {
		return ErrAssetBurned
	}
	if asset.Owner != caller {
		return ErrNotAssetOwner
	}
	asset.Burned = true
	if err := e.state.AssetPut(asset); err != nil {
		return err
	}
	e.emit(&types.Event{Type: EventTypeAssetBurned, Attributes: map[string]string{
		"asset": hex.EncodeToString(id[:]),
		"owner": hex.EncodeToString(caller[:]),
	}})
	return nil
}
