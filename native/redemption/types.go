package redemption

// Record tracks a single redemption request, keyed by asset identity. While
// Fulfilled is false the asset unit sits in the redemption vault and can only
// return to Owner via Cancel. Once Fulfilled flips true the unit stays in
// custody permanently and the record is retained as an audit trail; the design
// choice is archival rather than destructive burn.
type Record struct {
	Asset       [32]byte `json:"asset"`
	Owner       [20]byte `json:"owner"`
	RequestedAt int64    `json:"requestedAt"`
	Fulfilled   bool     `json:"fulfilled"`
}

// Clone returns a copy callers may mutate freely.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
