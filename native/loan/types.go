package loan

// Funding groups the fields that only exist once a lender has funded the
// request. Modelling them as one optional composite makes the "both present or
// both absent" invariant structural instead of conventional.
type Funding struct {
	Lender   [20]byte `json:"lender"`
	FundedAt int64    `json:"fundedAt"`
}

// Record is the state of a single collateralized loan request, keyed by the
// asset identity. A Record exists if and only if the asset unit sits in the
// loan vault; it is deleted on every terminal transition.
type Record struct {
	Asset     [32]byte `json:"asset"`
	Owner     [20]byte `json:"owner"`
	Principal uint64   `json:"principal"`
	Interest  uint64   `json:"interest"`
	Duration  int64    `json:"duration"`
	Funding   *Funding `json:"funding,omitempty"`
	Active    bool     `json:"active"`
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Funding != nil {
		f := *r.Funding
		clone.Funding = &f
	}
	return &clone
}

// Funded reports whether a lender has committed principal to this request.
func (r *Record) Funded() bool {
	return r != nil && r.Funding != nil
}

// Deadline returns the last instant at which repayment is still accepted. The
// boundary instant itself belongs to the borrower: Repay succeeds at
// now == Deadline, ClaimDefault requires now > Deadline. ok is false when the
// deadline is not representable in an int64; Fund refuses such records, so a
// funded loan always carries a valid deadline.
func (r *Record) Deadline() (int64, bool) {
	if r == nil || r.Funding == nil {
		return 0, false
	}
	return checkedAddInt64(r.Funding.FundedAt, r.Duration)
}

// Validate checks the structural invariants of a record.
func (r *Record) Validate() error {
	if r == nil {
		return ErrLoanNotFound
	}
	if r.Duration <= 0 {
		return ErrInvalidLoanDuration
	}
	if r.Active && r.Funding == nil {
		return ErrLoanNotActive
	}
	return nil
}

// checkedAdd adds two uint64 values, reporting ok=false on wrap-around.
func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// checkedAddInt64 adds two int64 values, reporting ok=false on signed
// overflow in either direction.
func checkedAddInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
