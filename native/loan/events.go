package loan

import (
	"encoding/hex"
	"strconv"

	"collectvault/core/types"
)

const (
	EventTypeLoanOpened    = "loan.opened"
	EventTypeLoanFunded    = "loan.funded"
	EventTypeLoanRepaid    = "loan.repaid"
	EventTypeLoanDefaulted = "loan.defaulted"
	EventTypeLoanCancelled = "loan.cancelled"
)

// NewOpenedEvent returns the canonical payload for a newly staked loan request.
func NewOpenedEvent(r *Record) *types.Event { return newLoanEvent(EventTypeLoanOpened, r) }

// NewFundedEvent returns the payload emitted when a lender funds the request.
func NewFundedEvent(r *Record) *types.Event { return newLoanEvent(EventTypeLoanFunded, r) }

// NewRepaidEvent returns the payload emitted on successful repayment.
func NewRepaidEvent(r *Record) *types.Event { return newLoanEvent(EventTypeLoanRepaid, r) }

// NewDefaultedEvent returns the payload emitted when the lender seizes the
// collateral after expiry.
func NewDefaultedEvent(r *Record) *types.Event { return newLoanEvent(EventTypeLoanDefaulted, r) }

// NewCancelledEvent returns the payload emitted when an unfunded request is
// withdrawn by its owner.
func NewCancelledEvent(r *Record) *types.Event { return newLoanEvent(EventTypeLoanCancelled, r) }

func newLoanEvent(eventType string, r *Record) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["asset"] = hex.EncodeToString(r.Asset[:])
	attrs["owner"] = hex.EncodeToString(r.Owner[:])
	attrs["principal"] = strconv.FormatUint(r.Principal, 10)
	attrs["interest"] = strconv.FormatUint(r.Interest, 10)
	attrs["duration"] = strconv.FormatInt(r.Duration, 10)
	if r.Funding != nil {
		attrs["lender"] = hex.EncodeToString(r.Funding.Lender[:])
		attrs["fundedAt"] = strconv.FormatInt(r.Funding.FundedAt, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
