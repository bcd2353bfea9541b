package redemption

import (
	"encoding/hex"
	"strconv"

	"collectvault/core/types"
)

const (
	EventTypeRedemptionRequested = "redemption.requested"
	EventTypeRedemptionCancelled = "redemption.cancelled"
	EventTypeRedemptionFulfilled = "redemption.fulfilled"
)

// NewRequestedEvent returns the payload for a freshly opened redemption request.
func NewRequestedEvent(r *Record) *types.Event {
	return newRedemptionEvent(EventTypeRedemptionRequested, r)
}

// NewCancelledEvent returns the payload emitted when the owner withdraws the
// request and recovers the asset.
func NewCancelledEvent(r *Record) *types.Event {
	return newRedemptionEvent(EventTypeRedemptionCancelled, r)
}

// NewFulfilledEvent returns the payload emitted on administrator sign-off.
func NewFulfilledEvent(r *Record) *types.Event {
	return newRedemptionEvent(EventTypeRedemptionFulfilled, r)
}

func newRedemptionEvent(eventType string, r *Record) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["asset"] = hex.EncodeToString(r.Asset[:])
	attrs["owner"] = hex.EncodeToString(r.Owner[:])
	attrs["requestedAt"] = strconv.FormatInt(r.RequestedAt, 10)
	attrs["fulfilled"] = strconv.FormatBool(r.Fulfilled)
	return &types.Event{Type: eventType, Attributes: attrs}
}
