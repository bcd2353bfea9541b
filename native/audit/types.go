package audit

// MaxURLLength bounds each stored snapshot URL.
const MaxURLLength = 100

// Status describes the lifecycle of an audit request.
type Status uint8

const (
	StatusPending Status = iota
	StatusCompleted
	StatusRejected
)

// String returns the lowercase label used in events and RPC payloads.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Request tracks one paid audit request for an asset.
type Request struct {
	ID          string   `json:"id"`
	Asset       [32]byte `json:"asset"`
	Requester   [20]byte `json:"requester"`
	RequestedAt int64    `json:"requestedAt"`
	CompletedAt int64    `json:"completedAt,omitempty"`
	Status      Status   `json:"status"`
}

// Clone returns a copy callers may mutate freely.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Snapshot is an append-only audit result for an asset. Snapshots are never
// updated or deleted; the per-asset sequence number orders them.
type Snapshot struct {
	Asset     [32]byte `json:"asset"`
	RequestID string   `json:"requestId"`
	Sequence  uint64   `json:"sequence"`
	ImageURLs []string `json:"imageUrls"`
	Timestamp int64    `json:"timestamp"`
}
