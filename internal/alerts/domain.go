package alerts

import "time"

// Priority ranks an alert for display ordering.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityUrgent   Priority = "Urgent"
	PriorityNormal   Priority = "Normal"
)

// rank orders priorities for sorting, lowest first.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityUrgent:
		return 1
	default:
		return 2
	}
}

// PendingRef summarizes the pending transaction attached to an alert.
type PendingRef struct {
	TransactionID int64      `json:"transaction_id"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	RequestedQty  int        `json:"requested_quantity"`
}

// AlertItem is a derived view over an item and an optional pending
// transaction. Never persisted; recomputed from a snapshot each refresh.
type AlertItem struct {
	ItemID       int64       `json:"item_id"`
	Name         string      `json:"name"`
	Quantity     int         `json:"quantity"`
	Threshold    int         `json:"threshold_value"`
	Priority     Priority    `json:"priority"`
	IsPendingDue bool        `json:"is_pending_due"`
	Pending      *PendingRef `json:"pending_transaction,omitempty"`
	SuggestedQty int         `json:"suggested_quantity"`
}

// ItemSnapshot is the item slice of a prioritizer input.
type ItemSnapshot struct {
	ItemID    int64
	Name      string
	Quantity  int
	Threshold int
}

// PendingLineSnapshot is one pending outgoing line, in transaction order.
// RequestedQty overrides the quantity change magnitude when positive.
type PendingLineSnapshot struct {
	TransactionID  int64
	ItemID         int64
	DueDate        *time.Time
	QuantityChange int
	RequestedQty   int
}
