package txn

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type distinguishes stock-in from stock-out.
type Type string

const (
	// TypeIncoming receives stock from a brand.
	TypeIncoming Type = "INCOMING"
	// TypeOutgoing sells stock to a customer.
	TypeOutgoing Type = "OUTGOING"
)

// Status is the transaction lifecycle state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// MaxLines bounds the line count per transaction. A domain rule, not a UI
// nicety: it bounds request size.
const MaxLines = 10

// MaxLineQuantity bounds a single line's absolute quantity.
const MaxLineQuantity = 32767

// Verbose type labels as shown on the entry form. The mapping lives here and
// only here.
const (
	LabelIncoming = "Receive Products (from Brands)"
	LabelOutgoing = "Sell Products (to Customers)"
)

// ErrUnknownTypeLabel indicates a type string outside the known set.
var ErrUnknownTypeLabel = errors.New("txn: unknown transaction type")

// ParseType accepts either the enum value or the verbose form label.
func ParseType(s string) (Type, error) {
	switch s {
	case string(TypeIncoming), LabelIncoming:
		return TypeIncoming, nil
	case string(TypeOutgoing), LabelOutgoing:
		return TypeOutgoing, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTypeLabel, s)
	}
}

// Label returns the verbose form label for the type.
func (t Type) Label() string {
	if t == TypeIncoming {
		return LabelIncoming
	}
	return LabelOutgoing
}

// Transaction is a posted stock movement with its lines.
type Transaction struct {
	ID              int64      `json:"transaction_id"`
	ReferenceNumber string     `json:"reference_number"`
	Type            Type       `json:"transaction_type"`
	Status          Status     `json:"transaction_status"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	BrandID         int64      `json:"brand_id,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	Lines           []Line     `json:"lines"`
}

// Line is one item movement. QuantityChange is signed: positive for incoming,
// negative for outgoing. Displays always show the absolute value.
type Line struct {
	ID             int64            `json:"line_id"`
	TransactionID  int64            `json:"transaction_id"`
	ItemID         int64            `json:"item_id"`
	QuantityChange int              `json:"quantity_change"`
	BatchID        int64            `json:"batch_id,omitempty"`
	BatchNumber    string           `json:"batch_number,omitempty"`
	CostPrice      *decimal.Decimal `json:"cost_price,omitempty"`
	ExpiresAt      *time.Time       `json:"expiry_date,omitempty"`
}

var (
	// ErrTooManyLines is raised when adding an eleventh line.
	ErrTooManyLines = errors.New("txn: transaction may not exceed 10 lines")
	// ErrNotFound indicates a missing transaction.
	ErrNotFound = errors.New("txn: not found")
	// ErrNotPending indicates a lifecycle operation on a settled transaction.
	ErrNotPending = errors.New("txn: transaction is not pending")
)
