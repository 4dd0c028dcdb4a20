package batch

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-ims/meridian/internal/pricing"
)

// Status labels the lifecycle state of a batch.
type Status string

const (
	// StatusActive means the batch still has sellable stock.
	StatusActive Status = "Active"
	// StatusExpired means the expiry date has passed.
	StatusExpired Status = "Expired"
	// StatusDepleted means no quantity remains available.
	StatusDepleted Status = "Depleted"
)

// Batch is a discrete receipt of stock for one item, consumed over time by
// outgoing transactions. Created when an incoming transaction line is
// accepted; never deleted.
type Batch struct {
	ID             int64           `json:"batch_id"`
	ItemID         int64           `json:"item_id"`
	Number         string          `json:"batch_number"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	CostTier       pricing.Tier    `json:"cost_tier"`
	InitialQty     int             `json:"initial_quantity"`
	AvailableQty   int             `json:"quantity_available"`
	ReservedQty    int             `json:"quantity_reserved"`
	SoldQty        int             `json:"quantity_sold"`
	PurchasedAt    time.Time       `json:"purchase_date"`
	ManufacturedAt *time.Time      `json:"manufacturing_date,omitempty"`
	ExpiresAt      *time.Time      `json:"expiry_date,omitempty"`
}

// ExpiryStatus is derived from the expiry date, never stored.
type ExpiryStatus struct {
	Expired      bool
	DaysToExpiry *int
}

var (
	// ErrInsufficientStock is raised when a requested quantity exceeds the
	// batch's available quantity. Recoverable: pick another batch or quantity.
	ErrInsufficientStock = errors.New("batch: insufficient available quantity")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("batch: quantity must be positive")
	// ErrConservation indicates a broken ledger invariant.
	ErrConservation = errors.New("batch: initial quantity must equal available + reserved + sold")
	// ErrInvalidBatchFormat indicates a client-generated number outside B-NNN.
	ErrInvalidBatchFormat = errors.New("batch: number must match B-NNN")
	// ErrDuplicateBatchNumber indicates a number already used for the item.
	ErrDuplicateBatchNumber = errors.New("batch: number already used for this item")
	// ErrNotFound indicates a missing batch row.
	ErrNotFound = errors.New("batch: not found")
)
