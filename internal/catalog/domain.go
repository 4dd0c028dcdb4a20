package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Availability is derived from quantity vs threshold, never stored.
type Availability string

const (
	AvailabilityInStock    Availability = "In Stock"
	AvailabilityLowStock   Availability = "Low Stock"
	AvailabilityOutOfStock Availability = "Out of Stock"
)

// MaxThreshold bounds the reorder point.
const MaxThreshold = 32767

// Item is a sellable product aggregated across its batches.
type Item struct {
	ID          int64        `json:"item_id"`
	Name        string       `json:"name"`
	ModelNumber string       `json:"model_number"`
	Type        string       `json:"type"`
	Category    string       `json:"category"`
	BrandID     int64        `json:"brand_id"`
	Quantity    int          `json:"quantity"`
	Threshold   int          `json:"threshold_value"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Status      Availability `json:"availability_status"`
}

// Brand is externally owned reference data.
type Brand struct {
	ID   int64  `json:"brand_id"`
	Name string `json:"name"`
}

var (
	// ErrNotFound indicates a missing item or brand.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidName indicates a name outside length or charset limits.
	ErrInvalidName = errors.New("catalog: invalid item name")
	// ErrInvalidModelNumber indicates a model number outside limits.
	ErrInvalidModelNumber = errors.New("catalog: invalid model number")
	// ErrInvalidThreshold indicates a threshold outside 0..32767.
	ErrInvalidThreshold = errors.New("catalog: threshold must be between 0 and 32767")
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 .,'&()/_-]{0,99}$`)
	modelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ./_-]{0,49}$`)
)

// DeriveAvailability labels the stock position. The threshold comparison is
// inclusive: quantity equal to the threshold already counts as low.
func DeriveAvailability(quantity, threshold int) Availability {
	switch {
	case quantity <= 0:
		return AvailabilityOutOfStock
	case quantity <= threshold:
		return AvailabilityLowStock
	default:
		return AvailabilityInStock
	}
}

// Validate checks the writable item fields against server constraints.
func (i Item) Validate() error {
	if !namePattern.MatchString(i.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, i.Name)
	}
	if !modelPattern.MatchString(i.ModelNumber) {
		return fmt.Errorf("%w: %q", ErrInvalidModelNumber, i.ModelNumber)
	}
	if i.Threshold < 0 || i.Threshold > MaxThreshold {
		return ErrInvalidThreshold
	}
	return nil
}
