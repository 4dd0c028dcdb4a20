package txn

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ims/meridian/internal/batch"
)

type staticChecker struct {
	existing map[int64]map[string]bool
}

func (c *staticChecker) NumberExists(_ context.Context, itemID int64, number string) (bool, error) {
	return c.existing[itemID][number], nil
}

func findViolation(t *testing.T, violations []Violation, line int, field string) Violation {
	t.Helper()
	for _, v := range violations {
		if v.Line == line && v.Field == field {
			return v
		}
	}
	t.Fatalf("no violation for line %d field %q in %v", line, field, violations)
	return Violation{}
}

func hasViolation(violations []Violation, line int, field string) bool {
	for _, v := range violations {
		if v.Line == line && v.Field == field {
			return true
		}
	}
	return false
}

func TestBuilderRejectsEleventhLine(t *testing.T) {
	b := NewBuilder(TypeOutgoing)
	for i := 0; i < MaxLines; i++ {
		_, err := b.AddLine()
		require.NoError(t, err)
	}
	_, err := b.AddLine()
	require.ErrorIs(t, err, ErrTooManyLines)
	require.Len(t, b.Lines(), MaxLines)
}

func TestBuilderRejectsDuplicateItems(t *testing.T) {
	b := NewBuilder(TypeOutgoing)
	b.SetCustomer("Acme Hardware")

	stock := batch.Batch{ID: 7, ItemID: 42, Number: "B-001", InitialQty: 10, AvailableQty: 10}
	for i := 0; i < 2; i++ {
		idx, err := b.AddLine()
		require.NoError(t, err)
		require.NoError(t, b.SelectItem(idx, 42))
		require.NoError(t, b.SetQuantity(idx, 2))
		require.NoError(t, b.SelectBatch(idx, stock))
	}

	violations := b.Validate(context.Background(), nil)
	v := findViolation(t, violations, 1, "item_id")
	require.Contains(t, v.Message, "line 1")
}

func TestBuilderOutgoingStockCheck(t *testing.T) {
	stock := batch.Batch{ID: 7, ItemID: 42, Number: "B-002", InitialQty: 3, AvailableQty: 3}

	b := NewBuilder(TypeOutgoing)
	b.SetCustomer("Acme Hardware")
	idx, err := b.AddLine()
	require.NoError(t, err)
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetQuantity(idx, 5))
	require.NoError(t, b.SelectBatch(idx, stock))

	violations := b.Validate(context.Background(), nil)
	v := findViolation(t, violations, 0, "quantity")
	require.Contains(t, v.Message, "only 3 available")

	require.NoError(t, b.SetQuantity(idx, 3))
	built, violations := b.Build(context.Background(), nil)
	require.Empty(t, violations)
	require.Len(t, built.Lines, 1)
	require.Equal(t, -3, built.Lines[0].QuantityChange)
	require.Equal(t, int64(7), built.Lines[0].BatchID)
}

func TestBuilderOutgoingRequiresBatch(t *testing.T) {
	b := NewBuilder(TypeOutgoing)
	b.SetCustomer("Acme Hardware")
	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetQuantity(idx, 1))

	violations := b.Validate(context.Background(), nil)
	require.True(t, hasViolation(violations, 0, "batch_id"))
}

func TestBuilderQuantityBounds(t *testing.T) {
	b := NewBuilder(TypeIncoming)
	b.SetBrand(1)

	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetQuantity(idx, 0))
	require.NoError(t, b.SetIncomingDetails(idx, "B-001", decimal.NewFromInt(10), nil))
	require.True(t, hasViolation(b.Validate(context.Background(), nil), 0, "quantity"))

	require.NoError(t, b.SetQuantity(idx, MaxLineQuantity+1))
	require.True(t, hasViolation(b.Validate(context.Background(), nil), 0, "quantity"))

	require.NoError(t, b.SetQuantity(idx, MaxLineQuantity))
	require.False(t, hasViolation(b.Validate(context.Background(), nil), 0, "quantity"))
}

func TestBuilderIncomingNumberRules(t *testing.T) {
	b := NewBuilder(TypeIncoming)
	b.SetBrand(1)

	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetQuantity(idx, 4))
	require.NoError(t, b.SetIncomingDetails(idx, "BATCH-1", decimal.NewFromInt(10), nil))
	require.True(t, hasViolation(b.Validate(context.Background(), nil), 0, "batch_number"))

	// Another item's line may reuse the number; uniqueness is per item.
	require.NoError(t, b.SetIncomingDetails(idx, "B-001", decimal.NewFromInt(10), nil))
	idx2, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx2, 43))
	require.NoError(t, b.SetQuantity(idx2, 2))
	require.NoError(t, b.SetIncomingDetails(idx2, "B-001", decimal.NewFromInt(5), nil))
	violations := b.Validate(context.Background(), nil)
	require.False(t, hasViolation(violations, 0, "batch_number"))
	require.False(t, hasViolation(violations, 1, "batch_number"))

	idx3, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx3, 44))
	require.NoError(t, b.SetQuantity(idx3, 2))
	require.NoError(t, b.SetIncomingDetails(idx3, "B-002", decimal.NewFromInt(5), nil))
	checker := &staticChecker{existing: map[int64]map[string]bool{44: {"B-002": true}}}
	violations = b.Validate(context.Background(), checker)
	require.True(t, hasViolation(violations, 2, "batch_number"))
}

func TestBuilderIncomingRequiresPositiveCost(t *testing.T) {
	b := NewBuilder(TypeIncoming)
	b.SetBrand(1)
	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetQuantity(idx, 4))
	require.NoError(t, b.SetIncomingDetails(idx, "B-001", decimal.Zero, nil))
	require.True(t, hasViolation(b.Validate(context.Background(), nil), 0, "cost_price"))
}

func TestBuilderCounterpartRequired(t *testing.T) {
	incoming := NewBuilder(TypeIncoming)
	require.True(t, hasViolation(incoming.Validate(context.Background(), nil), -1, "brand_id"))

	outgoing := NewBuilder(TypeOutgoing)
	require.True(t, hasViolation(outgoing.Validate(context.Background(), nil), -1, "customer_name"))
}

func TestBuilderRequiresFilledLine(t *testing.T) {
	b := NewBuilder(TypeOutgoing)
	b.SetCustomer("Acme Hardware")
	_, _ = b.AddLine()
	require.True(t, hasViolation(b.Validate(context.Background(), nil), -1, "lines"))
}

func TestBuilderStaleAppliesDiscarded(t *testing.T) {
	b := NewBuilder(TypeOutgoing)
	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))

	// User switches items; responses tagged with the old item must drop.
	require.NoError(t, b.SelectItem(idx, 43))
	require.False(t, b.ApplyBatchOptions(idx, 42, []batch.Batch{{ID: 1}}))
	require.False(t, b.ApplySuggestedNumber(idx, 42, "B-009"))
	require.Empty(t, b.Lines()[idx].BatchOptions)
	require.Empty(t, b.Lines()[idx].BatchNumber)

	require.True(t, b.ApplyBatchOptions(idx, 43, []batch.Batch{{ID: 2}}))
	require.True(t, b.ApplySuggestedNumber(idx, 43, "B-003"))
	require.Equal(t, "B-003", b.Lines()[idx].BatchNumber)
}

func TestBuilderSelectItemClearsPayload(t *testing.T) {
	b := NewBuilder(TypeIncoming)
	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetIncomingDetails(idx, "B-005", decimal.NewFromInt(9), nil))

	require.NoError(t, b.SelectItem(idx, 43))
	line := b.Lines()[idx]
	require.Empty(t, line.BatchNumber)
	require.True(t, line.CostPrice.IsZero())
	require.Equal(t, LineItemSelected, line.State())
}

func TestBuilderFromLabel(t *testing.T) {
	b, err := NewBuilderFromLabel(LabelOutgoing)
	require.NoError(t, err)
	require.Equal(t, TypeOutgoing, b.Type())

	b, err = NewBuilderFromLabel("INCOMING")
	require.NoError(t, err)
	require.Equal(t, TypeIncoming, b.Type())

	_, err = NewBuilderFromLabel("Shrinkage Adjustment")
	require.ErrorIs(t, err, ErrUnknownTypeLabel)
}

func TestBuilderIncomingBuildPayload(t *testing.T) {
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	b := NewBuilder(TypeIncoming)
	b.SetBrand(5)
	idx, _ := b.AddLine()
	require.NoError(t, b.SelectItem(idx, 42))
	require.NoError(t, b.SetQuantity(idx, 8))
	require.NoError(t, b.SetIncomingDetails(idx, "B-004", decimal.RequireFromString("12.50"), &expiry))

	built, violations := b.Build(context.Background(), nil)
	require.Empty(t, violations)
	require.Equal(t, TypeIncoming, built.Type)
	require.Equal(t, int64(5), built.BrandID)
	require.Len(t, built.Lines, 1)
	require.Equal(t, 8, built.Lines[0].QuantityChange)
	require.Equal(t, "B-004", built.Lines[0].BatchNumber)
	require.NotNil(t, built.Lines[0].CostPrice)
	require.True(t, built.Lines[0].CostPrice.Equal(decimal.RequireFromString("12.50")))
	require.Equal(t, &expiry, built.Lines[0].ExpiresAt)
}

func TestLineCostPriceSerialization(t *testing.T) {
	outgoing, err := json.Marshal(Line{ItemID: 42, QuantityChange: -3, BatchID: 7})
	require.NoError(t, err)
	require.NotContains(t, string(outgoing), "cost_price")

	incoming, err := json.Marshal(Line{
		ItemID: 42, QuantityChange: 3, BatchNumber: "B-004",
		CostPrice: money("12.50"),
	})
	require.NoError(t, err)
	require.Contains(t, string(incoming), `"cost_price":"12.5"`)
}
