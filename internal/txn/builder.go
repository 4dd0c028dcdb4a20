package txn

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-ims/meridian/internal/batch"
)

// LineState tracks a form line through entry.
type LineState int

const (
	// LineEmpty has no item selected yet.
	LineEmpty LineState = iota
	// LineItemSelected has an item but incomplete details.
	LineItemSelected
	// LineConfigured has an item plus mode-specific details entered.
	// Configured does not imply valid: Validate decides that.
	LineConfigured
)

// BuilderLine is one line of an in-progress transaction form.
type BuilderLine struct {
	state    LineState
	ItemID   int64
	Quantity int // absolute value as typed

	// Outgoing: the human-selected batch to draw from.
	SelectedBatch *batch.Batch
	BatchOptions  []batch.Batch

	// Incoming payload.
	BatchNumber     string
	SuggestedNumber string
	CostPrice       decimal.Decimal
	ExpiresAt       *time.Time
}

// State exposes the line's entry state.
func (l *BuilderLine) State() LineState {
	return l.state
}

// NumberChecker looks up existing batch numbers. A nil checker skips the
// existing-batch uniqueness check (the lookup collaborator may be absent;
// the backend remains authoritative at commit time).
type NumberChecker interface {
	NumberExists(ctx context.Context, itemID int64, number string) (bool, error)
}

// Violation is one broken rule found at submit time. Line is the zero-based
// line index, or -1 for transaction-level rules.
type Violation struct {
	Line    int    `json:"line"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Builder assembles a multi-line transaction. It owns the form state
// exclusively for one entry session and is discarded on submit or cancel.
type Builder struct {
	txType       Type
	brandID      int64
	customerName string
	dueDate      *time.Time
	notes        string
	lines        []*BuilderLine
}

// NewBuilder starts an entry session for the given type.
func NewBuilder(t Type) *Builder {
	return &Builder{txType: t}
}

// NewBuilderFromLabel starts a session from the form's verbose type string.
func NewBuilderFromLabel(label string) (*Builder, error) {
	t, err := ParseType(label)
	if err != nil {
		return nil, err
	}
	return NewBuilder(t), nil
}

// Type returns the transaction type under entry.
func (b *Builder) Type() Type {
	return b.txType
}

// SetBrand records the incoming counterpart.
func (b *Builder) SetBrand(id int64) { b.brandID = id }

// SetCustomer records the outgoing counterpart.
func (b *Builder) SetCustomer(name string) { b.customerName = name }

// SetDueDate records the outgoing due date.
func (b *Builder) SetDueDate(d *time.Time) { b.dueDate = d }

// SetNotes records free-text notes.
func (b *Builder) SetNotes(notes string) { b.notes = notes }

// AddLine appends an empty line and returns its index. The line cap is a
// hard rule: the eleventh line is refused outright.
func (b *Builder) AddLine() (int, error) {
	if len(b.lines) >= MaxLines {
		return 0, ErrTooManyLines
	}
	b.lines = append(b.lines, &BuilderLine{})
	return len(b.lines) - 1, nil
}

// Lines returns the current lines.
func (b *Builder) Lines() []*BuilderLine {
	return b.lines
}

// SelectItem moves a line to ItemSelected and clears any payload belonging
// to a previously selected item. In-flight lookups dispatched for the old
// item become stale and will be discarded by the Apply guards.
func (b *Builder) SelectItem(idx int, itemID int64) error {
	line, err := b.line(idx)
	if err != nil {
		return err
	}
	line.ItemID = itemID
	line.state = LineItemSelected
	line.SelectedBatch = nil
	line.BatchOptions = nil
	line.BatchNumber = ""
	line.SuggestedNumber = ""
	line.CostPrice = decimal.Zero
	line.ExpiresAt = nil
	return nil
}

// SetQuantity records the typed absolute quantity.
func (b *Builder) SetQuantity(idx, qty int) error {
	line, err := b.line(idx)
	if err != nil {
		return err
	}
	line.Quantity = qty
	b.markConfigured(line)
	return nil
}

// SelectBatch records the human-chosen batch for an outgoing line.
func (b *Builder) SelectBatch(idx int, chosen batch.Batch) error {
	line, err := b.line(idx)
	if err != nil {
		return err
	}
	line.SelectedBatch = &chosen
	b.markConfigured(line)
	return nil
}

// SetIncomingDetails records the incoming payload for a line.
func (b *Builder) SetIncomingDetails(idx int, number string, costPrice decimal.Decimal, expiresAt *time.Time) error {
	line, err := b.line(idx)
	if err != nil {
		return err
	}
	line.BatchNumber = number
	line.CostPrice = costPrice
	line.ExpiresAt = expiresAt
	b.markConfigured(line)
	return nil
}

// ApplyBatchOptions delivers an async batch fetch. The response was tagged
// with the line's item id at dispatch; if the user has since changed the
// line's item the response is stale and dropped. Reports whether applied.
func (b *Builder) ApplyBatchOptions(idx int, itemID int64, options []batch.Batch) bool {
	line, err := b.line(idx)
	if err != nil || line.ItemID != itemID {
		return false
	}
	line.BatchOptions = options
	return true
}

// ApplySuggestedNumber delivers an async next-batch-number lookup with the
// same staleness discipline as ApplyBatchOptions.
func (b *Builder) ApplySuggestedNumber(idx int, itemID int64, number string) bool {
	line, err := b.line(idx)
	if err != nil || line.ItemID != itemID {
		return false
	}
	line.SuggestedNumber = number
	if line.BatchNumber == "" {
		line.BatchNumber = number
	}
	return true
}

func (b *Builder) markConfigured(line *BuilderLine) {
	if line.ItemID != 0 {
		line.state = LineConfigured
	}
}

func (b *Builder) line(idx int) (*BuilderLine, error) {
	if idx < 0 || idx >= len(b.lines) {
		return nil, fmt.Errorf("txn: line %d out of range", idx)
	}
	return b.lines[idx], nil
}

// Validate applies every per-line and transaction-level rule and returns the
// full list of violations so the form can surface all of them at once.
func (b *Builder) Validate(ctx context.Context, checker NumberChecker) []Violation {
	var violations []Violation
	add := func(line int, field, message string) {
		violations = append(violations, Violation{Line: line, Field: field, Message: message})
	}

	if len(b.lines) > MaxLines {
		add(-1, "lines", fmt.Sprintf("at most %d lines per transaction", MaxLines))
	}

	switch b.txType {
	case TypeIncoming:
		if b.brandID == 0 {
			add(-1, "brand_id", "a brand is required for incoming transactions")
		}
	case TypeOutgoing:
		if b.customerName == "" {
			add(-1, "customer_name", "a customer name is required for outgoing transactions")
		}
	}

	filled := 0
	seenItems := map[int64]int{}
	numbersPerItem := map[int64]map[string]int{}

	for i, line := range b.lines {
		if line.ItemID == 0 {
			continue
		}
		if line.Quantity != 0 {
			filled++
		}

		if prev, dup := seenItems[line.ItemID]; dup {
			add(i, "item_id", fmt.Sprintf("item already used on line %d", prev+1))
		} else {
			seenItems[line.ItemID] = i
		}

		if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
			add(i, "quantity", fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity))
		}

		switch b.txType {
		case TypeOutgoing:
			if line.SelectedBatch == nil {
				add(i, "batch_id", "a batch must be selected")
			} else if err := batch.ValidateConsumption(*line.SelectedBatch, line.Quantity); err != nil {
				if line.Quantity >= 1 {
					add(i, "quantity", fmt.Sprintf("only %d available in batch %s",
						line.SelectedBatch.AvailableQty, line.SelectedBatch.Number))
				}
			}
		case TypeIncoming:
			b.validateIncomingLine(ctx, i, line, numbersPerItem, checker, add)
		}
	}

	if filled == 0 {
		add(-1, "lines", "at least one line with an item and quantity is required")
	}

	return violations
}

func (b *Builder) validateIncomingLine(ctx context.Context, i int, line *BuilderLine, numbersPerItem map[int64]map[string]int, checker NumberChecker, add func(int, string, string)) {
	if line.BatchNumber == "" {
		add(i, "batch_number", "a batch number is required")
	} else if err := batch.ValidateNumberFormat(line.BatchNumber); err != nil {
		add(i, "batch_number", "batch number must match B-NNN")
	} else {
		// Uniqueness is scoped per item: the same number on a different
		// item's line is fine.
		if used, ok := numbersPerItem[line.ItemID]; ok {
			if prev, dup := used[line.BatchNumber]; dup {
				add(i, "batch_number", fmt.Sprintf("batch number already used on line %d", prev+1))
			}
		} else {
			numbersPerItem[line.ItemID] = map[string]int{}
		}
		numbersPerItem[line.ItemID][line.BatchNumber] = i

		if checker != nil {
			exists, err := checker.NumberExists(ctx, line.ItemID, line.BatchNumber)
			if err == nil && exists {
				add(i, "batch_number", "batch number already exists for this item")
			}
		}
	}

	if !line.CostPrice.IsPositive() {
		add(i, "cost_price", "cost price must be greater than zero")
	}
}

// Build validates and converts the form into a transaction payload with
// signed quantity changes. A non-empty violation list means no payload.
func (b *Builder) Build(ctx context.Context, checker NumberChecker) (Transaction, []Violation) {
	if violations := b.Validate(ctx, checker); len(violations) > 0 {
		return Transaction{}, violations
	}

	tx := Transaction{
		Type:         b.txType,
		DueDate:      b.dueDate,
		BrandID:      b.brandID,
		CustomerName: b.customerName,
		Notes:        b.notes,
	}
	for _, line := range b.lines {
		if line.ItemID == 0 {
			continue
		}
		out := Line{ItemID: line.ItemID}
		if b.txType == TypeOutgoing {
			out.QuantityChange = -line.Quantity
			out.BatchID = line.SelectedBatch.ID
		} else {
			out.QuantityChange = line.Quantity
			out.BatchNumber = line.BatchNumber
			cost := line.CostPrice
			out.CostPrice = &cost
			out.ExpiresAt = line.ExpiresAt
		}
		tx.Lines = append(tx.Lines, out)
	}
	return tx, nil
}
