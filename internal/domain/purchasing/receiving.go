package purchasing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
)

// ReceiptLine is the quantity received against one order line
type ReceiptLine struct {
	ItemID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	Quantity    int
}

// Receipt is the outcome of a successful receive call
type Receipt struct {
	Lines    []ReceiptLine
	Previous Status
	Status   Status
}

// IsEmpty reports whether nothing was received
func (r *Receipt) IsEmpty() bool {
	return len(r.Lines) == 0
}

// IsComplete reports whether the receipt finished the order
func (r *Receipt) IsComplete() bool {
	return r.Status == StatusReceived
}

// Units sums the received quantities
func (r *Receipt) Units() int {
	n := 0
	for _, l := range r.Lines {
		n += l.Quantity
	}
	return n
}

// Details renders the history text, e.g. "Widget: 6 units, Bolt: 4 units"
func (r *Receipt) Details() string {
	parts := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		parts[i] = fmt.Sprintf("%s: %d units", l.ProductName, l.Quantity)
	}
	return strings.Join(parts, ", ")
}

// planReceipt validates every requested quantity against the ledger without
// touching it. Zero quantities are dropped. Lines come back in ledger order.
func planReceipt(l *Ledger, quantities map[uuid.UUID]int) ([]ReceiptLine, error) {
	unknown := make([]string, 0)
	for id := range quantities {
		if _, ok := l.Find(id); !ok {
			unknown = append(unknown, id.String())
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, shared.NewDomainError(shared.CodeItemNotFound,
			fmt.Sprintf("items not found on purchase order: %s", strings.Join(unknown, ", ")))
	}

	lines := make([]ReceiptLine, 0, len(quantities))
	for _, it := range l.items {
		qty, ok := quantities[it.ID]
		if !ok {
			continue
		}
		if qty < 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
				fmt.Sprintf("received quantity for %s cannot be negative", it.ProductName))
		}
		if qty > it.PendingQuantity() {
			return nil, shared.NewDomainError(shared.CodeReceiveQuantityExceeded,
				fmt.Sprintf("cannot receive %d units of %s: only %d pending", qty, it.ProductName, it.PendingQuantity()))
		}
		if qty == 0 {
			continue
		}
		lines = append(lines, ReceiptLine{
			ItemID:      it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Quantity:    qty,
		})
	}
	return lines, nil
}

// reconcile derives the status implied by the ledger's received quantities
func reconcile(l *Ledger, current Status) Status {
	if l.Len() == 0 {
		return current
	}
	all, some := true, false
	for _, it := range l.items {
		if !it.IsFullyReceived() {
			all = false
		}
		if it.ReceivedQuantity > 0 {
			some = true
		}
	}
	switch {
	case all:
		return StatusReceived
	case some:
		return StatusPartial
	default:
		return current
	}
}

// applyReceipt adds the planned quantities to the ledger
func applyReceipt(l *Ledger, lines []ReceiptLine) {
	for _, line := range lines {
		if it, ok := l.Find(line.ItemID); ok {
			it.ReceivedQuantity += line.Quantity
		}
	}
}
