package purchasing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SystemActor is recorded when a caller does not identify itself
const SystemActor = "system"

// SupplierSnapshot is the supplier contact data captured at creation
type SupplierSnapshot struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone"`
	Address string    `json:"address"`
}

// CreateParams holds the header fields of a new purchase order
type CreateParams struct {
	Supplier        SupplierSnapshot
	ExpectedDate    *time.Time
	PaymentTerms    string
	ShippingAddress string
	Notes           string
}

// PurchaseOrder is the aggregate root binding the item ledger, the status
// state machine and the audit history. Every successful mutation appends
// exactly one history entry; a failed one changes nothing.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	Supplier        SupplierSnapshot
	Status          Status
	ExpectedDate    *time.Time
	PaymentTerms    string
	ShippingAddress string
	Notes           string
	CancelReason    string
	SentAt          *time.Time
	ConfirmedAt     *time.Time
	ReceivedAt      *time.Time
	CancelledAt     *time.Time

	ledger  Ledger
	history History
	clock   func() time.Time
}

// Option configures a PurchaseOrder
type Option func(*PurchaseOrder)

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(p *PurchaseOrder) {
		p.clock = clock
	}
}

// NewPurchaseOrder creates a draft order for a supplier
func NewPurchaseOrder(params CreateParams, actor string, opts ...Option) (*PurchaseOrder, error) {
	if params.Supplier.ID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "supplier is required")
	}

	p := &PurchaseOrder{
		Supplier:        params.Supplier,
		Status:          StatusDraft,
		ExpectedDate:    params.ExpectedDate,
		PaymentTerms:    strings.TrimSpace(params.PaymentTerms),
		ShippingAddress: strings.TrimSpace(params.ShippingAddress),
		Notes:           params.Notes,
	}
	for _, opt := range opts {
		opt(p)
	}

	now := p.now()
	p.BaseAggregateRoot = shared.NewBaseAggregateRoot(now)
	p.OrderNumber = newOrderNumber(now)

	p.record(ActionCreated, actor, fmt.Sprintf("order %s created for %s", p.OrderNumber, p.supplierLabel()), now,
		&PurchaseOrderCreatedEvent{
			BaseDomainEvent: p.base(EventTypePurchaseOrderCreated, now),
			OrderNumber:     p.OrderNumber,
			SupplierID:      p.Supplier.ID,
		})
	return p, nil
}

// AddItem adds a line, merging quantities into an existing line for the same product
func (p *PurchaseOrder) AddItem(product ProductRef, quantity int, unitPrice, discountPercent decimal.Decimal, actor string) (OrderItem, error) {
	if err := p.requireItemChanges("add items to"); err != nil {
		return OrderItem{}, err
	}

	item, merged, err := p.ledger.add(product, quantity, unitPrice, discountPercent)
	if err != nil {
		return OrderItem{}, err
	}

	details := fmt.Sprintf("%s: %d units at %s", item.ProductName, quantity, item.UnitPrice.StringFixed(2))
	if merged {
		details = fmt.Sprintf("%s: +%d units, now %d at %s", item.ProductName, quantity, item.Quantity, item.UnitPrice.StringFixed(2))
	}
	p.record(ActionItemAdded, actor, details, p.now())
	return item, nil
}

// UpdateItem edits quantity and optionally price and discount of a line
func (p *PurchaseOrder) UpdateItem(itemID uuid.UUID, upd ItemUpdate, actor string) (OrderItem, error) {
	if err := p.requireItemChanges("edit items of"); err != nil {
		return OrderItem{}, err
	}

	before, after, err := p.ledger.update(itemID, upd)
	if err != nil {
		return OrderItem{}, err
	}

	p.record(ActionItemUpdated, actor, describeItemChange(before, after), p.now())
	return after, nil
}

// RemoveItem deletes a line
func (p *PurchaseOrder) RemoveItem(itemID uuid.UUID, actor string) error {
	if err := p.requireItemChanges("remove items from"); err != nil {
		return err
	}

	removed, err := p.ledger.remove(itemID)
	if err != nil {
		return err
	}

	p.record(ActionItemRemoved, actor, fmt.Sprintf("%s: %d units", removed.ProductName, removed.Quantity), p.now())
	return nil
}

// Validate checks that the order is complete enough to be sent
func (p *PurchaseOrder) Validate() error {
	var problems []string
	if p.Supplier.ID == uuid.Nil {
		problems = append(problems, "supplier is required")
	}
	if p.ExpectedDate == nil || p.ExpectedDate.IsZero() {
		problems = append(problems, "expected date is required")
	}
	if p.ledger.Len() == 0 {
		problems = append(problems, "at least one item is required")
	}
	if len(problems) > 0 {
		return shared.NewDomainError(shared.CodeValidationFailed,
			"purchase order is incomplete: "+strings.Join(problems, "; "))
	}
	return nil
}

// Send moves a valid draft to sent
func (p *PurchaseOrder) Send(actor string) error {
	next, err := Transition(p.Status, TriggerSend, StatusSent)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	now := p.now()
	p.Status = next
	p.SentAt = &now
	p.record(ActionSent, actor, "sent to "+p.supplierLabel(), now,
		&PurchaseOrderSentEvent{
			BaseDomainEvent: p.base(EventTypePurchaseOrderSent, now),
			OrderNumber:     p.OrderNumber,
			Supplier:        p.Supplier,
			ExpectedDate:    p.ExpectedDate,
			ItemCount:       p.ledger.Len(),
			TotalUnits:      p.ledger.TotalUnits(),
		})
	return nil
}

// Confirm records the supplier's confirmation of a sent order
func (p *PurchaseOrder) Confirm(actor string) error {
	next, err := Transition(p.Status, TriggerConfirm, StatusConfirmed)
	if err != nil {
		return err
	}

	now := p.now()
	p.Status = next
	p.ConfirmedAt = &now
	p.record(ActionConfirmed, actor, "confirmed by "+p.supplierLabel(), now,
		&PurchaseOrderConfirmedEvent{
			BaseDomainEvent: p.base(EventTypePurchaseOrderConfirmed, now),
			OrderNumber:     p.OrderNumber,
		})
	return nil
}

// Receive applies received quantities keyed by item id. Either every entry is
// applied or none is. A call that receives nothing leaves the order untouched.
func (p *PurchaseOrder) Receive(quantities map[uuid.UUID]int, actor string) (*Receipt, error) {
	if !CanFire(p.Status, TriggerReceive) {
		return nil, invalidTransition(p.Status, TriggerReceive)
	}

	lines, err := planReceipt(&p.ledger, quantities)
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{Lines: lines, Previous: p.Status, Status: p.Status}
	if receipt.IsEmpty() {
		return receipt, nil
	}

	preview := NewLedger(p.ledger.Items()...)
	applyReceipt(&preview, lines)
	next, err := Transition(p.Status, TriggerReceive, reconcile(&preview, p.Status))
	if err != nil {
		return nil, err
	}

	now := p.now()
	applyReceipt(&p.ledger, lines)
	p.Status = next
	receipt.Status = next

	events := []shared.DomainEvent{newGoodsReceivedEvent(p, receipt, now)}
	action := ActionPartialReceipt
	if receipt.IsComplete() {
		action = ActionCompleteReceipt
		p.ReceivedAt = &now
		events = append(events, &PurchaseOrderCompletedEvent{
			BaseDomainEvent: p.base(EventTypePurchaseOrderCompleted, now),
			OrderNumber:     p.OrderNumber,
			TotalUnits:      p.ledger.TotalUnits(),
		})
	}
	p.record(action, actor, receipt.Details(), now, events...)
	return receipt, nil
}

// Cancel moves a non-terminal order to cancelled
func (p *PurchaseOrder) Cancel(reason, actor string) error {
	next, err := Transition(p.Status, TriggerCancel, StatusCancelled)
	if err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	details := "no reason given"
	if reason != "" {
		details = "reason: " + reason
	}

	now := p.now()
	previous := p.Status
	p.Status = next
	p.CancelReason = reason
	p.CancelledAt = &now
	p.record(ActionCancelled, actor, details, now,
		&PurchaseOrderCancelledEvent{
			BaseDomainEvent: p.base(EventTypePurchaseOrderCancelled, now),
			OrderNumber:     p.OrderNumber,
			PreviousStatus:  previous,
			Reason:          reason,
		})
	return nil
}

// Items returns copies of the lines in display order
func (p *PurchaseOrder) Items() []OrderItem {
	return p.ledger.Items()
}

// Item returns a copy of one line
func (p *PurchaseOrder) Item(itemID uuid.UUID) (OrderItem, error) {
	it, ok := p.ledger.Find(itemID)
	if !ok {
		return OrderItem{}, itemNotFound(itemID)
	}
	return *it, nil
}

// History returns the audit log, oldest first
func (p *PurchaseOrder) History() []HistoryEvent {
	return p.history.Entries()
}

// HistorySince returns audit entries newer than sequence seq
func (p *PurchaseOrder) HistorySince(seq int) []HistoryEvent {
	return p.history.Since(seq)
}

// HistoryLen returns the number of audit entries
func (p *PurchaseOrder) HistoryLen() int {
	return p.history.Len()
}

// Totals computes the monetary totals at the given tax rate
func (p *PurchaseOrder) Totals(taxRate decimal.Decimal) Totals {
	return p.ledger.Totals(taxRate)
}

// TotalUnits sums ordered quantities
func (p *PurchaseOrder) TotalUnits() int {
	return p.ledger.TotalUnits()
}

// ReceivedUnits sums received quantities
func (p *PurchaseOrder) ReceivedUnits() int {
	return p.ledger.ReceivedUnits()
}

// CompletionPercent is receivedUnits/totalUnits as a percentage, rounded to two places
func (p *PurchaseOrder) CompletionPercent() decimal.Decimal {
	total := p.ledger.TotalUnits()
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(p.ledger.ReceivedUnits())).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// Summary is the computed view of an order
type Summary struct {
	Status            Status
	Totals            Totals
	TotalUnits        int
	ReceivedUnits     int
	CompletionPercent decimal.Decimal
	Triggers          []Trigger
}

// Summarize projects the order's derived figures under a tax policy
func (p *PurchaseOrder) Summarize(policy TaxPolicy) Summary {
	rate := DefaultTaxRate
	if policy != nil {
		rate = policy.TaxRate(p)
	}
	return Summary{
		Status:            p.Status,
		Totals:            p.ledger.Totals(rate),
		TotalUnits:        p.ledger.TotalUnits(),
		ReceivedUnits:     p.ledger.ReceivedUnits(),
		CompletionPercent: p.CompletionPercent(),
		Triggers:          AvailableTriggers(p.Status),
	}
}

func (p *PurchaseOrder) requireItemChanges(verb string) error {
	if p.Status.AllowsItemChanges() {
		return nil
	}
	return shared.NewDomainError(shared.CodeInvalidState,
		fmt.Sprintf("cannot %s a %s purchase order", verb, p.Status))
}

func (p *PurchaseOrder) record(action HistoryAction, actor, details string, now time.Time, events ...shared.DomainEvent) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = SystemActor
	}
	entry := p.history.append(action, actor, details, now)
	p.Touch(entry.Timestamp)
	for _, e := range events {
		p.AddDomainEvent(e)
	}
}

func (p *PurchaseOrder) now() time.Time {
	if p.clock != nil {
		return p.clock()
	}
	return time.Now()
}

func (p *PurchaseOrder) supplierLabel() string {
	if p.Supplier.Name != "" {
		return p.Supplier.Name
	}
	return p.Supplier.ID.String()
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), suffix)
}
