package purchasing

import (
	"fmt"

	"github.com/opsdash/purchasing/internal/domain/shared"
)

// Status is the lifecycle state of a purchase order
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusPartial   Status = "partial"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// AllStatuses returns every status in lifecycle order
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusSent, StatusConfirmed, StatusPartial, StatusReceived, StatusCancelled}
}

// ParseStatus converts a string to a Status
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown purchase order status %q", s))
	}
	return st, nil
}

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusConfirmed, StatusPartial, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// AllowsItemChanges reports whether line items may be added, edited or removed
func (s Status) AllowsItemChanges() bool {
	return s == StatusDraft
}

// Trigger is an operation that moves an order between statuses
type Trigger string

const (
	TriggerSend    Trigger = "send"
	TriggerConfirm Trigger = "confirm"
	TriggerReceive Trigger = "receive"
	TriggerCancel  Trigger = "cancel"
)

var triggerOrder = []Trigger{TriggerSend, TriggerConfirm, TriggerReceive, TriggerCancel}

type transitionKey struct {
	from    Status
	trigger Trigger
}

// transitions is the complete lifecycle table. A (from, trigger) pair that is
// absent is not a valid transition. Receive has two possible targets; the
// reconciliation result picks one.
var transitions = map[transitionKey][]Status{
	{StatusDraft, TriggerSend}:        {StatusSent},
	{StatusSent, TriggerConfirm}:      {StatusConfirmed},
	{StatusConfirmed, TriggerReceive}: {StatusPartial, StatusReceived},
	{StatusPartial, TriggerReceive}:   {StatusPartial, StatusReceived},
	{StatusDraft, TriggerCancel}:      {StatusCancelled},
	{StatusSent, TriggerCancel}:       {StatusCancelled},
	{StatusConfirmed, TriggerCancel}:  {StatusCancelled},
	{StatusPartial, TriggerCancel}:    {StatusCancelled},
}

// Targets returns the statuses reachable from `from` by `trigger`
func Targets(from Status, trigger Trigger) ([]Status, bool) {
	targets, ok := transitions[transitionKey{from, trigger}]
	return targets, ok
}

// CanFire reports whether trigger is valid in status from
func CanFire(from Status, trigger Trigger) bool {
	_, ok := transitions[transitionKey{from, trigger}]
	return ok
}

// Transition validates moving from `from` to `to` via trigger and returns `to`.
// It never mutates anything; callers commit the result.
func Transition(from Status, trigger Trigger, to Status) (Status, error) {
	targets, ok := transitions[transitionKey{from, trigger}]
	if !ok {
		return from, invalidTransition(from, trigger)
	}
	for _, t := range targets {
		if t == to {
			return to, nil
		}
	}
	return from, shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("cannot %s a %s purchase order into %s", trigger, from, to))
}

// AvailableTriggers lists the triggers valid from status s
func AvailableTriggers(s Status) []Trigger {
	out := make([]Trigger, 0, len(triggerOrder))
	for _, t := range triggerOrder {
		if CanFire(s, t) {
			out = append(out, t)
		}
	}
	return out
}

func invalidTransition(from Status, trigger Trigger) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("cannot %s a %s purchase order", trigger, from))
}
