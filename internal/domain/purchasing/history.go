package purchasing

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction labels an audit history entry
type HistoryAction string

const (
	ActionCreated         HistoryAction = "created"
	ActionItemAdded       HistoryAction = "item added"
	ActionItemUpdated     HistoryAction = "item updated"
	ActionItemRemoved     HistoryAction = "item removed"
	ActionSent            HistoryAction = "sent"
	ActionConfirmed       HistoryAction = "confirmed"
	ActionPartialReceipt  HistoryAction = "partial receipt"
	ActionCompleteReceipt HistoryAction = "complete receipt"
	ActionCancelled       HistoryAction = "cancelled"
)

// HistoryEvent is one immutable audit entry
type HistoryEvent struct {
	ID        uuid.UUID
	Sequence  int
	Action    HistoryAction
	Actor     string
	Timestamp time.Time
	Details   string
}

// History is the append-only audit log of an order
type History struct {
	entries []HistoryEvent
}

// NewHistory restores a history from stored entries, which must already be
// in sequence order
func NewHistory(entries ...HistoryEvent) History {
	h := History{entries: make([]HistoryEvent, len(entries))}
	copy(h.entries, entries)
	return h
}

// Len returns the number of entries
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of all entries, oldest first
func (h *History) Entries() []HistoryEvent {
	out := make([]HistoryEvent, len(h.entries))
	copy(out, h.entries)
	return out
}

// Since returns entries with a sequence number greater than seq
func (h *History) Since(seq int) []HistoryEvent {
	out := make([]HistoryEvent, 0)
	for _, e := range h.entries {
		if e.Sequence > seq {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the newest entry
func (h *History) Last() (HistoryEvent, bool) {
	if len(h.entries) == 0 {
		return HistoryEvent{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// append records a new entry. A timestamp earlier than the previous entry is
// raised to it so the log stays non-decreasing.
func (h *History) append(action HistoryAction, actor, details string, at time.Time) HistoryEvent {
	seq := 1
	if last, ok := h.Last(); ok {
		if at.Before(last.Timestamp) {
			at = last.Timestamp
		}
		seq = last.Sequence + 1
	}
	e := HistoryEvent{
		ID:        uuid.New(),
		Sequence:  seq,
		Action:    action,
		Actor:     actor,
		Timestamp: at,
		Details:   details,
	}
	h.entries = append(h.entries, e)
	return e
}
