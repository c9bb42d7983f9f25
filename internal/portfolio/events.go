package portfolio

// EventKind names a ledger change.
type EventKind string

const (
	EventLotAdded     EventKind = "lot_added"
	EventLotRemoved   EventKind = "lot_removed"
	EventQuoteApplied EventKind = "quote_applied"
	EventQuoteFailed  EventKind = "quote_failed"
)

// Event is delivered to subscribers after the change is visible in the ledger.
type Event struct {
	Kind   EventKind
	Symbol string
	// Err is set for EventQuoteFailed.
	Err error
}

// SetChanged reports whether the tracked symbol set changed.
func (e Event) SetChanged() bool {
	return e.Kind == EventLotAdded || e.Kind == EventLotRemoved
}

// Listener receives ledger events. Listeners run on the goroutine that made
// the change and must not block for long.
type Listener func(Event)
