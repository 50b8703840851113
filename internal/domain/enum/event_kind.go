package enum

// EventKind identifies a realtime feed message by its `a` discriminator.
type EventKind string

const (
	EventItem       EventKind = "item"
	EventSale       EventKind = "sale"
	EventCustomer   EventKind = "customer"
	EventConfig     EventKind = "config"
	EventRegReq     EventKind = "regreq"
	EventMsg        EventKind = "msg"
	EventReset      EventKind = "reset"
	EventKitchenAck EventKind = "kitchenack"
	EventError      EventKind = "error"
)

// ParseEventKind validates a raw discriminator. Unknown kinds are returned
// as-is with ok=false so the dispatcher can log and skip them.
func ParseEventKind(a string) (EventKind, bool) {
	switch k := EventKind(a); k {
	case EventItem, EventSale, EventCustomer, EventConfig, EventRegReq,
		EventMsg, EventReset, EventKitchenAck, EventError:
		return k, true
	default:
		return EventKind(a), false
	}
}
