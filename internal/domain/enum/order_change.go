package enum

// OrderChangeKind classifies a kitchen order when two versions of the same
// sale are diffed.
type OrderChangeKind int

const (
	OrderChangeNew OrderChangeKind = iota + 1
	OrderChangeUpdated
	OrderChangeCancelled
)

// String returns the string representation of the change kind
func (k OrderChangeKind) String() string {
	switch k {
	case OrderChangeNew:
		return "new"
	case OrderChangeUpdated:
		return "updated"
	case OrderChangeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
