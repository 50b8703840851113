package enum

// SaleStatus represents the lifecycle stage of a sale. The progression is
// Order -> Completed -> Voided or Refunded and never reverses.
type SaleStatus int

const (
	SaleStatusOrder SaleStatus = iota
	SaleStatusCompleted
	SaleStatusVoided
	SaleStatusRefunded
)

// String returns the string representation of the status
func (s SaleStatus) String() string {
	switch s {
	case SaleStatusOrder:
		return "order"
	case SaleStatusCompleted:
		return "completed"
	case SaleStatusVoided:
		return "voided"
	case SaleStatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}
