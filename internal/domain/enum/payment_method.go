package enum

// PaymentMethod identifies how a payment was tendered.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentCheque  PaymentMethod = "cheque"
	PaymentAccount PaymentMethod = "account"
)

// IsCash reports whether the method participates in cash denomination
// rounding and tender/change handling.
func (m PaymentMethod) IsCash() bool {
	return m == PaymentCash
}
