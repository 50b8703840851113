package entity

import (
	"encoding/json"
	"time"

	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/money"
)

// Sale is the unit of financial record: a completed sale, an open order, a
// void, or a refund-bearing record. Ref is client-generated, immutable, and
// doubles as the server-side idempotency key; ID is server-assigned and
// absent until the first successful upload.
//
// Monetary fields are held in cents and converted to decimals at the JSON
// boundary, both toward the server protocol and the local store.
type Sale struct {
	Ref            string           `json:"ref"`
	ID             *int64           `json:"id,omitempty"`
	Items          []LineItem       `json:"items"`
	Payments       []Payment        `json:"payments"`
	Subtotal       int64            `json:"-"`
	Tax            int64            `json:"-"`
	TaxData        map[string]int64 `json:"-"`
	Discount       float64          `json:"discount"`
	DiscountAmount int64            `json:"-"`
	Rounding       int64            `json:"-"`
	Total          int64            `json:"-"`
	Balance        int64            `json:"-"`
	NumItems       int              `json:"numitems"`
	ProcessedAt    time.Time        `json:"processedAt"`
	DeviceID       int64            `json:"deviceId"`
	LocationID     int64            `json:"locationId"`
	UserID         int64            `json:"userId"`
	CustomerID     *int64           `json:"customerId,omitempty"`
	CustomerEmail  string           `json:"customerEmail,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	IsOrder        bool             `json:"isOrder,omitempty"`
	OrderData      map[int64]*Order `json:"orderData,omitempty"`
	VoidData       *VoidRecord      `json:"voidData,omitempty"`
	RefundData     []RefundRecord   `json:"refundData,omitempty"`
}

// Status derives the lifecycle stage from the record's data. The progression
// Order -> Completed -> Voided | Refunded never reverses.
func (s *Sale) Status() enum.SaleStatus {
	switch {
	case s.VoidData != nil:
		return enum.SaleStatusVoided
	case len(s.RefundData) > 0:
		return enum.SaleStatusRefunded
	case s.IsOrder:
		return enum.SaleStatusOrder
	default:
		return enum.SaleStatusCompleted
	}
}

// Balanced reports whether the payments cover the rounded total exactly.
func (s *Sale) Balanced() bool {
	return s.Balance == 0
}

// Synced reports whether the sale has been accepted by the server.
func (s *Sale) Synced() bool {
	return s.ID != nil
}

// saleMoney carries the decimal renditions of the sale's cent fields.
type saleMoney struct {
	Subtotal       float64            `json:"subtotal"`
	Tax            float64            `json:"tax"`
	TaxData        map[string]float64 `json:"taxdata,omitempty"`
	DiscountAmount float64            `json:"discountAmount"`
	Rounding       float64            `json:"rounding"`
	Total          float64            `json:"total"`
	Balance        float64            `json:"balance"`
}

// MarshalJSON converts cent fields to two-decimal amounts.
func (s Sale) MarshalJSON() ([]byte, error) {
	type Alias Sale
	return json.Marshal(&struct {
		Alias
		saleMoney
	}{
		Alias: Alias(s),
		saleMoney: saleMoney{
			Subtotal:       money.ToFloat(s.Subtotal),
			Tax:            money.ToFloat(s.Tax),
			TaxData:        centsMapToFloat(s.TaxData),
			DiscountAmount: money.ToFloat(s.DiscountAmount),
			Rounding:       money.ToFloat(s.Rounding),
			Total:          money.ToFloat(s.Total),
			Balance:        money.ToFloat(s.Balance),
		},
	})
}

// UnmarshalJSON converts decimal amounts back to cents.
func (s *Sale) UnmarshalJSON(b []byte) error {
	type Alias Sale
	aux := &struct {
		*Alias
		saleMoney
	}{Alias: (*Alias)(s)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	s.Subtotal = money.FromFloat(aux.saleMoney.Subtotal)
	s.Tax = money.FromFloat(aux.saleMoney.Tax)
	s.TaxData = floatMapToCents(aux.saleMoney.TaxData)
	s.DiscountAmount = money.FromFloat(aux.saleMoney.DiscountAmount)
	s.Rounding = money.FromFloat(aux.saleMoney.Rounding)
	s.Total = money.FromFloat(aux.saleMoney.Total)
	s.Balance = money.FromFloat(aux.saleMoney.Balance)
	return nil
}

// VoidRecord captures who voided a sale, where and why.
type VoidRecord struct {
	ProcessedAt time.Time `json:"processedAt"`
	UserID      int64     `json:"userId"`
	DeviceID    int64     `json:"deviceId"`
	Reason      string    `json:"reason,omitempty"`
}

// RefundRecord captures one refund issued against a sale. A sale may carry
// several, one per refund transaction.
type RefundRecord struct {
	ProcessedAt time.Time          `json:"processedAt"`
	UserID      int64              `json:"userId"`
	DeviceID    int64              `json:"deviceId"`
	Method      enum.PaymentMethod `json:"method"`
	Amount      int64              `json:"-"`
	ItemRefs    []string           `json:"itemRefs,omitempty"`
}

// MarshalJSON converts the cent amount to a decimal.
func (r RefundRecord) MarshalJSON() ([]byte, error) {
	type Alias RefundRecord
	return json.Marshal(&struct {
		Alias
		Amount float64 `json:"amount"`
	}{Alias: Alias(r), Amount: money.ToFloat(r.Amount)})
}

// UnmarshalJSON converts the decimal amount back to cents.
func (r *RefundRecord) UnmarshalJSON(b []byte) error {
	type Alias RefundRecord
	aux := &struct {
		*Alias
		Amount float64 `json:"amount"`
	}{Alias: (*Alias)(r)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	r.Amount = money.FromFloat(aux.Amount)
	return nil
}

func centsMapToFloat(m map[string]int64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = money.ToFloat(v)
	}
	return out
}

func floatMapToCents(m map[string]float64) map[string]int64 {
	if m == nil {
		return nil
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = money.FromFloat(v)
	}
	return out
}
