package entity

import (
	"encoding/json"

	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/money"
)

// Payment is one tender against a sale. For cash payments Tender is what the
// customer handed over and Change what was returned; for other methods both
// are zero. A cash-out payment carries a negative amount.
type Payment struct {
	Method    enum.PaymentMethod `json:"method"`
	Amount    int64              `json:"-"`
	Tender    int64              `json:"-"`
	Change    int64              `json:"-"`
	IsCashout bool               `json:"isCashout,omitempty"`
}

type paymentMoney struct {
	Amount float64 `json:"amount"`
	Tender float64 `json:"tender,omitempty"`
	Change float64 `json:"change,omitempty"`
}

// MarshalJSON converts cent fields to two-decimal amounts.
func (p Payment) MarshalJSON() ([]byte, error) {
	type Alias Payment
	return json.Marshal(&struct {
		Alias
		paymentMoney
	}{
		Alias: Alias(p),
		paymentMoney: paymentMoney{
			Amount: money.ToFloat(p.Amount),
			Tender: money.ToFloat(p.Tender),
			Change: money.ToFloat(p.Change),
		},
	})
}

// UnmarshalJSON converts decimal amounts back to cents.
func (p *Payment) UnmarshalJSON(b []byte) error {
	type Alias Payment
	aux := &struct {
		*Alias
		paymentMoney
	}{Alias: (*Alias)(p)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	p.Amount = money.FromFloat(aux.paymentMoney.Amount)
	p.Tender = money.FromFloat(aux.paymentMoney.Tender)
	p.Change = money.FromFloat(aux.paymentMoney.Change)
	return nil
}
