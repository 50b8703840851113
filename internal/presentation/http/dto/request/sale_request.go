package request

import (
	"github.com/opentill/terminal/internal/application/service"
	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/money"
)

// ModifierRequest is one line item modifier as the register UI sends it.
type ModifierRequest struct {
	Name  string  `json:"name" binding:"required"`
	Value float64 `json:"value"`
}

// SaleLineRequest is one line of a sale. Amounts arrive as decimals and are
// converted to cents at this boundary.
type SaleLineRequest struct {
	Ref       string            `json:"ref"`
	ItemID    int64             `json:"itemId"`
	Qty       int               `json:"qty" binding:"required"`
	Name      string            `json:"name" binding:"required"`
	Unit      float64           `json:"unit"`
	Cost      float64           `json:"cost"`
	TaxRuleID string            `json:"taxRuleId"`
	Modifiers []ModifierRequest `json:"modifiers"`
}

// SalePaymentRequest is one tender of a sale.
type SalePaymentRequest struct {
	Method    string  `json:"method" binding:"required"`
	Amount    float64 `json:"amount"`
	Tender    float64 `json:"tender"`
	IsCashout bool    `json:"isCashout"`
}

// SaleRequest is a sale to compute or finalize.
type SaleRequest struct {
	Ref             string               `json:"ref"`
	Lines           []SaleLineRequest    `json:"lines" binding:"required,min=1"`
	DiscountPercent float64              `json:"discountPercent"`
	Payments        []SalePaymentRequest `json:"payments"`
	CustomerID      *int64               `json:"customerId"`
	CustomerEmail   string               `json:"customerEmail"`
	Notes           string               `json:"notes"`
	IsOrder         bool                 `json:"isOrder"`
}

// ToInput converts the request into the transaction service's cent-based
// input.
func (r *SaleRequest) ToInput() *service.ComputeInput {
	in := &service.ComputeInput{
		Ref:             r.Ref,
		DiscountPercent: r.DiscountPercent,
		CustomerID:      r.CustomerID,
		CustomerEmail:   r.CustomerEmail,
		Notes:           r.Notes,
		IsOrder:         r.IsOrder,
	}

	for _, line := range r.Lines {
		modifiers := make([]entity.Modifier, 0, len(line.Modifiers))
		for _, m := range line.Modifiers {
			modifiers = append(modifiers, entity.Modifier{Name: m.Name, Value: money.FromFloat(m.Value)})
		}
		in.Lines = append(in.Lines, service.ComputeLine{
			Ref:          line.Ref,
			StoredItemID: line.ItemID,
			Qty:          line.Qty,
			Name:         line.Name,
			Unit:         money.FromFloat(line.Unit),
			Cost:         money.FromFloat(line.Cost),
			TaxRuleID:    line.TaxRuleID,
			Modifiers:    modifiers,
		})
	}

	for _, p := range r.Payments {
		in.Payments = append(in.Payments, service.PaymentInput{
			Method:    enum.PaymentMethod(p.Method),
			Amount:    money.FromFloat(p.Amount),
			Tender:    money.FromFloat(p.Tender),
			IsCashout: p.IsCashout,
		})
	}

	return in
}

// VoidRequest voids a stored sale.
type VoidRequest struct {
	Reason string `json:"reason"`
}

// NotesRequest attaches notes to a stored sale.
type NotesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// SearchRequest filters the local sales listing.
type SearchRequest struct {
	Ref        string `form:"ref"`
	CustomerID *int64 `form:"customer_id"`
	Status     string `form:"status"`
}
