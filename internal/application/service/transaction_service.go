package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/apperror"
	"github.com/opentill/terminal/pkg/money"
	"github.com/opentill/terminal/pkg/utils"
)

// TransactionService computes the financial state of a sale: per-line tax,
// subtotal, discount, cash denomination rounding and multi-tender balance.
// ComputeSale is pure over its input plus the session's configured tax rules
// and rounding denomination; it performs no I/O.
type TransactionService struct {
	session *Session
	now     func() time.Time
}

// NewTransactionService creates a new transaction service
func NewTransactionService(session *Session) *TransactionService {
	return &TransactionService{session: session, now: time.Now}
}

// ComputeLine is one line of input to ComputeSale. Unit and Cost are cents
// per single unit; modifiers add to the unit price.
type ComputeLine struct {
	Ref          string
	StoredItemID int64
	Qty          int
	Name         string
	Unit         int64
	Cost         int64
	TaxRuleID    string
	Modifiers    []entity.Modifier
}

// PaymentInput is one tender of input to ComputeSale.
type PaymentInput struct {
	Method    enum.PaymentMethod
	Amount    int64
	Tender    int64
	IsCashout bool
}

// ComputeInput carries everything ComputeSale needs besides the session's
// tax rules and rounding denomination.
type ComputeInput struct {
	Ref             string
	Lines           []ComputeLine
	DiscountPercent float64
	Payments        []PaymentInput
	CustomerID      *int64
	CustomerEmail   string
	Notes           string
	IsOrder         bool
}

// TaxResult is the outcome of applying one tax rule to a line total.
type TaxResult struct {
	Inclusive bool
	Total     int64
	Values    map[string]int64
}

// ComputeSale produces a finalized Sale value from the input. Returns a
// validation error listing every invalid line or payment; callers must block
// finalization on any error.
func (s *TransactionService) ComputeSale(in *ComputeInput) (*entity.Sale, error) {
	cfg := s.session.Config()

	if fieldErrors := s.validate(in, cfg); len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}
	if in.IsOrder && !cfg.OrderTerminal {
		return nil, apperror.NewRequestError("terminal does not take kitchen orders", nil)
	}

	sale := &entity.Sale{
		Ref:           in.Ref,
		Discount:      in.DiscountPercent,
		TaxData:       map[string]int64{},
		ProcessedAt:   s.now(),
		DeviceID:      s.session.Device().DeviceID,
		LocationID:    s.session.Device().LocationID,
		UserID:        s.session.UserID(),
		CustomerID:    in.CustomerID,
		CustomerEmail: in.CustomerEmail,
		Notes:         in.Notes,
		IsOrder:       in.IsOrder,
	}
	if sale.Ref == "" {
		sale.Ref = utils.NewSaleRef()
	}

	var priceSum, taxSum int64
	for _, line := range in.Lines {
		item := entity.LineItem{
			Ref:          line.Ref,
			StoredItemID: line.StoredItemID,
			Qty:          line.Qty,
			Name:         line.Name,
			Unit:         line.Unit,
			Cost:         line.Cost,
			TaxRuleID:    line.TaxRuleID,
			Modifiers:    line.Modifiers,
		}

		lineTotal := int64(line.Qty) * (line.Unit + item.ModifierTotal())

		result := applyTaxRule(cfg, line.TaxRuleID, lineTotal)
		item.Tax = result.Total
		item.TaxValues = result.Values
		if result.Inclusive {
			item.Price = lineTotal
		} else {
			item.Price = lineTotal + result.Total
		}

		for ruleID, amount := range result.Values {
			sale.TaxData[ruleID] += amount
		}
		priceSum += item.Price
		taxSum += result.Total
		sale.NumItems += line.Qty
		sale.Items = append(sale.Items, item)
	}

	sale.Subtotal = priceSum - taxSum
	sale.Tax = taxSum
	sale.DiscountAmount = money.ApplyPercent(sale.Subtotal+sale.Tax, in.DiscountPercent)
	sale.Total = sale.Subtotal + sale.Tax - sale.DiscountAmount

	// Cash rounding applies only when every tender is cash.
	if denom := cfg.RoundingDenomination; denom > 0 && len(in.Payments) > 0 && allCash(in.Payments) {
		rounded, delta := money.RoundToDenomination(sale.Total, denom)
		sale.Total = rounded
		sale.Rounding = delta
	}

	var paid int64
	for _, p := range in.Payments {
		payment := entity.Payment{
			Method:    p.Method,
			Amount:    p.Amount,
			Tender:    p.Tender,
			IsCashout: p.IsCashout,
		}
		if p.Method.IsCash() && p.Tender > p.Amount {
			payment.Change = p.Tender - p.Amount
		}
		paid += p.Amount
		sale.Payments = append(sale.Payments, payment)
	}
	sale.Balance = paid - sale.Total

	return sale, nil
}

func (s *TransactionService) validate(in *ComputeInput, cfg *entity.TerminalConfig) []apperror.FieldError {
	var fieldErrors []apperror.FieldError

	for i, line := range in.Lines {
		if line.Qty <= 0 {
			fieldErrors = append(fieldErrors, apperror.FieldError{
				Field:   fmt.Sprintf("items[%d].qty", i),
				Message: "quantity must be positive",
			})
		}
		if strings.TrimSpace(line.Name) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{
				Field:   fmt.Sprintf("items[%d].name", i),
				Message: "name must not be blank",
			})
		}
		if line.Unit <= 0 && !cfg.AllowNegativePrice {
			fieldErrors = append(fieldErrors, apperror.FieldError{
				Field:   fmt.Sprintf("items[%d].unit", i),
				Message: "unit price must be positive",
			})
		}
	}

	for i, p := range in.Payments {
		if p.Amount < 0 && !p.IsCashout {
			fieldErrors = append(fieldErrors, apperror.FieldError{
				Field:   fmt.Sprintf("payments[%d].amount", i),
				Message: "negative amount requires a cash-out payment",
			})
		}
	}

	return fieldErrors
}

// applyTaxRule computes the tax for one line total. Exclusive rules add tax
// on top of the line total; inclusive rules carry it inside the unit price.
func applyTaxRule(cfg *entity.TerminalConfig, ruleID string, lineTotal int64) TaxResult {
	rule, ok := cfg.Rule(ruleID)
	if !ok || rule.Rate <= 0 {
		return TaxResult{Values: map[string]int64{}}
	}

	var tax int64
	if rule.Inclusive {
		tax = money.ExtractInclusiveTax(lineTotal, rule.Rate)
	} else {
		tax = money.ApplyRate(lineTotal, rule.Rate)
	}

	return TaxResult{
		Inclusive: rule.Inclusive,
		Total:     tax,
		Values:    map[string]int64{rule.ID: tax},
	}
}

func allCash(payments []PaymentInput) bool {
	for _, p := range payments {
		if !p.Method.IsCash() {
			return false
		}
	}
	return true
}
