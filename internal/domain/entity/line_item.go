package entity

import (
	"encoding/json"

	"github.com/opentill/terminal/pkg/money"
)

// LineItem is one line of a sale. Price is always the tax-applied total for
// Qty units; Unit is the single-unit price as entered (tax-inclusive when the
// line's tax rule is inclusive).
type LineItem struct {
	Ref          string           `json:"ref"`
	StoredItemID int64            `json:"storedItemId,omitempty"`
	Qty          int              `json:"qty"`
	Name         string           `json:"name"`
	Unit         int64            `json:"-"`
	TaxRuleID    string           `json:"taxRuleId,omitempty"`
	Cost         int64            `json:"-"`
	Price        int64            `json:"-"`
	Tax          int64            `json:"-"`
	TaxValues    map[string]int64 `json:"-"`
	Modifiers    []Modifier       `json:"modifiers,omitempty"`
}

type lineItemMoney struct {
	Unit      float64            `json:"unit"`
	Cost      float64            `json:"cost"`
	Price     float64            `json:"price"`
	Tax       float64            `json:"tax"`
	TaxValues map[string]float64 `json:"taxValues,omitempty"`
}

// MarshalJSON converts cent fields to two-decimal amounts.
func (l LineItem) MarshalJSON() ([]byte, error) {
	type Alias LineItem
	return json.Marshal(&struct {
		Alias
		lineItemMoney
	}{
		Alias: Alias(l),
		lineItemMoney: lineItemMoney{
			Unit:      money.ToFloat(l.Unit),
			Cost:      money.ToFloat(l.Cost),
			Price:     money.ToFloat(l.Price),
			Tax:       money.ToFloat(l.Tax),
			TaxValues: centsMapToFloat(l.TaxValues),
		},
	})
}

// UnmarshalJSON converts decimal amounts back to cents.
func (l *LineItem) UnmarshalJSON(b []byte) error {
	type Alias LineItem
	aux := &struct {
		*Alias
		lineItemMoney
	}{Alias: (*Alias)(l)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	l.Unit = money.FromFloat(aux.lineItemMoney.Unit)
	l.Cost = money.FromFloat(aux.lineItemMoney.Cost)
	l.Price = money.FromFloat(aux.lineItemMoney.Price)
	l.Tax = money.FromFloat(aux.lineItemMoney.Tax)
	l.TaxValues = floatMapToCents(aux.lineItemMoney.TaxValues)
	return nil
}

// Modifier is a named price adjustment on a line item (extras, options).
type Modifier struct {
	Name  string `json:"name"`
	Value int64  `json:"-"`
}

// MarshalJSON converts the cent value to a decimal.
func (m Modifier) MarshalJSON() ([]byte, error) {
	type Alias Modifier
	return json.Marshal(&struct {
		Alias
		Value float64 `json:"value"`
	}{Alias: Alias(m), Value: money.ToFloat(m.Value)})
}

// UnmarshalJSON converts the decimal value back to cents.
func (m *Modifier) UnmarshalJSON(b []byte) error {
	type Alias Modifier
	aux := &struct {
		*Alias
		Value float64 `json:"value"`
	}{Alias: (*Alias)(m)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	m.Value = money.FromFloat(aux.Value)
	return nil
}

// ModifierTotal sums the modifier values for one unit.
func (l *LineItem) ModifierTotal() int64 {
	var total int64
	for _, m := range l.Modifiers {
		total += m.Value
	}
	return total
}
