package entity

import (
	"encoding/json"
	"strconv"

	"github.com/opentill/terminal/pkg/money"
)

// Item is a catalog entry cached from the server, keyed by its server id.
type Item struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code,omitempty"`
	Price     int64      `json:"-"`
	Cost      int64      `json:"-"`
	TaxRuleID string     `json:"taxRuleId,omitempty"`
	Type      string     `json:"type,omitempty"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
}

type itemMoney struct {
	Price float64 `json:"price"`
	Cost  float64 `json:"cost"`
}

// MarshalJSON converts cent fields to two-decimal amounts.
func (i Item) MarshalJSON() ([]byte, error) {
	type Alias Item
	return json.Marshal(&struct {
		Alias
		itemMoney
	}{
		Alias:     Alias(i),
		itemMoney: itemMoney{Price: money.ToFloat(i.Price), Cost: money.ToFloat(i.Cost)},
	})
}

// UnmarshalJSON converts decimal amounts back to cents.
func (i *Item) UnmarshalJSON(b []byte) error {
	type Alias Item
	aux := &struct {
		*Alias
		itemMoney
	}{Alias: (*Alias)(i)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	i.Price = money.FromFloat(aux.itemMoney.Price)
	i.Cost = money.FromFloat(aux.itemMoney.Cost)
	return nil
}

// Key returns the record store key for the item.
func (i *Item) Key() string {
	return strconv.FormatInt(i.ID, 10)
}

// Customer is a customer record cached from the server.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Key returns the record store key for the customer.
func (c *Customer) Key() string {
	return strconv.FormatInt(c.ID, 10)
}

// TaxRule describes how tax applies to a line. Rate is fractional (0.15 for
// 15%). An inclusive rule's tax is already embedded in the unit price; an
// exclusive rule's tax is added on top.
type TaxRule struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Rate      float64 `json:"rate"`
	Inclusive bool    `json:"inclusive"`
}
