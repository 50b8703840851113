package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentill/terminal/internal/domain/enum"
)

func TestSale_JSONMoneyConversion(t *testing.T) {
	sale := Sale{
		Ref: "r-1",
		Items: []LineItem{{
			Ref: "l-1", Qty: 2, Name: "Coffee",
			Unit: 350, Price: 805, Tax: 105,
			TaxValues: map[string]int64{"1": 105},
		}},
		Payments:    []Payment{{Method: enum.PaymentCash, Amount: 805, Tender: 1000, Change: 195}},
		Subtotal:    700,
		Tax:         105,
		TaxData:     map[string]int64{"1": 105},
		Total:       805,
		NumItems:    2,
		ProcessedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	b, err := json.Marshal(sale)
	require.NoError(t, err)

	// The wire format carries decimals, not cents.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, 8.05, raw["total"])
	assert.Equal(t, 7.00, raw["subtotal"])

	var back Sale
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, sale.Total, back.Total)
	assert.Equal(t, sale.Items[0].Unit, back.Items[0].Unit)
	assert.Equal(t, sale.Items[0].TaxValues, back.Items[0].TaxValues)
	assert.Equal(t, sale.Payments[0].Change, back.Payments[0].Change)
	assert.Equal(t, sale.TaxData, back.TaxData)
}

func TestSale_Status(t *testing.T) {
	sale := &Sale{Ref: "r-1"}
	assert.Equal(t, enum.SaleStatusCompleted, sale.Status())

	sale.IsOrder = true
	assert.Equal(t, enum.SaleStatusOrder, sale.Status())

	sale.RefundData = []RefundRecord{{Amount: 100}}
	assert.Equal(t, enum.SaleStatusRefunded, sale.Status())

	// Void wins over everything else.
	sale.VoidData = &VoidRecord{ProcessedAt: time.Now()}
	assert.Equal(t, enum.SaleStatusVoided, sale.Status())
}

func TestOrder_SameItemSet(t *testing.T) {
	a := &Order{ID: 1, Items: map[string]int{"x": 0, "y": 1}}
	b := &Order{ID: 1, Items: map[string]int{"y": 4, "x": 2}}
	c := &Order{ID: 1, Items: map[string]int{"x": 0, "w": 1}}

	assert.True(t, a.SameItemSet(b), "index positions must not matter")
	assert.False(t, a.SameItemSet(c))
	assert.False(t, a.SameItemSet(nil))
}
