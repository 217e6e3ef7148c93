package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/salesetl/src/models"
)

// marginPlaces is the precision of the profit/revenue ratio.
const marginPlaces = 4

// ApplyMetrics returns tx with revenue, profit, unit margin and margin set.
//
// Without a unit cost the profit, unit margin and margin stay null. They are
// unknown, not zero. Margin is also null when revenue is zero.
func ApplyMetrics(tx models.Transaction) models.Transaction {
	qty := decimal.NewFromInt(tx.Quantity)
	tx.Revenue = qty.Mul(tx.UnitPrice)
	tx.Profit = decimal.NullDecimal{}
	tx.UnitMargin = decimal.NullDecimal{}
	tx.Margin = decimal.NullDecimal{}

	if !tx.HasCost() {
		return tx
	}

	profit := tx.Revenue.Sub(qty.Mul(tx.UnitCost.Decimal))
	tx.Profit = decimal.NewNullDecimal(profit)
	tx.UnitMargin = decimal.NewNullDecimal(tx.UnitPrice.Sub(tx.UnitCost.Decimal))
	if !tx.Revenue.IsZero() {
		tx.Margin = decimal.NewNullDecimal(profit.DivRound(tx.Revenue, marginPlaces))
	}
	return tx
}
