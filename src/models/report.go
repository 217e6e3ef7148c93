package models

import "github.com/shopspring/decimal"

// SalesTotals is the headline block of the dashboard.
type SalesTotals struct {
	Revenue            decimal.Decimal `json:"revenue"`
	KnownProfit        decimal.Decimal `json:"known_profit"`         // Sum over rows whose profit is known
	UnknownProfitCount int64           `json:"unknown_profit_count"` // Rows loaded without a unit cost
	Transactions       int64           `json:"transactions"`
	Orders             int64           `json:"orders"` // Distinct business keys
	AverageMargin      *float64        `json:"average_margin"`
}

// DailySales is one point of the revenue/profit time series.
type DailySales struct {
	Date               string          `json:"date"`
	Revenue            decimal.Decimal `json:"revenue"`
	KnownProfit        decimal.Decimal `json:"known_profit"`
	UnknownProfitCount int64           `json:"unknown_profit_count"`
}

// ProductRank is one entry of the top products ranking.
type ProductRank struct {
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// GroupRevenue is revenue aggregated by an arbitrary dimension (country, category).
type GroupRevenue struct {
	Key     string          `json:"key"`
	Revenue decimal.Decimal `json:"revenue"`
}
