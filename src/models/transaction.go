package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is a single CSV record keyed by its normalized header name.
type RawRow map[string]string

// Transaction is the canonical unit loaded into the warehouse.
// The parser fills the source fields, the identity resolver sets TransactionID
// and the metric transformer fills the derived money fields.
type Transaction struct {
	// --- Fields populated by the parser ---
	TransactionKey string              `json:"transaction_key,omitempty"` // Business key carried by the source (invoice, receipt no.), if any
	Timestamp      time.Time           `json:"timestamp"`                 // Always UTC
	ProductID      string              `json:"product_id"`
	Quantity       int64               `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	UnitCost       decimal.NullDecimal `json:"unit_cost"`
	Description    string              `json:"description,omitempty"`
	Category       string              `json:"category,omitempty"`
	Country        string              `json:"country,omitempty"`
	CustomerID     string              `json:"customer_id,omitempty"`
	SourceFile     string              `json:"source_file"` // Provenance only, never part of the identity
	SourceLine     int                 `json:"-"`

	// --- Derived fields ---
	TransactionID string              `json:"transaction_id"`
	Revenue       decimal.Decimal     `json:"revenue"`
	Profit        decimal.NullDecimal `json:"profit"`      // Null when unit cost is unknown, never zero
	UnitMargin    decimal.NullDecimal `json:"unit_margin"` // unit_price - unit_cost
	Margin        decimal.NullDecimal `json:"margin"`      // profit / revenue

	// --- Set by the loader ---
	RunID    string    `json:"run_id,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// SaleDate is the UTC calendar day of the transaction (YYYY-MM-DD).
// It is stored alongside the timestamp so reports can group by day on any SQL dialect.
func (t Transaction) SaleDate() string {
	return t.Timestamp.UTC().Format("2006-01-02")
}

// HasCost reports whether the source row carried a unit cost.
func (t Transaction) HasCost() bool {
	return t.UnitCost.Valid
}
