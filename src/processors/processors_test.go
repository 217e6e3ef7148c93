package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/salesetl/src/models"
)

func sale(ts time.Time, product string, qty int64, price string) models.Transaction {
	return models.Transaction{
		Timestamp: ts,
		ProductID: product,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestTransactionIDIgnoresProvenance(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := sale(ts, "SKU-1", 3, "10.00")
	a.SourceFile, a.SourceLine = "monday.csv", 4
	b := sale(ts.In(time.FixedZone("X", 5*3600)), "sku-1", 3, "10")
	b.SourceFile, b.SourceLine = "tuesday.csv", 90

	if TransactionID(&a) != TransactionID(&b) {
		t.Fatal("same sale in two files must resolve to the same id")
	}
	if len(TransactionID(&a)) != 64 {
		t.Errorf("id should be a hex sha256, got %q", TransactionID(&a))
	}
}

func TestTransactionIDDistinguishesContent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	base := sale(ts, "SKU-1", 3, "10.00")
	baseID := TransactionID(&base)

	variants := map[string]models.Transaction{
		"timestamp": sale(ts.Add(time.Second), "SKU-1", 3, "10.00"),
		"product":   sale(ts, "SKU-2", 3, "10.00"),
		"quantity":  sale(ts, "SKU-1", 4, "10.00"),
		"price":     sale(ts, "SKU-1", 3, "10.01"),
	}
	keyed := base
	keyed.TransactionKey = "INV-1"
	variants["business key"] = keyed

	for name, v := range variants {
		if TransactionID(&v) == baseID {
			t.Errorf("changing %s did not change the id", name)
		}
	}

	otherKey := base
	otherKey.TransactionKey = "INV-2"
	if TransactionID(&keyed) == TransactionID(&otherKey) {
		t.Error("different business keys must give different ids")
	}
}

func TestApplyMetrics(t *testing.T) {
	tx := sale(time.Now(), "SKU-1", 3, "10.00")
	tx.UnitCost = decimal.NewNullDecimal(decimal.RequireFromString("6.00"))

	got := ApplyMetrics(tx)
	if !got.Revenue.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("revenue = %s, want 30.00", got.Revenue)
	}
	if !got.Profit.Valid || !got.Profit.Decimal.Equal(decimal.RequireFromString("12.00")) {
		t.Errorf("profit = %+v, want 12.00", got.Profit)
	}
	if !got.UnitMargin.Valid || !got.UnitMargin.Decimal.Equal(decimal.RequireFromString("4")) {
		t.Errorf("unit margin = %+v, want 4", got.UnitMargin)
	}
	if !got.Margin.Valid || got.Margin.Decimal.String() != "0.4" {
		t.Errorf("margin = %+v, want 0.4", got.Margin)
	}
	if tx.Profit.Valid {
		t.Error("ApplyMetrics must not mutate its argument")
	}
}

func TestApplyMetricsUnknownCost(t *testing.T) {
	got := ApplyMetrics(sale(time.Now(), "SKU-1", 3, "10.00"))
	if !got.Revenue.Equal(decimal.NewFromInt(30)) {
		t.Errorf("revenue = %s", got.Revenue)
	}
	if got.Profit.Valid || got.UnitMargin.Valid || got.Margin.Valid {
		t.Errorf("profit fields must be null without a cost, got %+v %+v %+v", got.Profit, got.UnitMargin, got.Margin)
	}
}

func TestApplyMetricsZeroRevenue(t *testing.T) {
	tx := sale(time.Now(), "FREEBIE", 0, "5.00")
	tx.UnitCost = decimal.NewNullDecimal(decimal.RequireFromString("1.00"))

	got := ApplyMetrics(tx)
	if !got.Profit.Valid || !got.Profit.Decimal.IsZero() {
		t.Errorf("profit = %+v, want 0", got.Profit)
	}
	if got.Margin.Valid {
		t.Error("margin must be null when revenue is zero")
	}
}

func TestTransactionProcessorSetsIdentityAndMetrics(t *testing.T) {
	tx := sale(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "A", 2, "1.50")
	NewTransactionProcessor().Process(&tx)
	if tx.TransactionID == "" {
		t.Error("transaction id not set")
	}
	if !tx.Revenue.Equal(decimal.RequireFromString("3")) {
		t.Errorf("revenue = %s", tx.Revenue)
	}
}

func TestApplyMetricsCostFarAbovePrice(t *testing.T) {
	tx := sale(time.Now(), "CLEARANCE", 1, "0.01")
	tx.UnitCost = decimal.NewNullDecimal(decimal.RequireFromString("100000"))
	got := ApplyMetrics(tx)
	if !got.Margin.Valid || !got.Margin.Decimal.Equal(decimal.RequireFromString("-9999999")) {
		t.Errorf("margin = %+v, want -9999999", got.Margin)
	}
}
