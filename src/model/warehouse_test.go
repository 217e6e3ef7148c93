package model_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/salesetl/src/database/dbtest"
	"github.com/username/salesetl/src/model"
	"github.com/username/salesetl/src/models"
)

func sampleTransaction(id string) *models.Transaction {
	return &models.Transaction{
		TransactionID: id,
		Timestamp:     time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
		ProductID:     "SKU-1",
		Quantity:      3,
		UnitPrice:     decimal.RequireFromString("10.5"),
		Revenue:       decimal.RequireFromString("31.5"),
		Description:   "White mug",
		SourceFile:    "day1.csv",
		RunID:         "run-1",
		LoadedAt:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	wh := dbtest.New(t)
	repo := model.NewSalesRepository(wh)

	tx := sampleTransaction("id-1")
	inserted, err := repo.InsertIfAbsent(ctx, wh, tx)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	dup := sampleTransaction("id-1")
	dup.SourceFile = "day2.csv"
	dup.UnitPrice = decimal.NewFromInt(99)
	inserted, err = repo.InsertIfAbsent(ctx, wh, dup)
	if err != nil {
		t.Fatalf("duplicate insert must not fail: %v", err)
	}
	if inserted {
		t.Error("duplicate reported as inserted")
	}

	stored, err := repo.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.SourceFile != "day1.csv" || !stored.UnitPrice.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("first loaded version must win, got %+v", stored)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	wh := dbtest.New(t)
	repo := model.NewSalesRepository(wh)

	withCost := sampleTransaction("id-cost")
	withCost.TransactionKey = "INV-9"
	withCost.UnitCost = decimal.NewNullDecimal(decimal.RequireFromString("6.25"))
	withCost.Profit = decimal.NewNullDecimal(decimal.RequireFromString("12.75"))
	withCost.Margin = decimal.NewNullDecimal(decimal.RequireFromString("0.4048"))
	withoutCost := sampleTransaction("id-nocost")

	for _, tx := range []*models.Transaction{withCost, withoutCost} {
		if _, err := repo.InsertIfAbsent(ctx, wh, tx); err != nil {
			t.Fatalf("insert %s: %v", tx.TransactionID, err)
		}
	}

	got, err := repo.Get(ctx, "id-cost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TransactionKey != "INV-9" || !got.Timestamp.Equal(withCost.Timestamp) {
		t.Errorf("got %+v", got)
	}
	if !got.Profit.Valid || !got.Profit.Decimal.Equal(decimal.RequireFromString("12.75")) {
		t.Errorf("profit = %+v", got.Profit)
	}

	got, err = repo.Get(ctx, "id-nocost")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Profit.Valid || got.UnitCost.Valid || got.Margin.Valid {
		t.Errorf("unknown cost must round trip as null, got %+v", got)
	}

	list, err := repo.ListBySourceFile(ctx, "day1.csv")
	if err != nil || len(list) != 2 {
		t.Fatalf("ListBySourceFile = %d rows, %v", len(list), err)
	}

	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, model.ErrTransactionNotFound) {
		t.Errorf("Get(nope) err = %v", err)
	}
}

func TestIngestRuns(t *testing.T) {
	ctx := context.Background()
	wh := dbtest.New(t)
	repo := model.NewSalesRepository(wh)

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		run := models.IngestRun{
			RunID:      id,
			SourceDir:  "/data",
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
			FinishedAt: start.Add(time.Duration(i)*time.Minute + time.Second),
			Inserted:   i + 1,
		}
		if err := repo.InsertIngestRun(ctx, run); err != nil {
			t.Fatalf("InsertIngestRun: %v", err)
		}
	}

	runs, err := repo.ListIngestRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListIngestRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "newer" || runs[0].Inserted != 2 {
		t.Errorf("runs = %+v", runs)
	}
}
