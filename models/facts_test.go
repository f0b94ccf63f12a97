package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFacts_MergeFillsOnlyMissing(t *testing.T) {
	high := Facts{
		Symbol:  "AAPL",
		Price:   SomeFloat(190.5),
		Sector:  "Technology",
		PERatio: SomeFloat(30),
	}
	low := Facts{
		CompanyName:   "Apple Inc.",
		Price:         SomeFloat(1),
		Sector:        "Consumer Electronics",
		PERatio:       SomeFloat(99),
		EPS:           SomeFloat(6.1),
		DividendYield: SomeFloat(0),
	}

	filled := high.Merge(&low)

	if !high.Price.Decimal.Equal(decimal.NewFromFloat(190.5)) {
		t.Errorf("Price = %v, want 190.5", high.Price.Decimal)
	}
	if high.Sector != "Technology" {
		t.Errorf("Sector = %v, want Technology", high.Sector)
	}
	if !high.PERatio.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Errorf("PERatio = %v, want 30", high.PERatio.Decimal)
	}
	if high.CompanyName != "Apple Inc." {
		t.Errorf("CompanyName = %v, want 'Apple Inc.'", high.CompanyName)
	}
	if !high.EPS.Valid {
		t.Error("EPS should be filled from the lower source")
	}
	if !high.DividendYield.Valid || !high.DividendYield.Decimal.IsZero() {
		t.Errorf("DividendYield = %+v, want a present zero", high.DividendYield)
	}

	want := map[string]bool{FieldCompanyName: true, FieldEPS: true, FieldDividendYield: true}
	if len(filled) != len(want) {
		t.Fatalf("filled = %v, want %d fields", filled, len(want))
	}
	for _, f := range filled {
		if !want[f] {
			t.Errorf("unexpected filled field %q", f)
		}
	}
}

func TestFacts_MergeNil(t *testing.T) {
	f := Facts{Symbol: "MSFT"}
	if filled := f.Merge(nil); filled != nil {
		t.Errorf("Merge(nil) = %v, want nil", filled)
	}
}

func TestFacts_MergeHistory(t *testing.T) {
	f := Facts{}
	low := Facts{
		History:  []ClosePoint{{Date: "2024-01-02", Close: decimal.NewFromInt(10)}},
		Intraday: true,
	}
	f.Merge(&low)
	if len(f.History) != 1 || !f.Intraday {
		t.Errorf("history not merged: %+v", f)
	}
}

func TestFacts_FundamentalsComplete(t *testing.T) {
	f := Facts{
		Sector:        "Healthcare",
		PERatio:       SomeFloat(12),
		PEGRatio:      SomeFloat(1.1),
		EPS:           SomeFloat(3),
		DividendYield: SomeFloat(0),
	}
	if !f.FundamentalsComplete() {
		t.Error("expected complete facts")
	}

	f.PEGRatio = decimal.NullDecimal{}
	if f.FundamentalsComplete() {
		t.Error("missing PEG should make facts incomplete")
	}
}
